// Package commands implements the sessionctl command tree.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
	"github.com/bionicotaku/lingo-utils-sessionx/internal/logger"
)

type globalOptions struct {
	envFile      string
	configPath   string
	stateDir     string
	redisURL     string
	redisPrefix  string
	currentURL   string
	sessionToken string
	debug        bool
	devLogs      bool

	log *zap.Logger
}

// runtime is one opened session manager plus what must be released with it.
type runtime struct {
	manager *sessionx.Manager
	cfg     sessionx.Config
	address *sessionx.AddressBar
	closers []func() error
}

func (r *runtime) Close() {
	r.manager.Close()
	r.closeResources()
}

// NewRootCmd builds the sessionctl command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Inspect and drive the local client session",
		Long:          "sessionctl resolves the client session from the cookie, storage and URL tiers without contacting any server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.prepare(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync(opts.log)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env", defaultEnvPath(), "Optional .env file (env "+envFileVar+")")
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (env SESSIONX_CONFIG)")
	flags.StringVar(&opts.stateDir, "state-dir", "", "Directory holding cookie and storage files (env SESSIONX_STATE_DIR)")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Use Redis for the cookie and persistent tiers (env SESSIONX_REDIS_URL)")
	flags.StringVar(&opts.redisPrefix, "redis-prefix", "sessionctl:", "Key prefix in Redis")
	flags.StringVar(&opts.currentURL, "url", "", "Current address probed for token query parameters")
	flags.StringVar(&opts.sessionToken, "session-token", "", "Token placed in session-scoped storage for this run")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging (env SESSIONX_DEBUG)")
	flags.BoolVar(&opts.devLogs, "dev-logs", false, "Human readable logs")

	root.AddCommand(
		newStatusCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newRefreshCmd(opts),
		newDecodeCmd(opts),
		newMintCmd(opts),
		newWatchCmd(opts),
		newServeCmd(opts),
	)
	return root
}

func (o *globalOptions) prepare(cmd *cobra.Command) error {
	bootstrap := zap.NewNop()
	if err := loadEnvFile(o.envFile, bootstrap); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: load %s: %v\n", o.envFile, err)
	}
	flags := cmd.Flags()
	if !flags.Changed("config") {
		o.configPath = os.Getenv("SESSIONX_CONFIG")
	}
	if !flags.Changed("state-dir") {
		o.stateDir = envOr("SESSIONX_STATE_DIR", defaultStateDir())
	}
	if !flags.Changed("redis-url") {
		o.redisURL = os.Getenv("SESSIONX_REDIS_URL")
	}
	if !flags.Changed("debug") {
		o.debug = envBool("SESSIONX_DEBUG")
	}

	log, err := logger.New(o.devLogs, o.debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	o.log = log
	return nil
}

func (o *globalOptions) config() (sessionx.Config, error) {
	if o.configPath == "" {
		return sessionx.DefaultConfig(), nil
	}
	return sessionx.LoadConfig(o.configPath)
}

// open wires the tiers selected by the flags into a manager. The manager is
// not initialized.
func (o *globalOptions) open() (*runtime, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	var persistent sessionx.Storage
	if o.redisURL != "" {
		redisOpts, err := redis.ParseURL(o.redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		rt.closers = append(rt.closers, client.Close)
		persistent = sessionx.NewRedisStorage(client, o.redisPrefix)
	} else {
		persistent = sessionx.NewFileStorage(filepath.Join(o.stateDir, "storage.json"))
	}

	sessionStorage := sessionx.NewMemoryStorage(nil)
	if o.sessionToken != "" {
		_ = sessionStorage.Set(cfg.StorageKeys[0], o.sessionToken)
	}

	cookies := sessionx.NewStorageCookieStore(persistent, nil)
	opts := []sessionx.Option{
		sessionx.WithLogger(o.log),
		sessionx.WithPersistentStorage(persistent),
		sessionx.WithSessionStorage(sessionStorage),
	}
	if o.currentURL != "" {
		address, err := sessionx.NewAddressBar(o.currentURL)
		if err != nil {
			rt.closeResources()
			return nil, fmt.Errorf("parse url: %w", err)
		}
		rt.address = address
		opts = append(opts, sessionx.WithLocation(address))
	}

	manager, err := sessionx.NewManager(cfg, cookies, opts...)
	if err != nil {
		rt.closeResources()
		return nil, err
	}
	rt.manager = manager
	return rt, nil
}

func (r *runtime) closeResources() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sessionctl")
	}
	return ".sessionctl"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
