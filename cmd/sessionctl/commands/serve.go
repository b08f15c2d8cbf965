package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bionicotaku/lingo-utils-sessionx/sessionhttp"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr    string
		origins string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the session over a local HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.manager.Initialize()

			var allowed []string
			for _, o := range strings.Split(origins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					allowed = append(allowed, o)
				}
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           sessionhttp.NewRouter(rt.manager, sessionhttp.Options{AllowedOrigins: allowed, Logger: opts.log}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				opts.log.Info("session api listening", zap.String("addr", addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "Listen address")
	cmd.Flags().StringVar(&origins, "allowed-origins", "http://localhost:3000", "Comma separated CORS origins")
	return cmd
}
