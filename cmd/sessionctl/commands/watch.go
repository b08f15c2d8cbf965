package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session resolved and print every change",
		Long:  "watch initializes the session and lets the refresh scheduler re-validate it until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			changes := make(chan sessionx.State, 8)
			unsubscribe := rt.manager.Subscribe(func(s sessionx.State) {
				select {
				case changes <- s:
				default:
					opts.log.Warn("dropped session change notification")
				}
			})
			defer unsubscribe()

			state := rt.manager.Initialize()
			opts.log.Info("watching session",
				zap.Bool("authenticated", state.IsAuthenticated),
				zap.Duration("interval", rt.cfg.RefreshInterval),
			)
			if err := printJSON(out, state); err != nil {
				return err
			}
			return watchLoop(ctx, state, changes, func(s sessionx.State) error {
				return printJSON(out, struct {
					At string `json:"at"`
					sessionx.State
				}{At: time.Now().UTC().Format(time.RFC3339), State: s})
			})
		},
	}
}

// watchLoop emits every state that differs from the previous one, starting
// from the already printed initial state.
func watchLoop(ctx context.Context, initial sessionx.State, changes <-chan sessionx.State, emit func(sessionx.State) error) error {
	last := initial
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-changes:
			if sameState(last, s) {
				continue
			}
			if err := emit(s); err != nil {
				return err
			}
			last = s
		}
	}
}

func sameState(a, b sessionx.State) bool {
	if a.IsAuthenticated != b.IsAuthenticated || a.IsLoading != b.IsLoading {
		return false
	}
	if a.Identity == nil || b.Identity == nil {
		return a.Identity == b.Identity
	}
	return a.Identity.Nickname == b.Identity.Nickname
}
