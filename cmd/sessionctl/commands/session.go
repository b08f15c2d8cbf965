package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/api/idtoken"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
)

type statusView struct {
	sessionx.State
	ExpiringSoon bool   `json:"expiringSoon"`
	Address      string `json:"address,omitempty"`
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Resolve and print the session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			state := rt.manager.Initialize()
			view := statusView{State: state, ExpiringSoon: state.IsAuthenticated && rt.manager.IsExpiringSoon()}
			if rt.address != nil {
				view.Address = rt.address.String()
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var (
		token          string
		googleAudience string
	)
	cmd := &cobra.Command{
		Use:   "login [token|-]",
		Short: "Accept a token obtained out of band",
		Long: "login validates the token locally and stores it in the cookie tier. The token may be passed as an argument, " +
			"read from stdin with \"-\", or fetched as a Google ID token for --google-audience using application default credentials.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				token = args[0]
			}
			if token == "-" {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				token = string(data)
			}
			if token == "" && googleAudience != "" {
				ts, err := idtoken.NewTokenSource(cmd.Context(), googleAudience)
				if err != nil {
					return fmt.Errorf("google token source: %w", err)
				}
				tok, err := ts.Token()
				if err != nil {
					return fmt.Errorf("fetch google id token: %w", err)
				}
				token = tok.AccessToken
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return fmt.Errorf("a token, \"-\" or --google-audience is required")
			}

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.manager.Login(token) {
				return fmt.Errorf("token rejected: it is malformed, expired or carries no identity")
			}
			return printJSON(cmd.OutOrStdout(), rt.manager.State())
		},
	}
	cmd.Flags().StringVar(&token, "token", os.Getenv("SESSIONX_TOKEN"), "Token to accept (env SESSIONX_TOKEN)")
	cmd.Flags().StringVar(&googleAudience, "google-audience", os.Getenv("SESSIONX_GOOGLE_AUDIENCE"), "Fetch a Google ID token for this audience")
	return cmd
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the session cookie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.manager.Logout()
			return printJSON(cmd.OutOrStdout(), rt.manager.State())
		},
	}
}

func newRefreshCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-validate the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			return printJSON(cmd.OutOrStdout(), rt.manager.RefreshAuthStatus())
		},
	}
}
