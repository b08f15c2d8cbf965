package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
)

func newMintCmd(opts *globalOptions) *cobra.Command {
	var (
		claims sessionx.DevClaims
		key    string
		login  bool
	)
	defaults := sessionx.DefaultDevClaims()
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a development token",
		Long:  "mint signs a token with an arbitrary HS256 key. The session layer does not verify signatures, so minted tokens are accepted as-is.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("key") {
				key = envOr("SESSIONX_DEV_KEY", key)
			}
			token, err := sessionx.MintDevToken(claims, []byte(key), time.Now())
			if err != nil {
				return err
			}
			if !login {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			}

			rt, err := opts.open()
			if err != nil {
				return err
			}
			defer rt.Close()
			if !rt.manager.Login(token) {
				return fmt.Errorf("minted token rejected")
			}
			return printJSON(cmd.OutOrStdout(), rt.manager.State())
		},
	}
	f := cmd.Flags()
	f.StringVar(&claims.Subject, "subject", defaults.Subject, "sub claim")
	f.StringVar(&claims.Nickname, "nickname", defaults.Nickname, "nickname claim")
	f.StringVar(&claims.Username, "username", defaults.Username, "username claim")
	f.StringVar(&claims.Email, "email", "", "email claim")
	f.StringVar(&claims.Phone, "phone", "", "phone claim")
	f.Int64Var(&claims.UserID, "user-id", 0, "userId claim")
	f.DurationVar(&claims.TTL, "ttl", defaults.TTL, "Lifetime; 0 omits exp")
	f.StringVar(&key, "key", "sessionx-dev", "HS256 key (env SESSIONX_DEV_KEY)")
	f.BoolVar(&login, "login", false, "Log in with the minted token instead of printing it")
	return cmd
}
