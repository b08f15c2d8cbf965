package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	sessionx "github.com/bionicotaku/lingo-utils-sessionx"
)

type decodeView struct {
	Valid        bool               `json:"valid"`
	Reason       sessionx.ErrorCode `json:"reason,omitempty"`
	ExpiringSoon bool               `json:"expiringSoon"`
	Subject      string             `json:"subject,omitempty"`
	Issuer       string             `json:"issuer,omitempty"`
	Audience     []string           `json:"audience,omitempty"`
	ExpiresAt    string             `json:"expiresAt,omitempty"`
	IssuedAt     string             `json:"issuedAt,omitempty"`
	Identity     *sessionx.Identity `json:"identity,omitempty"`
	Claims       sessionx.ClaimSet  `json:"claims,omitempty"`
}

func newDecodeCmd(_ *globalOptions) *cobra.Command {
	var threshold time.Duration
	cmd := &cobra.Command{
		Use:   "decode <token|->",
		Short: "Decode a token payload without verifying its signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if token == "-" {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				token = string(data)
			}
			token = strings.TrimSpace(token)

			claims, err := sessionx.Decode(token)
			if err != nil {
				return err
			}
			validator := sessionx.NewValidator(nil)
			view := decodeView{Claims: claims, ExpiringSoon: validator.IsExpiringSoon(token, threshold)}
			if _, err := validator.Validate(token); err != nil {
				view.Reason = sessionx.CodeOf(err)
			} else {
				view.Valid = true
			}
			reg := claims.Registered()
			view.Subject = reg.Subject
			view.Issuer = reg.Issuer
			view.Audience = reg.Audience
			if !reg.ExpiresAt.IsZero() {
				view.ExpiresAt = reg.ExpiresAt.Format(time.RFC3339)
			}
			if !reg.IssuedAt.IsZero() {
				view.IssuedAt = reg.IssuedAt.Format(time.RFC3339)
			}
			view.Identity, _ = sessionx.IdentityFromClaims(claims)
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().DurationVar(&threshold, "threshold", sessionx.DefaultExpiringSoonThreshold, "Expiring-soon lead time")
	return cmd
}
