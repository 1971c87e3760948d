package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token and show its expiry",
		Long: `Issue an access token (au10001) with the configured app key and secret.

With --revoke the freshly issued token is revoked again (au10002), which
is useful to check that both endpoints accept the credentials.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			output := NewOutput(cmd)

			if _, err := app.brokerClient(); err != nil {
				return failure(err)
			}
			if _, err := app.Tokens.AccessToken(ctx); err != nil {
				return failure(err)
			}
			token, _ := app.Tokens.Token()

			revoke, _ := cmd.Flags().GetBool("revoke")
			if revoke {
				if err := app.Tokens.Revoke(ctx); err != nil {
					return failure(err)
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"token":      token.Masked(),
					"type":       token.Type,
					"expires_at": token.ExpiresAt,
					"revoked":    revoke,
				})
			}

			output.Success("✓ Access token issued")
			output.Printf("  Token:    %s\n", token.Masked())
			if token.Type != "" {
				output.Printf("  Type:     %s\n", token.Type)
			}
			output.Printf("  Expires:  %s (in %s)\n",
				FormatDateTime(token.ExpiresAt),
				FormatDuration(time.Until(token.ExpiresAt).Truncate(time.Second)))
			if revoke {
				output.Warning("Token revoked")
			}
			return nil
		},
	}
	cmd.Flags().Bool("revoke", false, "revoke the token after issuing it")
	return cmd
}
