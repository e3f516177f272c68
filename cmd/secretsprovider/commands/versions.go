package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/pkg/provider"
)

func NewVersionsCommand(cfg *config.Config) *cobra.Command {
	var (
		providerName string
		secretName   string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the versions of a secret",
		Long: `List the version ids of a secret, oldest first. The last id is the
current version.

Example:
  secretsprovider versions --provider prod --name db-password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secretName == "" {
				return dserrors.UserError{
					Message:    "Secret name is required",
					Suggestion: "Use --name <secret-name> to specify which secret to inspect",
				}
			}

			s, err := openProvider(cmd.Context(), cfg, providerName)
			if err != nil {
				return err
			}
			defer s.Close()

			ids, found, err := provider.ListVersionIDs(s.ctx, s.provider, secretName)
			if err != nil {
				return s.fail("versions", err)
			}
			if !found {
				return dserrors.NotFound(s.name, secretName, "")
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), ids)
			}
			for _, id := range ids {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "Provider name from the configuration (required)")
	cmd.Flags().StringVar(&secretName, "name", "", "Secret name (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
