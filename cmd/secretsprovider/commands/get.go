package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/pkg/provider"
)

// secretView is the JSON shape of a revealed secret.
type secretView struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Value    string `json:"value"`
	Encoding string `json:"encoding,omitempty"`
}

type getOptions struct {
	name       string
	version    string
	reveal     bool
	jsonOutput bool
}

func NewGetCommand(cfg *config.Config) *cobra.Command {
	var (
		providerName string
		binary       bool
		opts         getOptions
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Look up one secret",
		Long: `Look up one secret in a configured provider.

Without --reveal only the name and the version the value was read from are
printed. With --reveal the value is written to stdout as is; binary values
are base64 encoded.

Examples:
  # Show which version is current
  secretsprovider get --provider prod --name db-password

  # Print the value for a script
  export DB_PASSWORD=$(secretsprovider get --provider prod --name db-password --reveal)

  # Read a pinned version of a binary secret
  secretsprovider get --provider prod --name tls-key --version 3 --binary --reveal --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.name == "" {
				return dserrors.UserError{
					Message:    "Secret name is required",
					Suggestion: "Use --name <secret-name> to specify which secret to get",
				}
			}

			s, err := openProvider(cmd.Context(), cfg, providerName)
			if err != nil {
				return err
			}
			defer s.Close()

			if binary {
				return getSecret(cmd.OutOrStdout(), s, provider.Bytes, encodeBinary, opts)
			}
			return getSecret(cmd.OutOrStdout(), s, provider.String, encodeText, opts)
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "Provider name from the configuration (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Secret name (required)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Version id; empty reads the current version")
	cmd.Flags().BoolVar(&binary, "binary", false, "Read the secret as binary")
	cmd.Flags().BoolVar(&opts.reveal, "reveal", false, "Print the secret value")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func getSecret[T any](w io.Writer, s *session, dec provider.Decoder[T], encode func(T) (string, string), opts getOptions) error {
	secret, err := provider.FindWithVersion(s.ctx, s.provider, dec, opts.name, opts.version)
	if err != nil {
		return s.fail("get", err)
	}
	if secret == nil {
		return dserrors.NotFound(s.name, opts.name, opts.version)
	}
	logger(s.cfg).Debug("read %s version %s from %s", opts.name, secret.Version(), s.name)

	if !opts.reveal {
		if opts.jsonOutput {
			return writeJSON(w, secret)
		}
		_, err := fmt.Fprintln(w, secret.String())
		return err
	}

	value, err := secret.Reveal()
	if err != nil {
		return err
	}
	text, encoding := encode(value)
	if opts.jsonOutput {
		return writeJSON(w, secretView{
			Name:     secret.Name(),
			Version:  secret.Version(),
			Value:    text,
			Encoding: encoding,
		})
	}
	_, err = fmt.Fprint(w, text)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
