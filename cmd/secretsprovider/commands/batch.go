package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsprovider/internal/config"
	dserrors "github.com/systmms/secretsprovider/internal/errors"
	"github.com/systmms/secretsprovider/pkg/provider"
)

type batchEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type batchResult struct {
	Found   []batchEntry `json:"found"`
	Missing []string     `json:"missing"`
}

func NewBatchCommand(cfg *config.Config) *cobra.Command {
	var (
		providerName string
		binary       bool
		concurrency  int
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "batch NAME...",
		Short: "Look up several secrets at once",
		Long: `Look up the current version of several secrets in one provider.

Secrets that do not exist are reported as missing. Any other failure aborts
the whole batch. Values are never printed; use 'get --reveal' for that.

Examples:
  secretsprovider batch --provider prod db-password api-token tls-key

  # Run up to 8 lookups at a time against a backend without a batch API
  secretsprovider batch --provider vault --concurrency 8 a b c d`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 0 {
				return dserrors.UserError{
					Message:    "Concurrency must not be negative",
					Suggestion: "Use --concurrency 0 for sequential lookups or a positive limit",
				}
			}

			s, err := openProvider(cmd.Context(), cfg, providerName)
			if err != nil {
				return err
			}
			defer s.Close()

			var result batchResult
			if binary {
				result, err = batchSecrets(s, provider.Bytes, args, concurrency)
			} else {
				result, err = batchSecrets(s, provider.String, args, concurrency)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return printBatch(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&providerName, "provider", "", "Provider name from the configuration (required)")
	cmd.Flags().BoolVar(&binary, "binary", false, "Read the secrets as binary")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel lookups; 0 uses the provider's batch path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func batchSecrets[T any](s *session, dec provider.Decoder[T], names []string, concurrency int) (batchResult, error) {
	var (
		found map[string]*provider.Secret[T]
		err   error
	)
	if concurrency > 0 {
		found, err = provider.ConcurrentBatchFind(s.ctx, s.provider, dec, names, concurrency)
	} else {
		found, err = provider.BatchFind(s.ctx, s.provider, dec, names)
	}
	if err != nil {
		return batchResult{}, s.fail("batch", err)
	}

	result := batchResult{Found: []batchEntry{}, Missing: []string{}}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		secret, ok := found[name]
		if !ok {
			result.Missing = append(result.Missing, name)
			continue
		}
		result.Found = append(result.Found, batchEntry{Name: name, Version: secret.Version()})
	}
	logger(s.cfg).Debug("batch on %s: %d found, %d missing", s.name, len(result.Found), len(result.Missing))
	return result, nil
}

func printBatch(w io.Writer, result batchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "NAME\tVERSION\tSTATUS\n")
	for _, e := range result.Found {
		_, _ = fmt.Fprintf(tw, "%s\t%s\tfound\n", e.Name, e.Version)
	}
	for _, name := range result.Missing {
		_, _ = fmt.Fprintf(tw, "%s\t-\tmissing\n", name)
	}
	return tw.Flush()
}
