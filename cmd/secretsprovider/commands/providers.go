package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/secretsprovider/internal/config"
	"github.com/systmms/secretsprovider/internal/providers"
)

func NewProvidersCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List available providers",
		Long: `Display information about available secret providers.

Shows both built-in provider types and configured provider instances.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			registry := providers.NewRegistry()
			supportedTypes := registry.GetSupportedTypes()

			_, _ = fmt.Fprintln(out, "Built-in Provider Types:")
			_, _ = fmt.Fprintln(out, "=======================")

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")
			for _, providerType := range supportedTypes {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", providerType, getProviderDescription(providerType))
			}
			_ = w.Flush()

			// Configured providers are shown when a config file is readable.
			if err := cfg.Load(); err == nil && cfg.Definition != nil {
				_, _ = fmt.Fprintln(out, "\nConfigured Providers:")
				_, _ = fmt.Fprintln(out, "====================")

				names := cfg.ProviderNames()
				if len(names) == 0 {
					_, _ = fmt.Fprintln(out, "No providers configured")
				} else {
					w2 := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
					_, _ = fmt.Fprintf(w2, "NAME\tTYPE\tTIMEOUT\tSTATUS\n")
					_, _ = fmt.Fprintf(w2, "----\t----\t-------\t------\n")
					for _, name := range names {
						pc := cfg.Definition.Providers[name]
						status := "configured"
						if !registry.IsSupported(pc.Type) {
							status = "unsupported"
						}
						_, _ = fmt.Fprintf(w2, "%s\t%s\t%dms\t%s\n", name, pc.Type, pc.GetProviderTimeout(), status)
					}
					_ = w2.Flush()
				}
			} else if err != nil {
				logger(cfg).Debug("not listing configured providers: %v", err)
			}

			if verbose {
				_, _ = fmt.Fprintln(out, "\nProvider Details:")
				_, _ = fmt.Fprintln(out, "================")
				for _, providerType := range supportedTypes {
					_, _ = fmt.Fprintf(out, "\n%s:\n", providerType)
					for _, detail := range getProviderDetails(providerType) {
						_, _ = fmt.Fprintf(out, "  - %s\n", detail)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed provider information")

	return cmd
}

// getProviderDescription returns a description for a provider type
func getProviderDescription(providerType string) string {
	descriptions := map[string]string{
		providers.TypeMemory:            "In-process store for tests and local development",
		providers.TypeAWSSecretsManager: "AWS Secrets Manager via SDK",
		providers.TypeAWSSSM:            "AWS Systems Manager Parameter Store",
		providers.TypeGCPSecretManager:  "Google Cloud Secret Manager",
		providers.TypeAzureKeyVault:     "Azure Key Vault",
		providers.TypeKeychain:          "OS native keychain (macOS Keychain, Linux Secret Service)",
		providers.TypeAkeyless:          "Akeyless enterprise zero-knowledge secret management",
		providers.TypeSQL:               "Versioned secrets table in PostgreSQL or MySQL",
	}

	if desc, exists := descriptions[providerType]; exists {
		return desc
	}
	return "No description available"
}

// getProviderDetails returns detailed information for a provider type
func getProviderDetails(providerType string) []string {
	details := map[string][]string{
		providers.TypeMemory: {
			"Seeded from the 'secrets' block of the provider config",
			"Values are sealed in guarded memory",
			"Version ids are random UUIDs; the last added is current",
		},
		providers.TypeAWSSecretsManager: {
			"Uses AWS SDK v2 for direct API access",
			"Requires AWS credentials (CLI, env vars, IAM roles, web identity)",
			"Versions: version id or staging label (AWSCURRENT, AWSPREVIOUS)",
			"Batch lookups use BatchGetSecretValue, 20 ids per call",
		},
		providers.TypeAWSSSM: {
			"Supports String, StringList and SecureString parameters",
			"Automatic KMS decryption for SecureString",
			"Versions: parameter version number or label",
			"Optional parameter_prefix is prepended to every name",
		},
		providers.TypeGCPSecretManager: {
			"Application Default Credentials, key file or impersonation",
			"Payload is read as text or binary, per the 'payload' setting",
			"Versions: version number or 'latest'",
			"Payload checksums are verified",
		},
		providers.TypeAzureKeyVault: {
			"DefaultAzureCredential, managed identity or service principal",
			"Content type application/octet-stream is decoded from base64",
			"Versions: the version segment of the secret id",
		},
		providers.TypeKeychain: {
			"macOS: Keychain Services",
			"Linux: Secret Service D-Bus API (gnome-keyring, KWallet)",
			"Windows: Credential Manager",
			"Key format: 'service/account', or 'account' with 'service' configured",
			"Items are unversioned",
		},
		providers.TypeAkeyless: {
			"Auth methods: api_key, aws_iam, azure_ad, gcp",
			"Session tokens are cached in guarded memory",
			"Key format: '/path/to/secret[@vN]'",
			"Versions: positive integers",
		},
		providers.TypeSQL: {
			"Drivers: postgres (lib/pq) and mysql (go-sql-driver)",
			"Table columns: name, version, seq, kind, value",
			"The row with the highest seq is the current version",
		},
	}

	if detail, exists := details[providerType]; exists {
		return detail
	}
	return []string{"No details available"}
}
