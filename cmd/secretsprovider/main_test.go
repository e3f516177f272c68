package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsprovider/internal/config"
)

func probe(cfg *config.Config, ran *bool) *cobra.Command {
	return &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			*ran = cfg.Logger != nil
			return nil
		},
	}
}

func TestRootCommandFlagDefaults(t *testing.T) {
	t.Parallel()

	envCfg := &config.Env{ConfigPath: "/etc/sp.yaml", Debug: true, LogFormat: "json", NoColor: "1"}
	root, _ := newRootCommand(envCfg)

	flags := root.PersistentFlags()
	assert.Equal(t, "/etc/sp.yaml", flags.Lookup("config").DefValue)
	assert.Equal(t, "true", flags.Lookup("debug").DefValue)
	assert.Equal(t, "json", flags.Lookup("log-format").DefValue)
	assert.Equal(t, "true", flags.Lookup("no-color").DefValue)
}

func TestRootCommandLogFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		wantErr string
	}{
		{name: "console", format: "console"},
		{name: "json", format: "json"},
		{name: "unknown", format: "xml", wantErr: `Unknown log format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root, cfg := newRootCommand(&config.Env{ConfigPath: config.DefaultPath, LogFormat: "console"})
			var ran bool
			root.AddCommand(probe(cfg, &ran))
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			root.SetArgs([]string{"--log-format", tt.format, "--config", "custom.yaml", "probe"})

			err := root.Execute()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.False(t, ran)
				return
			}
			require.NoError(t, err)
			assert.True(t, ran)
			assert.Equal(t, "custom.yaml", cfg.Path)
		})
	}
}

func TestRootCommandVersion(t *testing.T) {
	t.Parallel()

	root, _ := newRootCommand(&config.Env{LogFormat: "console"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "dev (commit: none")
}
