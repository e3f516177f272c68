package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsprovider/internal/providers"
	"github.com/systmms/secretsprovider/pkg/provider"
	"github.com/systmms/secretsprovider/tests/fakes"
)

func newKeyVault(t *testing.T) (*providers.AzureKeyVaultProvider, *fakes.FakeAzureKeyVaultClient) {
	t.Helper()
	client := fakes.NewFakeAzureKeyVaultClient()
	p, err := providers.NewAzureKeyVaultProvider("azure-test",
		map[string]interface{}{"vault_url": fakes.FakeVaultURL},
		providers.WithAzureKeyVaultClient(client))
	require.NoError(t, err)
	return p, client
}

func TestAzureKeyVaultContract(t *testing.T) {
	provider.RunContractTests(t, provider.ContractTest{
		Setup: func(t *testing.T) (provider.Provider, provider.Seeder) {
			p, client := newKeyVault(t)
			return p, client
		},
	})
}

func TestAzureKeyVaultConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr string
	}{
		{name: "missing vault url", config: map[string]interface{}{}, wantErr: "vault_url is required"},
		{name: "plain http", config: map[string]interface{}{"vault_url": "http://vault.example"}, wantErr: "Invalid vault_url"},
		{name: "no host", config: map[string]interface{}{"vault_url": "https://"}, wantErr: "Invalid vault_url"},
		{
			name:    "managed identity flag not a bool",
			config:  map[string]interface{}{"vault_url": fakes.FakeVaultURL, "use_managed_identity": "true"},
			wantErr: "use_managed_identity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := providers.NewAzureKeyVaultProvider("azure", tt.config,
				providers.WithAzureKeyVaultClient(fakes.NewFakeAzureKeyVaultClient()))
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrInitialization)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAzureKeyVaultClientSecretCredential(t *testing.T) {
	t.Parallel()

	p, err := providers.NewAzureKeyVaultProvider("azure", map[string]interface{}{
		"vault_url":     fakes.FakeVaultURL,
		"tenant_id":     "00000000-0000-0000-0000-000000000000",
		"client_id":     "11111111-1111-1111-1111-111111111111",
		"client_secret": "not-a-real-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "azure", p.Name())
}

func TestAzureKeyVaultBinaryContentType(t *testing.T) {
	t.Parallel()

	p, client := newKeyVault(t)
	client.AddBinarySecret("cert", []byte{0xde, 0xad, 0xbe, 0xef})
	client.AddSecretWithContentType("broken", "***not base64***", providers.BinaryContentType)
	client.AddSecretWithContentType("json", `{"user":"app"}`, "application/json")
	ctx := context.Background()

	cert, err := provider.Find(ctx, p, provider.Bytes, "cert")
	require.NoError(t, err)
	require.NotNil(t, cert)
	data, err := cert.Reveal()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)

	_, err = provider.Find(ctx, p, provider.Bytes, "broken")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)

	doc, err := provider.Find(ctx, p, provider.String, "json")
	require.NoError(t, err)
	require.NotNil(t, doc)
	text, err := doc.Reveal()
	require.NoError(t, err)
	assert.Equal(t, `{"user":"app"}`, text)
}

func TestAzureKeyVaultServiceErrors(t *testing.T) {
	t.Parallel()

	p, client := newKeyVault(t)
	client.AddError("forbidden", fakes.AzureForbiddenError())
	client.AddError("throttled", fakes.AzureThrottledError())
	client.AddError("gone", fakes.AzureNotFoundError("gone"))
	ctx := context.Background()

	for _, name := range []string{"forbidden", "throttled"} {
		_, err := provider.Find(ctx, p, provider.String, name)
		assert.ErrorIs(t, err, provider.ErrProviderFailed, name)
	}

	s, err := provider.Find(ctx, p, provider.String, "gone")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAzureKeyVaultListVersionIDs(t *testing.T) {
	t.Parallel()

	p, client := newKeyVault(t)
	client.PageSize = 1
	want := []string{
		client.AddStringSecret("rotated", "a"),
		client.AddStringSecret("rotated", "b"),
		client.AddStringSecret("rotated", "c"),
	}
	ctx := context.Background()

	ids, found, err := provider.ListVersionIDs(ctx, p, "rotated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, ids)

	_, found, err = provider.ListVersionIDs(ctx, p, "never-created")
	require.NoError(t, err)
	assert.False(t, found)

	client.AddError("rotated", fakes.AzureForbiddenError())
	_, _, err = provider.ListVersionIDs(ctx, p, "rotated")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
}
