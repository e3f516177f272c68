package providers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/secretsprovider/internal/providers"
	"github.com/systmms/secretsprovider/pkg/provider"
	"github.com/systmms/secretsprovider/tests/fakes"
)

const gcpProject = "test-project"

func newGCP(t *testing.T, payload string) (*providers.GCPSecretManagerProvider, *fakes.FakeGCPSecretManagerClient) {
	t.Helper()
	client := fakes.NewFakeGCPSecretManagerClient()
	config := map[string]interface{}{"project_id": gcpProject}
	if payload != "" {
		config["payload"] = payload
	}
	p, err := providers.NewGCPSecretManagerProvider("gcp-test", config, providers.WithGCPClient(client))
	require.NoError(t, err)
	return p, client
}

func TestGCPSecretManagerFetch(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	client.AddSecretVersion(gcpProject, "api-key", []byte("first"))
	client.AddSecretVersion(gcpProject, "api-key", []byte("second"))

	tests := []struct {
		name        string
		version     string
		wantValue   string
		wantVersion string
	}{
		{name: "latest", version: "", wantValue: "second", wantVersion: "2"},
		{name: "alias", version: "latest", wantValue: "second", wantVersion: "2"},
		{name: "pinned", version: "1", wantValue: "first", wantVersion: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := provider.FindWithVersion(context.Background(), p, provider.String, "api-key", tt.version)
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.Equal(t, tt.wantVersion, s.Version())
			value, err := s.Reveal()
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestGCPSecretManagerNonNumericVersionIsAbsent(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	client.AddSecretVersion(gcpProject, "api-key", []byte("first"))

	for _, version := range []string{"no-such-version", "v1", "1.0", "-1", "LATEST"} {
		s, err := provider.FindWithVersion(context.Background(), p, provider.String, "api-key", version)
		require.NoError(t, err, version)
		assert.Nil(t, s, version)
	}
	assert.Empty(t, client.Requests)
}

func TestGCPSecretManagerResourceNames(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	client.AddSecretVersion("other-project", "shared", []byte("x"))
	ctx := context.Background()

	s, err := provider.Find(ctx, p, provider.String, "projects/other-project/secrets/shared")
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = provider.Find(ctx, p, provider.String, "short")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"projects/other-project/secrets/shared/versions/latest",
		"projects/test-project/secrets/short/versions/latest",
	}, client.Requests)
}

func TestGCPSecretManagerPayloadKind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	raw := []byte{0x00, 0x01, 0xfe}

	binary, client := newGCP(t, providers.PayloadBinary)
	client.AddSecretVersion(gcpProject, "blob", raw)

	s, err := provider.Find(ctx, binary, provider.Bytes, "blob")
	require.NoError(t, err)
	require.NotNil(t, s)
	got, err := s.Reveal()
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = provider.Find(ctx, binary, provider.String, "blob")
	assert.ErrorIs(t, err, provider.ErrInvalidType)

	text, client := newGCP(t, providers.PayloadText)
	client.AddSecretVersion(gcpProject, "word", []byte("hello"))
	_, err = provider.Find(ctx, text, provider.Bytes, "word")
	assert.ErrorIs(t, err, provider.ErrInvalidType)
}

func TestGCPSecretManagerChecksum(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	client.AddCorruptSecretVersion(gcpProject, "tampered", []byte("payload"))

	_, err := provider.Find(context.Background(), p, provider.String, "tampered")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
	assert.Contains(t, err.Error(), "checksum")
}

func TestGCPSecretManagerErrors(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	client.AddSecretVersion(gcpProject, "present", []byte("v"))
	client.AddError(gcpProject, "denied", status.Error(codes.PermissionDenied, "PermissionDenied"))
	ctx := context.Background()

	s, err := provider.Find(ctx, p, provider.String, "absent")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = provider.FindWithVersion(ctx, p, provider.String, "present", "7")
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = provider.Find(ctx, p, provider.String, "denied")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
	assert.Contains(t, err.Error(), "PermissionDenied")
}

func TestGCPSecretManagerListVersionIDs(t *testing.T) {
	t.Parallel()

	p, client := newGCP(t, "")
	for _, v := range []string{"a", "b", "c"} {
		client.AddSecretVersion(gcpProject, "rotated", []byte(v))
	}
	ctx := context.Background()

	ids, found, err := provider.ListVersionIDs(ctx, p, "rotated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	_, found, err = provider.ListVersionIDs(ctx, p, "never-created")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGCPSecretManagerConfig(t *testing.T) {
	t.Parallel()

	_, err := providers.NewGCPSecretManagerProvider("gcp",
		map[string]interface{}{"project_id": gcpProject, "payload": "json"},
		providers.WithGCPClient(fakes.NewFakeGCPSecretManagerClient()))
	assert.ErrorIs(t, err, provider.ErrInitialization)
	assert.Contains(t, err.Error(), "payload")
}

func TestGCPSecretManagerProjectFromEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("GCLOUD_PROJECT", "")
	t.Setenv("GCP_PROJECT", "")

	_, err := providers.NewGCPSecretManagerProvider("gcp", nil,
		providers.WithGCPClient(fakes.NewFakeGCPSecretManagerClient()))
	assert.ErrorIs(t, err, provider.ErrInitialization)

	t.Setenv("GCLOUD_PROJECT", "from-env")
	client := fakes.NewFakeGCPSecretManagerClient()
	client.AddSecretVersion("from-env", "k", []byte("v"))
	p, err := providers.NewGCPSecretManagerProvider("gcp", nil, providers.WithGCPClient(client))
	require.NoError(t, err)

	s, err := provider.Find(context.Background(), p, provider.String, "k")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestGCPSecretManagerEmulatorEndpoint(t *testing.T) {
	t.Parallel()

	p, err := providers.NewGCPSecretManagerProvider("gcp", map[string]interface{}{
		"project_id": gcpProject,
		"endpoint":   "localhost:8085",
	})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
