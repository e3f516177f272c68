package providers_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsprovider/internal/providers"
	"github.com/systmms/secretsprovider/pkg/provider"
	"github.com/systmms/secretsprovider/tests/fakes"
)

var akeylessConfig = map[string]interface{}{
	"access_id": "p-abc123",
	"auth": map[string]interface{}{
		"method":     "api_key",
		"access_key": "not-a-real-key",
	},
}

func newAkeyless(t *testing.T) (*providers.AkeylessProvider, *fakes.FakeAkeylessClient) {
	t.Helper()
	client := fakes.NewFakeAkeylessClient()
	p, err := providers.NewAkeylessProviderWithClient("akeyless-test", akeylessConfig, client)
	require.NoError(t, err)
	return p, client
}

func TestAkeylessFetch(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	client.SetSecret("/prod/db/password", "old")
	client.SetSecret("/prod/db/password", "new")

	tests := []struct {
		name        string
		secret      string
		version     string
		wantValue   string
		wantVersion string
		wantFound   bool
	}{
		{name: "latest", secret: "/prod/db/password", wantValue: "new", wantVersion: "2", wantFound: true},
		{name: "without leading slash", secret: "prod/db/password", wantValue: "new", wantVersion: "2", wantFound: true},
		{name: "pinned", secret: "/prod/db/password", version: "1", wantValue: "old", wantVersion: "1", wantFound: true},
		{name: "reference suffix", secret: "/prod/db/password@v1", wantValue: "old", wantVersion: "1", wantFound: true},
		{name: "version past the end", secret: "/prod/db/password", version: "3"},
		{name: "version not a number", secret: "/prod/db/password", version: "no-such-version"},
		{name: "version zero", secret: "/prod/db/password", version: "0"},
		{name: "missing item", secret: "/prod/missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := provider.FindWithVersion(context.Background(), p, provider.String, tt.secret, tt.version)
			require.NoError(t, err)
			if !tt.wantFound {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			assert.Equal(t, tt.secret, s.Name())
			assert.Equal(t, tt.wantVersion, s.Version())
			value, err := s.Reveal()
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestAkeylessIsTextOnly(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	client.SetSecret("/k", "v")

	_, err := provider.Find(context.Background(), p, provider.Bytes, "/k")
	assert.ErrorIs(t, err, provider.ErrInvalidType)
}

func TestAkeylessTokenIsCached(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	client.SetSecret("/a", "1")
	client.SetSecret("/b", "2")
	ctx := context.Background()

	for _, name := range []string{"/a", "/b", "/a"} {
		s, err := provider.Find(ctx, p, provider.String, name)
		require.NoError(t, err)
		require.NotNil(t, s)
	}

	assert.Equal(t, 1, client.AuthCallCount)
	assert.Equal(t, 3, client.GetCallCount)
	assert.Equal(t, []string{"fake-akeyless-token", "fake-akeyless-token", "fake-akeyless-token"}, client.Tokens)
}

func TestAkeylessUnauthorizedDropsToken(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	client.SetSecret("/a", "1")
	ctx := context.Background()

	_, err := provider.Find(ctx, p, provider.String, "/a")
	require.NoError(t, err)
	require.Equal(t, 1, client.AuthCallCount)

	client.GetErr = fmt.Errorf("token expired: %w", providers.ErrAkeylessUnauthorized)
	_, err = provider.Find(ctx, p, provider.String, "/a")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
	assert.ErrorIs(t, err, providers.ErrAkeylessUnauthorized)

	var akErr *providers.AkeylessError
	require.True(t, errors.As(err, &akErr))
	assert.Equal(t, "fetch", akErr.Op)
	assert.Equal(t, "/a", akErr.Path)

	client.GetErr = nil
	s, err := provider.Find(ctx, p, provider.String, "/a")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 2, client.AuthCallCount)
}

func TestAkeylessAuthFailure(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	client.AuthErr = fakes.ErrFakeAkeylessUnauthorized

	_, err := provider.Find(context.Background(), p, provider.String, "/a")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
	assert.Contains(t, err.Error(), "akeyless auth error")
	assert.Error(t, p.Validate(context.Background()))
}

func TestAkeylessListVersionIDs(t *testing.T) {
	t.Parallel()

	p, client := newAkeyless(t)
	for _, v := range []string{"a", "b", "c"} {
		client.SetSecret("/rotated", v)
	}
	ctx := context.Background()

	ids, found, err := provider.ListVersionIDs(ctx, p, "rotated")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	_, found, err = provider.ListVersionIDs(ctx, p, "/never-created")
	require.NoError(t, err)
	assert.False(t, found)

	client.DescribeErr = errors.New("gateway timeout")
	_, _, err = provider.ListVersionIDs(ctx, p, "/rotated")
	assert.ErrorIs(t, err, provider.ErrProviderFailed)
}

func TestAkeylessConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing access key",
			config:  map[string]interface{}{"access_id": "p-1"},
			wantErr: "access_key is required",
		},
		{
			name: "unsupported method",
			config: map[string]interface{}{
				"access_id": "p-1",
				"auth":      map[string]interface{}{"method": "password"},
			},
			wantErr: "unsupported authentication method",
		},
		{
			name: "missing access id",
			config: map[string]interface{}{
				"auth": map[string]interface{}{"method": "aws_iam"},
			},
			wantErr: "access_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := providers.NewAkeylessProviderWithClient("akeyless", tt.config, fakes.NewFakeAkeylessClient())
			require.Error(t, err)
			assert.ErrorIs(t, err, provider.ErrInitialization)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	p, err := providers.NewAkeylessProviderWithClient("akeyless", map[string]interface{}{
		"access_id": "p-1",
		"auth":      map[string]interface{}{"method": "gcp", "gcp_audience": "akeyless.io"},
	}, fakes.NewFakeAkeylessClient())
	require.NoError(t, err)
	assert.Equal(t, "akeyless", p.Name())
}

func TestParseAkeylessReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in          string
		wantPath    string
		wantVersion int
		wantErr     bool
	}{
		{in: "/prod/api-key", wantPath: "/prod/api-key"},
		{in: "prod/api-key", wantPath: "/prod/api-key"},
		{in: "/prod/api-key@v4", wantPath: "/prod/api-key", wantVersion: 4},
		{in: "/prod/user@vault", wantPath: "/prod/user@vault"},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			ref, err := providers.ParseAkeylessReference(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, ref.Path)
			if tt.wantVersion == 0 {
				assert.Nil(t, ref.Version)
			} else {
				require.NotNil(t, ref.Version)
				assert.Equal(t, tt.wantVersion, *ref.Version)
			}
		})
	}
}
