package fakes

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/google/uuid"
)

// FakeVaultURL is the vault every fake secret id points at.
const FakeVaultURL = "https://test-vault.vault.azure.net"

type azureVersion struct {
	id          string
	value       string
	contentType *string
	created     time.Time
}

// FakeAzureKeyVaultClient keeps secret versions in memory and serves them
// through GetSecret and the versions pager.
type FakeAzureKeyVaultClient struct {
	mu       sync.Mutex
	versions map[string][]*azureVersion
	clock    int

	// Errors maps secret names to errors to return
	Errors map[string]error
	// PageSize splits version listings into pages when set.
	PageSize int
}

// NewFakeAzureKeyVaultClient creates a new mock Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		versions: make(map[string][]*azureVersion),
		Errors:   make(map[string]error),
	}
}

// AddStringSecret stores a new text version and returns its id.
func (f *FakeAzureKeyVaultClient) AddStringSecret(name, value string) string {
	return f.add(name, value, nil)
}

// AddBinarySecret stores value base64 encoded with the octet-stream content
// type and returns the version id.
func (f *FakeAzureKeyVaultClient) AddBinarySecret(name string, value []byte) string {
	return f.add(name, base64.StdEncoding.EncodeToString(value), to.Ptr("application/octet-stream"))
}

// AddSecretWithContentType stores a raw value with the given content type.
func (f *FakeAzureKeyVaultClient) AddSecretWithContentType(name, value, contentType string) string {
	return f.add(name, value, to.Ptr(contentType))
}

func (f *FakeAzureKeyVaultClient) add(name, value string, contentType *string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clock++
	v := &azureVersion{
		id:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		value:       value,
		contentType: contentType,
		created:     fakeEpoch.Add(time.Duration(f.clock) * time.Second),
	}
	f.versions[name] = append(f.versions[name], v)
	return v.id
}

// ListSecretVersionIDs returns version ids oldest first.
func (f *FakeAzureKeyVaultClient) ListSecretVersionIDs(name string) ([]string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	vs, ok := f.versions[name]
	if !ok {
		return nil, false
	}
	ids := make([]string, len(vs))
	for i, v := range vs {
		ids[i] = v.id
	}
	return ids, true
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecret mocks the GetSecret operation. An empty version reads the latest.
func (f *FakeAzureKeyVaultClient) GetSecret(_ context.Context, name string, version string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}

	vs := f.versions[name]
	var found *azureVersion
	if version == "" && len(vs) > 0 {
		found = vs[len(vs)-1]
	}
	for _, v := range vs {
		if version != "" && v.id == version {
			found = v
		}
	}
	if found == nil {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	id := azsecrets.ID(FakeVaultURL + "/secrets/" + name + "/" + found.id)
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:          &id,
			Value:       to.Ptr(found.value),
			ContentType: found.contentType,
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
				Created: to.Ptr(found.created),
				Updated: to.Ptr(found.created),
			},
		},
	}, nil
}

// NewListSecretPropertiesVersionsPager mocks the versions pager. Versions of
// a name that never existed come back as an empty listing, like the service.
func (f *FakeAzureKeyVaultClient) NewListSecretPropertiesVersionsPager(name string, _ *azsecrets.ListSecretPropertiesVersionsOptions) *runtime.Pager[azsecrets.ListSecretPropertiesVersionsResponse] {
	f.mu.Lock()
	listErr := f.Errors[name]
	var props []*azsecrets.SecretProperties
	// Newest first, so callers have to sort.
	vs := f.versions[name]
	for i := len(vs) - 1; i >= 0; i-- {
		id := azsecrets.ID(FakeVaultURL + "/secrets/" + name + "/" + vs[i].id)
		props = append(props, &azsecrets.SecretProperties{
			ID:          &id,
			ContentType: vs[i].contentType,
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
				Created: to.Ptr(vs[i].created),
			},
		})
	}
	pageSize := f.PageSize
	f.mu.Unlock()

	if pageSize <= 0 {
		pageSize = len(props) + 1
	}

	offset := 0
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesVersionsResponse]{
		More: func(page azsecrets.ListSecretPropertiesVersionsResponse) bool {
			return page.NextLink != nil
		},
		Fetcher: func(_ context.Context, _ *azsecrets.ListSecretPropertiesVersionsResponse) (azsecrets.ListSecretPropertiesVersionsResponse, error) {
			if listErr != nil {
				return azsecrets.ListSecretPropertiesVersionsResponse{}, listErr
			}
			end := min(offset+pageSize, len(props))
			page := azsecrets.ListSecretPropertiesVersionsResponse{
				SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{Value: props[offset:end]},
			}
			offset = end
			if offset < len(props) {
				page.NextLink = to.Ptr(FakeVaultURL + "/secrets/" + name + "/versions?page=next")
			}
			return page, nil
		},
	})
}

func azureResponseError(status int, code string) error {
	return &azcore.ResponseError{
		StatusCode: status,
		ErrorCode:  code,
		RawResponse: &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Header:     http.Header{},
			Body:       http.NoBody,
			Request: &http.Request{
				Method: http.MethodGet,
				URL:    &url.URL{Scheme: "https", Host: "test-vault.vault.azure.net", Path: "/secrets"},
			},
		},
	}
}

// AzureNotFoundError creates a mock Azure not found error
func AzureNotFoundError(secretName string) error {
	return azureResponseError(http.StatusNotFound, "SecretNotFound")
}

// AzureForbiddenError creates a mock Azure forbidden error
func AzureForbiddenError() error {
	return azureResponseError(http.StatusForbidden, "Forbidden")
}

// AzureThrottledError creates a mock Azure throttled error
func AzureThrottledError() error {
	return azureResponseError(http.StatusTooManyRequests, "TooManyRequests")
}
