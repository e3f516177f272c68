package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
)

// akeylessTokenTTL is how long an Akeyless token is reused. Tokens last 30
// minutes; refreshing at 25 keeps a margin.
const akeylessTokenTTL = 25 * time.Minute

// akeylessSDKClient implements AkeylessClient using the official SDK
type akeylessSDKClient struct {
	apiClient *akeyless.APIClient
	config    AkeylessConfig
}

// newAkeylessSDKClient creates a new SDK client for Akeyless
func newAkeylessSDKClient(cfg AkeylessConfig) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: cfg.GatewayURL},
	}
	configuration.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &akeylessSDKClient{
		apiClient: akeyless.NewAPIClient(configuration),
		config:    cfg,
	}
}

// Authenticate obtains an access token from Akeyless
func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(c.config.AccessID)

	switch c.config.Auth.Method {
	case "api_key", "":
		authBody.SetAccessKey(c.config.Auth.AccessKey)
	case "aws_iam":
		authBody.SetAccessType("aws_iam")
	case "azure_ad":
		authBody.SetAccessType("azure_ad")
		if c.config.Auth.AzureADObjectID != "" {
			// CloudId is used for Azure AD object ID
			authBody.SetCloudId(c.config.Auth.AzureADObjectID)
		}
	case "gcp":
		authBody.SetAccessType("gcp")
		if c.config.Auth.GCPAudience != "" {
			authBody.SetGcpAudience(c.config.Auth.GCPAudience)
		}
	default:
		return "", 0, fmt.Errorf("unsupported authentication method: %s", c.config.Auth.Method)
	}

	authRes, resp, err := c.apiClient.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("%s authentication failed: %w", authMethodName(c.config.Auth.Method), akeylessHTTPError(resp, err))
	}

	return authRes.GetToken(), akeylessTokenTTL, nil
}

// GetSecret retrieves a secret by path. Without a version the item is
// described first so the value and the reported version belong together.
func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string, version *int) (*contracts.AkeylessSecret, error) {
	if version == nil {
		meta, err := c.DescribeItem(ctx, token, path)
		if err != nil {
			return nil, err
		}
		if meta.LastVersion > 0 {
			v := meta.LastVersion
			version = &v
		}
	}

	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)
	if version != nil {
		body.SetVersion(int32(*version))
	}

	res, resp, err := c.apiClient.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return nil, akeylessHTTPError(resp, err)
	}

	// GetSecretValue returns a map of path -> value
	value, ok := res[path]
	if !ok {
		return nil, ErrAkeylessSecretNotFound
	}
	var text string
	switch v := any(value).(type) {
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("unexpected value type %T for %s", v, path)
	}

	secret := &contracts.AkeylessSecret{Path: path, Value: text}
	if version != nil {
		secret.Version = *version
	}
	return secret, nil
}

// DescribeItem gets metadata about a secret
func (c *akeylessSDKClient) DescribeItem(ctx context.Context, token, path string) (*contracts.AkeylessMetadata, error) {
	body := akeyless.NewDescribeItem(path)
	body.SetToken(token)

	res, resp, err := c.apiClient.V2Api.DescribeItem(ctx).Body(*body).Execute()
	if err != nil {
		return nil, akeylessHTTPError(resp, err)
	}

	meta := &contracts.AkeylessMetadata{
		Path:     path,
		ItemType: res.GetItemType(),
	}
	if res.ModificationDate != nil {
		meta.LastModified = *res.ModificationDate
	}
	if res.LastVersion != nil {
		meta.LastVersion = int(*res.LastVersion)
	}
	if res.ItemVersions != nil {
		for _, v := range *res.ItemVersions {
			meta.Versions = append(meta.Versions, int(v.GetVersion()))
		}
	}
	if res.ItemTags != nil {
		meta.Tags = *res.ItemTags
	}
	return meta, nil
}

// akeylessHTTPError maps the HTTP status of a failed call to a sentinel error.
func akeylessHTTPError(resp *http.Response, err error) error {
	if resp == nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrAkeylessSecretNotFound, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrAkeylessUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAkeylessPermission, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrAkeylessRateLimited, err)
	default:
		return err
	}
}

func authMethodName(method string) string {
	switch method {
	case "", "api_key":
		return "api key"
	case "aws_iam":
		return "aws iam"
	case "azure_ad":
		return "azure ad"
	default:
		return method
	}
}

// Ensure akeylessSDKClient implements contracts.AkeylessClient
var _ contracts.AkeylessClient = (*akeylessSDKClient)(nil)
