package providers

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// AWSConfig holds the connection settings shared by the AWS providers.
type AWSConfig struct {
	Region   string
	Endpoint string // Optional custom endpoint for LocalStack or testing
	Profile  string

	// Static credentials, mostly for LocalStack.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// RoleARN is assumed on top of the base credentials. With
	// WebIdentityTokenFile set the role is assumed with web identity instead.
	RoleARN              string
	WebIdentityTokenFile string
	RoleSessionName      string
	ExternalID           string

	// MaxAttempts bounds the SDK retryer. Zero keeps the SDK default.
	MaxAttempts int
}

func parseAWSConfig(providerType string, config map[string]interface{}) (AWSConfig, error) {
	c := AWSConfig{
		Region:               stringOption(config, "region"),
		Endpoint:             stringOption(config, "endpoint"),
		Profile:              stringOption(config, "profile"),
		AccessKeyID:          stringOption(config, "access_key_id"),
		SecretAccessKey:      stringOption(config, "secret_access_key"),
		SessionToken:         stringOption(config, "session_token"),
		RoleARN:              stringOption(config, "role_arn"),
		WebIdentityTokenFile: stringOption(config, "web_identity_token_file"),
		RoleSessionName:      stringOption(config, "role_session_name"),
		ExternalID:           stringOption(config, "external_id"),
	}
	if c.Region == "" {
		c.Region = DefaultAWSRegion
	}

	attempts, err := intOption(config, "max_attempts")
	if err != nil {
		return AWSConfig{}, initError(providerType, "max_attempts", config["max_attempts"], err.Error(), "Use a positive integer such as 3")
	}
	if attempts < 0 {
		return AWSConfig{}, initError(providerType, "max_attempts", attempts, "must not be negative", "Use a positive integer such as 3")
	}
	c.MaxAttempts = attempts

	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return AWSConfig{}, initError(providerType, "access_key_id", nil,
			"access_key_id and secret_access_key must be set together",
			"Set both keys, or neither to use the default credential chain")
	}
	if c.WebIdentityTokenFile != "" && c.RoleARN == "" {
		return AWSConfig{}, initError(providerType, "role_arn", nil,
			"web_identity_token_file requires role_arn",
			"Set role_arn to the role the token is allowed to assume")
	}
	return c, nil
}

// load builds an aws.Config from the settings. The default credential chain
// already honors AWS_ROLE_ARN and AWS_WEB_IDENTITY_TOKEN_FILE; RoleARN here
// layers an explicit role on top of it.
func (c AWSConfig) load(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(c.Profile))
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}
	if c.MaxAttempts > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(c.MaxAttempts))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	if c.RoleARN == "" {
		return cfg, nil
	}

	stsClient := sts.NewFromConfig(cfg, func(o *sts.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
		}
	})
	if c.WebIdentityTokenFile != "" {
		cfg.Credentials = aws.NewCredentialsCache(stscreds.NewWebIdentityRoleProvider(
			stsClient, c.RoleARN, stscreds.IdentityTokenFile(c.WebIdentityTokenFile),
			func(o *stscreds.WebIdentityRoleOptions) {
				if c.RoleSessionName != "" {
					o.RoleSessionName = c.RoleSessionName
				}
			},
		))
		return cfg, nil
	}
	cfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(
		stsClient, c.RoleARN,
		func(o *stscreds.AssumeRoleOptions) {
			if c.RoleSessionName != "" {
				o.RoleSessionName = c.RoleSessionName
			}
			if c.ExternalID != "" {
				o.ExternalID = aws.String(c.ExternalID)
			}
		},
	))
	return cfg, nil
}

// awsErrorCode returns the service error code of err, or "" when err did not
// come from an AWS API.
func awsErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
