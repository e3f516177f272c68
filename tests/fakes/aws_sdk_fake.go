package fakes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

// Staging labels Secrets Manager moves on every new version.
const (
	StageCurrent  = "AWSCURRENT"
	StagePrevious = "AWSPREVIOUS"
)

var fakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type smVersion struct {
	id      string
	text    *string
	binary  []byte
	created time.Time
	stages  []string
}

// FakeSecretsManagerClient keeps secret versions in memory and answers
// GetSecretValue, BatchGetSecretValue and ListSecretVersionIds the way the
// service does, including staging labels.
type FakeSecretsManagerClient struct {
	mu       sync.Mutex
	versions map[string][]*smVersion
	clock    int

	// Errors maps secret names to errors to return
	Errors map[string]error
	// BatchPageSize splits BatchGetSecretValue responses into pages when set.
	BatchPageSize int
	// BatchCalls counts BatchGetSecretValue requests.
	BatchCalls int
	// BatchGetSecretValueFunc allows custom behavior for BatchGetSecretValue
	BatchGetSecretValueFunc func(ctx context.Context, params *secretsmanager.BatchGetSecretValueInput) (*secretsmanager.BatchGetSecretValueOutput, error)
}

// NewFakeSecretsManagerClient creates a new mock Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		versions: make(map[string][]*smVersion),
		Errors:   make(map[string]error),
	}
}

// AddStringSecret stores a new current text version and returns its id.
func (f *FakeSecretsManagerClient) AddStringSecret(name, value string) string {
	return f.add(name, &smVersion{text: aws.String(value)})
}

// AddBinarySecret stores a new current binary version and returns its id.
func (f *FakeSecretsManagerClient) AddBinarySecret(name string, value []byte) string {
	data := make([]byte, len(value))
	copy(data, value)
	return f.add(name, &smVersion{binary: data})
}

// AddEmptySecret stores a version with neither SecretString nor SecretBinary.
func (f *FakeSecretsManagerClient) AddEmptySecret(name string) string {
	return f.add(name, &smVersion{})
}

func (f *FakeSecretsManagerClient) add(name string, v *smVersion) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clock++
	v.id = uuid.NewString()
	v.created = fakeEpoch.Add(time.Duration(f.clock) * time.Second)
	v.stages = []string{StageCurrent}

	for _, old := range f.versions[name] {
		switch {
		case hasStage(old.stages, StageCurrent):
			old.stages = []string{StagePrevious}
		case hasStage(old.stages, StagePrevious):
			old.stages = nil
		}
	}
	f.versions[name] = append(f.versions[name], v)
	return v.id
}

// ListSecretVersionIDs returns version ids oldest first.
func (f *FakeSecretsManagerClient) ListSecretVersionIDs(name string) ([]string, bool) {
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
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecretValue mocks the GetSecretValue operation
func (f *FakeSecretsManagerClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}

	v := f.lookup(name, aws.ToString(params.VersionId), aws.ToString(params.VersionStage))
	if v == nil {
		return nil, notFound(name)
	}
	return &secretsmanager.GetSecretValueOutput{
		ARN:           aws.String(arnFor(name)),
		Name:          aws.String(name),
		SecretString:  v.text,
		SecretBinary:  v.binary,
		VersionId:     aws.String(v.id),
		VersionStages: v.stages,
		CreatedDate:   aws.Time(v.created),
	}, nil
}

// BatchGetSecretValue mocks the BatchGetSecretValue operation. NextToken is
// the index of the next id to answer.
func (f *FakeSecretsManagerClient) BatchGetSecretValue(ctx context.Context, params *secretsmanager.BatchGetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.BatchGetSecretValueOutput, error) {
	f.mu.Lock()
	f.BatchCalls++
	custom := f.BatchGetSecretValueFunc
	f.mu.Unlock()
	if custom != nil {
		return custom(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(params.SecretIdList) > 20 {
		return nil, &smithy.GenericAPIError{Code: "ValidationException", Message: "too many secret ids"}
	}

	ids := params.SecretIdList
	start := 0
	if params.NextToken != nil {
		n, err := strconv.Atoi(*params.NextToken)
		if err != nil {
			return nil, &smithy.GenericAPIError{Code: "InvalidNextTokenException", Message: "bad token"}
		}
		start = n
	}
	end := len(ids)
	if f.BatchPageSize > 0 && start+f.BatchPageSize < end {
		end = start + f.BatchPageSize
	}

	out := &secretsmanager.BatchGetSecretValueOutput{}
	for _, id := range ids[start:end] {
		if err, ok := f.Errors[id]; ok {
			code := "InternalServiceError"
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				code = apiErr.ErrorCode()
			}
			out.Errors = append(out.Errors, types.APIErrorType{
				SecretId:  aws.String(id),
				ErrorCode: aws.String(code),
				Message:   aws.String(err.Error()),
			})
			continue
		}
		v := f.lookup(id, "", "")
		if v == nil {
			out.Errors = append(out.Errors, types.APIErrorType{
				SecretId:  aws.String(id),
				ErrorCode: aws.String("ResourceNotFoundException"),
				Message:   aws.String("Secrets Manager can't find the specified secret."),
			})
			continue
		}
		out.SecretValues = append(out.SecretValues, types.SecretValueEntry{
			ARN:           aws.String(arnFor(id)),
			Name:          aws.String(id),
			SecretString:  v.text,
			SecretBinary:  v.binary,
			VersionId:     aws.String(v.id),
			VersionStages: v.stages,
			CreatedDate:   aws.Time(v.created),
		})
	}
	if end < len(ids) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

// ListSecretVersionIds mocks the ListSecretVersionIds operation. Like the
// service it lists newest first.
func (f *FakeSecretsManagerClient) ListSecretVersionIds(_ context.Context, params *secretsmanager.ListSecretVersionIdsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretVersionIdsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	vs, ok := f.versions[name]
	if !ok {
		return nil, notFound(name)
	}

	out := &secretsmanager.ListSecretVersionIdsOutput{
		ARN:  aws.String(arnFor(name)),
		Name: aws.String(name),
	}
	for i := len(vs) - 1; i >= 0; i-- {
		out.Versions = append(out.Versions, types.SecretVersionsListEntry{
			VersionId:     aws.String(vs[i].id),
			VersionStages: vs[i].stages,
			CreatedDate:   aws.Time(vs[i].created),
		})
	}
	return out, nil
}

func (f *FakeSecretsManagerClient) lookup(name, versionID, stage string) *smVersion {
	vs := f.versions[name]
	switch {
	case versionID != "":
		for _, v := range vs {
			if v.id == versionID {
				return v
			}
		}
		return nil
	case stage == "":
		stage = StageCurrent
	}
	for _, v := range vs {
		if hasStage(v.stages, stage) {
			return v
		}
	}
	return nil
}

func hasStage(stages []string, stage string) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

func notFound(name string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
	}
}

func arnFor(name string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:us-east-1:123456789012:secret:%s", name)
}

type ssmVersion struct {
	value   string
	version int64
	labels  []string
}

// FakeSSMClient keeps parameter history in memory and answers GetParameter
// with name:version and name:label selectors.
type FakeSSMClient struct {
	mu         sync.Mutex
	parameters map[string][]ssmVersion

	// Errors maps parameter names to errors to return
	Errors map[string]error
	// HistoryPageSize splits GetParameterHistory responses into pages when set.
	HistoryPageSize int
	// Requests records the Name of every GetParameter call.
	Requests []string
}

// NewFakeSSMClient creates a new mock SSM client
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		parameters: make(map[string][]ssmVersion),
		Errors:     make(map[string]error),
	}
}

// PutParameter appends a version and returns its number.
func (f *FakeSSMClient) PutParameter(name, value string, labels ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := ssmVersion{value: value, version: int64(len(f.parameters[name]) + 1), labels: labels}
	f.parameters[name] = append(f.parameters[name], v)
	return v.version
}

// AddError configures the mock to return an error for a specific parameter
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter mocks the GetParameter operation
func (f *FakeSSMClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	selector := aws.ToString(params.Name)
	f.Requests = append(f.Requests, selector)

	name, sel := selector, ""
	if i := strings.LastIndex(selector, ":"); i > 0 {
		name, sel = selector[:i], selector[i+1:]
	}
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}

	history, ok := f.parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found")}
	}

	v, ok := history[len(history)-1], true
	if sel != "" {
		v, ok = findSSMVersion(history, sel)
	}
	if !ok {
		return nil, &ssmtypes.ParameterVersionNotFound{Message: aws.String("version not found")}
	}

	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    aws.String(name),
			Value:   aws.String(v.value),
			Version: v.version,
			Type:    ssmtypes.ParameterTypeSecureString,
		},
	}, nil
}

// GetParameterHistory mocks the GetParameterHistory operation, oldest first.
func (f *FakeSSMClient) GetParameterHistory(_ context.Context, params *ssm.GetParameterHistoryInput, _ ...func(*ssm.Options)) (*ssm.GetParameterHistoryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	history, ok := f.parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found")}
	}

	start := 0
	if params.NextToken != nil {
		start, _ = strconv.Atoi(*params.NextToken)
	}
	end := len(history)
	if f.HistoryPageSize > 0 && start+f.HistoryPageSize < end {
		end = start + f.HistoryPageSize
	}

	out := &ssm.GetParameterHistoryOutput{}
	for _, v := range history[start:end] {
		out.Parameters = append(out.Parameters, ssmtypes.ParameterHistory{
			Name:    aws.String(name),
			Value:   aws.String(v.value),
			Version: v.version,
			Labels:  v.labels,
		})
	}
	if end < len(history) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func findSSMVersion(history []ssmVersion, sel string) (ssmVersion, bool) {
	if n, err := strconv.ParseInt(sel, 10, 64); err == nil {
		for _, v := range history {
			if v.version == n {
				return v, true
			}
		}
		return ssmVersion{}, false
	}
	for _, v := range history {
		if hasStage(v.labels, sel) {
			return v, true
		}
	}
	return ssmVersion{}, false
}
