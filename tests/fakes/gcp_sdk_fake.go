package fakes

import (
	"context"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/secretsprovider/internal/providers/contracts"
)

type gcpVersion struct {
	number  int
	data    []byte
	crc     *int64
	created time.Time
}

// FakeGCPSecretManagerClient keeps secret versions per secret resource
// (projects/P/secrets/S) and resolves the "latest" alias.
type FakeGCPSecretManagerClient struct {
	mu       sync.Mutex
	versions map[string][]*gcpVersion

	// Errors maps secret resource names to errors to return
	Errors map[string]error
	// Requests records the Name of every AccessSecretVersion call.
	Requests []string
	// Closed is set by Close.
	Closed bool
}

// NewFakeGCPSecretManagerClient creates a new mock Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		versions: make(map[string][]*gcpVersion),
		Errors:   make(map[string]error),
	}
}

// AddSecretVersion stores data as the next version of the secret and returns
// its number.
func (f *FakeGCPSecretManagerClient) AddSecretVersion(project, secret string, data []byte) string {
	crc := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))
	return f.add(project, secret, data, &crc)
}

// AddCorruptSecretVersion stores data with a checksum that does not match.
func (f *FakeGCPSecretManagerClient) AddCorruptSecretVersion(project, secret string, data []byte) string {
	crc := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli))) + 1
	return f.add(project, secret, data, &crc)
}

func (f *FakeGCPSecretManagerClient) add(project, secret string, data []byte, crc *int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := secretResource(project, secret)
	stored := make([]byte, len(data))
	copy(stored, data)
	v := &gcpVersion{
		number:  len(f.versions[key]) + 1,
		data:    stored,
		crc:     crc,
		created: fakeEpoch.Add(time.Duration(len(f.versions[key])+1) * time.Second),
	}
	f.versions[key] = append(f.versions[key], v)
	return strconv.Itoa(v.number)
}

// AddError configures the mock to return an error for a secret resource
func (f *FakeGCPSecretManagerClient) AddError(project, secret string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[secretResource(project, secret)] = err
}

// AccessSecretVersion mocks the AccessSecretVersion operation
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Requests = append(f.Requests, req.GetName())

	idx := strings.LastIndex(req.GetName(), "/versions/")
	if idx == -1 {
		return nil, status.Error(codes.InvalidArgument, "malformed version name")
	}
	secret, version := req.GetName()[:idx], req.GetName()[idx+len("/versions/"):]
	if err, ok := f.Errors[secret]; ok {
		return nil, err
	}

	vs := f.versions[secret]
	if len(vs) == 0 {
		return nil, status.Errorf(codes.NotFound, "Secret [%s] not found or has no versions.", secret)
	}

	var found *gcpVersion
	if version == "latest" {
		found = vs[len(vs)-1]
	} else if n, err := strconv.Atoi(version); err == nil && n >= 1 && n <= len(vs) {
		found = vs[n-1]
	}
	if found == nil {
		return nil, status.Errorf(codes.NotFound, "Secret Version [%s] not found.", req.GetName())
	}

	return &secretmanagerpb.AccessSecretVersionResponse{
		Name: fmt.Sprintf("%s/versions/%d", secret, found.number),
		Payload: &secretmanagerpb.SecretPayload{
			Data:       found.data,
			DataCrc32C: found.crc,
		},
	}, nil
}

// ListSecretVersions mocks the ListSecretVersions operation. Like the service
// it lists newest first.
func (f *FakeGCPSecretManagerClient) ListSecretVersions(_ context.Context, req *secretmanagerpb.ListSecretVersionsRequest) contracts.SecretVersionIterator {
	f.mu.Lock()
	defer f.mu.Unlock()

	it := &FakeSecretVersionIterator{}
	if err, ok := f.Errors[req.GetParent()]; ok {
		it.err = err
		return it
	}
	vs, ok := f.versions[req.GetParent()]
	if !ok {
		it.err = status.Errorf(codes.NotFound, "Secret [%s] not found.", req.GetParent())
		return it
	}
	for i := len(vs) - 1; i >= 0; i-- {
		it.items = append(it.items, &secretmanagerpb.SecretVersion{
			Name:       fmt.Sprintf("%s/versions/%d", req.GetParent(), vs[i].number),
			CreateTime: timestamppb.New(vs[i].created),
			State:      secretmanagerpb.SecretVersion_ENABLED,
		})
	}
	return it
}

// Close mocks closing the client
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// FakeSecretVersionIterator yields a fixed list of versions.
type FakeSecretVersionIterator struct {
	items []*secretmanagerpb.SecretVersion
	err   error
}

// Next returns the next version or iterator.Done.
func (it *FakeSecretVersionIterator) Next() (*secretmanagerpb.SecretVersion, error) {
	if it.err != nil {
		return nil, it.err
	}
	if len(it.items) == 0 {
		return nil, iterator.Done
	}
	v := it.items[0]
	it.items = it.items[1:]
	return v, nil
}

func secretResource(project, secret string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", project, secret)
}
