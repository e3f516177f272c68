package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Seeder adds secret versions to the store behind a Provider under test. Each
// call appends a new current version and returns its id.
type Seeder interface {
	AddStringSecret(name, value string) string
	AddBinarySecret(name string, value []byte) string
	ListSecretVersionIDs(name string) ([]string, bool)
}

// ContractTest describes a provider to run through the shared contract.
type ContractTest struct {
	// Setup returns an empty provider and the seeder that writes to its store.
	Setup func(t *testing.T) (Provider, Seeder)
}

// Seed data used by the contract suite.
const (
	Secret1Name = "secret-1"
	Secret1     = "84cd01f7f3e07756be8c3e133275616308921356f30fe0df63cd56fdf26da8ae"
	Secret2Name = "secret-2"
	Secret2     = "4ce6a2e359976bfd186eb24c19fe0223a241add277b649bb9e5e8464ee36a9d7"
	Secret3Name = "secret-3"
	Secret3     = "498181c80a3ecd8c2a9a05c5570f62990e5aae0e2d25743178300d7f5e9bf9d2"
	Secret4Name = "secret-4"
	Secret4     = "54a5d2d0ee46c477f4a5b4c2570099ac91aa98dcadd033c460f46853fc362f9d"
	Secret5Name = "secret-5"
	Secret5     = "9c98e5d1cd7582e11a32646216a64adf62a8c484901aa5c9fd722fc7465a19f0"
	Secret6Name = "secret-6"
	Secret6     = "0ae4b3a49454a3a8b9f7c1eed386c6c762283023d725d9591521718dfe9764a1"

	VersionedSecretName = "versioned-secret"
	VersionedSecretV1   = "51cc0c173419b77cedcaf322411262018cd012a95920a3c4d7ae577ff76c4b92"
	VersionedSecretV2   = "a329ca5df23159a7fa6400f919193fb02b59bc9cdc7d6527f1ca2cb7ed668121"
)

// SeedContractData writes the contract seed data through s.
func SeedContractData(s Seeder) {
	s.AddStringSecret(Secret1Name, Secret1)
	s.AddStringSecret(Secret2Name, Secret2)
	s.AddStringSecret(Secret3Name, Secret3)
	s.AddBinarySecret(Secret4Name, []byte(Secret4))
	s.AddBinarySecret(Secret5Name, []byte(Secret5))
	s.AddBinarySecret(Secret6Name, []byte(Secret6))
	s.AddStringSecret(VersionedSecretName, VersionedSecretV1)
	s.AddStringSecret(VersionedSecretName, VersionedSecretV2)
}

// RunContractTests runs the behavioral contract every provider must satisfy.
func RunContractTests(t *testing.T, contract ContractTest) {
	setup := func(t *testing.T) (Provider, Seeder) {
		t.Helper()
		p, s := contract.Setup(t)
		SeedContractData(s)
		return p, s
	}

	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			p, _ := setup(t)
			if p.Name() == "" {
				t.Error("Provider.Name() returned empty string")
			}
		})
		t.Run("ReadsStringSecrets", func(t *testing.T) {
			p, _ := setup(t)
			testReadsStringSecrets(t, p)
		})
		t.Run("ReadsBinarySecrets", func(t *testing.T) {
			p, _ := setup(t)
			testReadsBinarySecrets(t, p)
		})
		t.Run("TypeMismatch", func(t *testing.T) {
			p, _ := setup(t)
			testTypeMismatch(t, p)
		})
		t.Run("Absence", func(t *testing.T) {
			p, _ := setup(t)
			testAbsence(t, p)
		})
		t.Run("CurrentVersion", func(t *testing.T) {
			p, s := setup(t)
			testCurrentVersion(t, p, s)
		})
		t.Run("PinnedVersions", func(t *testing.T) {
			p, s := setup(t)
			testPinnedVersions(t, p, s)
		})
		t.Run("BatchAllExisting", func(t *testing.T) {
			p, _ := setup(t)
			testBatchAllExisting(t, p)
		})
		t.Run("BatchSomeMissing", func(t *testing.T) {
			p, _ := setup(t)
			testBatchSomeMissing(t, p)
		})
		t.Run("BatchMixedTypes", func(t *testing.T) {
			p, _ := setup(t)
			testBatchMixedTypes(t, p)
		})
		t.Run("Redaction", func(t *testing.T) {
			p, _ := setup(t)
			testRedaction(t, p)
		})
		t.Run("RevealOnce", func(t *testing.T) {
			p, _ := setup(t)
			testRevealOnce(t, p)
		})
	})
}

func mustFind[T any](t *testing.T, p Provider, dec Decoder[T], name string) *Secret[T] {
	t.Helper()
	s, err := Find(context.Background(), p, dec, name)
	if err != nil {
		t.Fatalf("Find(%q) failed: %v", name, err)
	}
	if s == nil {
		t.Fatalf("Find(%q) returned no secret", name)
	}
	return s
}

func mustReveal[T any](t *testing.T, s *Secret[T]) T {
	t.Helper()
	v, err := s.Reveal()
	if err != nil {
		t.Fatalf("Reveal() on %s failed: %v", s.Name(), err)
	}
	return v
}

func testReadsStringSecrets(t *testing.T, p Provider) {
	for name, want := range map[string]string{
		Secret1Name: Secret1,
		Secret2Name: Secret2,
		Secret3Name: Secret3,
	} {
		s := mustFind(t, p, String, name)
		if s.Name() != name {
			t.Errorf("Name() = %q, want %q", s.Name(), name)
		}
		if got := mustReveal(t, s); got != want {
			t.Errorf("%s revealed %q, want %q", name, got, want)
		}
	}
}

func testReadsBinarySecrets(t *testing.T, p Provider) {
	for name, want := range map[string]string{
		Secret4Name: Secret4,
		Secret5Name: Secret5,
		Secret6Name: Secret6,
	} {
		s := mustFind(t, p, Bytes, name)
		if s.Name() != name {
			t.Errorf("Name() = %q, want %q", s.Name(), name)
		}
		if got := mustReveal(t, s); !bytes.Equal(got, []byte(want)) {
			t.Errorf("%s revealed %q, want %q", name, got, want)
		}
	}
}

func testTypeMismatch(t *testing.T, p Provider) {
	ctx := context.Background()

	_, err := Find(ctx, p, String, Secret4Name)
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("reading binary as string: got %v, want InvalidType", err)
	}
	_, err = Find(ctx, p, Bytes, Secret1Name)
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("reading string as binary: got %v, want InvalidType", err)
	}
	if err != nil && !strings.Contains(err.Error(), Secret1Name) {
		t.Errorf("InvalidType error %q does not name the secret", err)
	}
}

func testAbsence(t *testing.T, p Provider) {
	ctx := context.Background()

	s, err := Find(ctx, p, Bytes, "non-existent-secret")
	if err != nil || s != nil {
		t.Errorf("Find(missing) = %v, %v; want nil, nil", s, err)
	}
	sv, err := FindWithVersion(ctx, p, String, Secret1Name, "no-such-version")
	if err != nil || sv != nil {
		t.Errorf("FindWithVersion(missing version) = %v, %v; want nil, nil", sv, err)
	}
	sv, err = FindWithVersion(ctx, p, String, "non-existent-secret", "no-such-version")
	if err != nil || sv != nil {
		t.Errorf("FindWithVersion(missing name) = %v, %v; want nil, nil", sv, err)
	}
}

func testCurrentVersion(t *testing.T, p Provider, s Seeder) {
	ids, ok := s.ListSecretVersionIDs(VersionedSecretName)
	if !ok || len(ids) != 2 {
		t.Fatalf("ListSecretVersionIDs(%q) = %v, %v; want two ids", VersionedSecretName, ids, ok)
	}

	current := mustFind(t, p, String, VersionedSecretName)
	if current.Version() != ids[1] {
		t.Errorf("current version = %q, want %q", current.Version(), ids[1])
	}
	if got := mustReveal(t, current); got != VersionedSecretV2 {
		t.Errorf("current value = %q, want %q", got, VersionedSecretV2)
	}

	id := s.AddStringSecret(VersionedSecretName, "third")
	latest := mustFind(t, p, String, VersionedSecretName)
	if latest.Version() != id {
		t.Errorf("after add, current version = %q, want %q", latest.Version(), id)
	}
	if got := mustReveal(t, latest); got != "third" {
		t.Errorf("after add, current value = %q, want %q", got, "third")
	}
}

func testPinnedVersions(t *testing.T, p Provider, s Seeder) {
	ctx := context.Background()
	ids, ok := s.ListSecretVersionIDs(VersionedSecretName)
	if !ok || len(ids) != 2 {
		t.Fatalf("ListSecretVersionIDs(%q) = %v, %v; want two ids", VersionedSecretName, ids, ok)
	}

	for i, want := range []string{VersionedSecretV1, VersionedSecretV2} {
		sec, err := FindWithVersion(ctx, p, String, VersionedSecretName, ids[i])
		if err != nil || sec == nil {
			t.Fatalf("FindWithVersion(%q) = %v, %v", ids[i], sec, err)
		}
		if sec.Version() != ids[i] {
			t.Errorf("Version() = %q, want %q", sec.Version(), ids[i])
		}
		if got := mustReveal(t, sec); got != want {
			t.Errorf("version %d revealed %q, want %q", i, got, want)
		}
	}
}

func testBatchAllExisting(t *testing.T, p Provider) {
	got, err := BatchFind(context.Background(), p, String, []string{Secret1Name, Secret2Name, Secret3Name})
	if err != nil {
		t.Fatalf("BatchFind failed: %v", err)
	}
	want := map[string]string{Secret1Name: Secret1, Secret2Name: Secret2, Secret3Name: Secret3}
	if len(got) != len(want) {
		t.Fatalf("BatchFind returned %d secrets, want %d", len(got), len(want))
	}
	for name, v := range want {
		s, ok := got[name]
		if !ok {
			t.Errorf("BatchFind missing %q", name)
			continue
		}
		if r := mustReveal(t, s); r != v {
			t.Errorf("%s revealed %q, want %q", name, r, v)
		}
	}
}

func testBatchSomeMissing(t *testing.T, p Provider) {
	got, err := BatchFind(context.Background(), p, String, []string{Secret1Name, "missing", Secret3Name, Secret1Name})
	if err != nil {
		t.Fatalf("BatchFind failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BatchFind returned %d secrets, want 2", len(got))
	}
	if _, ok := got["missing"]; ok {
		t.Error("BatchFind returned an entry for a missing name")
	}
	if r := mustReveal(t, got[Secret1Name]); r != Secret1 {
		t.Errorf("%s revealed %q", Secret1Name, r)
	}
	if r := mustReveal(t, got[Secret3Name]); r != Secret3 {
		t.Errorf("%s revealed %q", Secret3Name, r)
	}
}

func testBatchMixedTypes(t *testing.T, p Provider) {
	ctx := context.Background()
	names := []string{Secret1Name, Secret4Name}

	if got, err := BatchFind(ctx, p, Bytes, names); !errors.Is(err, ErrInvalidType) {
		t.Errorf("BatchFind[[]byte] = %v, %v; want InvalidType", got, err)
	}
	if got, err := BatchFind(ctx, p, String, names); !errors.Is(err, ErrInvalidType) {
		t.Errorf("BatchFind[string] = %v, %v; want InvalidType", got, err)
	}
}

func testRedaction(t *testing.T, p Provider) {
	s := mustFind(t, p, String, Secret1Name)

	var rendered []string
	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%x"} {
		rendered = append(rendered, fmt.Sprintf(verb, s), fmt.Sprintf(verb, *s))
	}
	// fmt walks unexported fields without calling Format.
	held := struct {
		secret Secret[string]
		ptr    *Secret[string]
	}{*s, s}
	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%x"} {
		rendered = append(rendered, fmt.Sprintf(verb, held))
	}
	js, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	rendered = append(rendered, string(js), s.LogValue().String())

	for _, out := range rendered {
		if strings.Contains(out, Secret1) {
			t.Errorf("rendering leaked the secret value: %s", out)
		}
	}
	if !strings.Contains(fmt.Sprint(s), Secret1Name) {
		t.Errorf("rendering %q does not include the name", fmt.Sprint(s))
	}
}

func testRevealOnce(t *testing.T, p Provider) {
	s := mustFind(t, p, String, Secret2Name)

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Reveal()
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				if v != Secret2 {
					t.Errorf("Reveal() = %q, want %q", v, Secret2)
				}
			} else if !errors.Is(err, ErrAlreadyRevealed) {
				t.Errorf("Reveal() error = %v, want ErrAlreadyRevealed", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d callers revealed the secret, want exactly 1", wins)
	}
	if !s.Revealed() {
		t.Error("Revealed() = false after Reveal")
	}
}
