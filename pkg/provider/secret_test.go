package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestDecoders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   Value
		wantStr string
		strKind ErrorKind
		wantBin []byte
		binKind ErrorKind
	}{
		{name: "text", value: Text("hello"), wantStr: "hello", binKind: ErrInvalidType},
		{name: "empty text", value: Text(""), wantStr: "", binKind: ErrInvalidType},
		{name: "binary", value: Binary([]byte{0, 1, 2}), strKind: ErrInvalidType, wantBin: []byte{0, 1, 2}},
		{name: "zero value", value: Value{}, strKind: ErrUnknownType, binKind: ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := String("k", tt.value)
			if KindOf(err) != tt.strKind {
				t.Errorf("String() error = %v, want kind %v", err, tt.strKind)
			}
			if err == nil && s != tt.wantStr {
				t.Errorf("String() = %q, want %q", s, tt.wantStr)
			}

			b, err := Bytes("k", tt.value)
			if KindOf(err) != tt.binKind {
				t.Errorf("Bytes() error = %v, want kind %v", err, tt.binKind)
			}
			if err == nil && !bytes.Equal(b, tt.wantBin) {
				t.Errorf("Bytes() = %v, want %v", b, tt.wantBin)
			}
		})
	}
}

func TestBinaryIsImmutable(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	v := Binary(src)
	src[0] = 'x'

	out, err := Bytes("k", v)
	if err != nil {
		t.Fatal(err)
	}
	out[1] = 'y'

	again, _ := Bytes("k", v)
	if string(again) != "abc" {
		t.Errorf("stored value changed to %q", again)
	}
}

func TestValueFormatting(t *testing.T) {
	t.Parallel()

	for _, v := range []Value{Text("topsecret"), Binary([]byte("topsecret"))} {
		for _, out := range []string{fmt.Sprint(v), fmt.Sprintf("%#v", v), fmt.Sprintf("%+v", v)} {
			if strings.Contains(out, "topsecret") {
				t.Errorf("Value rendered its content: %s", out)
			}
		}
	}
	if got := Text("x").String(); got != "Text(*****)" {
		t.Errorf("Text String() = %q", got)
	}
	if got := (Value{}).Kind().String(); got != "unknown" {
		t.Errorf("zero Kind = %q", got)
	}
}

func TestSecretRendering(t *testing.T) {
	t.Parallel()

	s := NewSecret("db-password", "v1", "hunter2")

	tests := []struct {
		format string
		want   string
	}{
		{format: "%v", want: "{ name: db-password, version: v1 }"},
		{format: "%s", want: "{ name: db-password, version: v1 }"},
		{format: "%+v", want: "{name: db-password, version: v1, secret: *****}"},
		{format: "%#v", want: `Secret{name: "db-password", version: "v1", secret: "*****"}`},
		{format: "%q", want: `"{ name: db-password, version: v1 }"`},
		{format: "%x", want: "{ name: db-password, version: v1 }"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()
			if got := fmt.Sprintf(tt.format, s); got != tt.want {
				t.Errorf("Sprintf(%s) = %q, want %q", tt.format, got, tt.want)
			}
			if got := fmt.Sprintf(tt.format, *s); got != tt.want {
				t.Errorf("Sprintf(%s) on a copy = %q, want %q", tt.format, got, tt.want)
			}
		})
	}

	js, err := json.Marshal(map[string]any{"s": s})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"s":{"name":"db-password","version":"v1","secret":"*****"}}`; string(js) != want {
		t.Errorf("json = %s, want %s", js, want)
	}

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("loaded", "secret", s)
	if strings.Contains(buf.String(), "hunter2") || !strings.Contains(buf.String(), "secret.name=db-password") {
		t.Errorf("slog output = %s", buf.String())
	}
}

func TestSecretInUnexportedField(t *testing.T) {
	t.Parallel()

	type appConfig struct {
		dbPassword Secret[string]
		apiKey     *Secret[[]byte]
	}
	cfg := appConfig{
		dbPassword: *NewSecret("db", "v1", "hunter2"),
		apiKey:     NewSecret("api", "v3", []byte("k3y-bytes")),
	}

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%x", "%d"} {
		t.Run(verb, func(t *testing.T) {
			t.Parallel()
			out := fmt.Sprintf(verb, cfg)
			if strings.Contains(out, "hunter2") || strings.Contains(out, "k3y-bytes") {
				t.Errorf("Sprintf(%s) leaked the value: %s", verb, out)
			}
		})
	}

	if v, err := cfg.dbPassword.Reveal(); err != nil || v != "hunter2" {
		t.Errorf("Reveal() = %q, %v", v, err)
	}
}

func TestSecretReveal(t *testing.T) {
	t.Parallel()

	s := NewSecret("k", "", []byte("value"))
	if s.Version() != UnknownVersion {
		t.Errorf("Version() = %q, want %q", s.Version(), UnknownVersion)
	}
	if s.Revealed() {
		t.Error("Revealed() = true before Reveal")
	}

	v, err := s.Reveal()
	if err != nil || string(v) != "value" {
		t.Fatalf("Reveal() = %q, %v", v, err)
	}

	copyOf := *s
	v, err = copyOf.Reveal()
	if !errors.Is(err, ErrAlreadyRevealed) || v != nil {
		t.Errorf("second Reveal() through a copy = %q, %v", v, err)
	}

	var zero Secret[string]
	if _, err := zero.Reveal(); !errors.Is(err, ErrAlreadyRevealed) {
		t.Errorf("zero Secret Reveal() error = %v", err)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	s, err := Decode(Record{Name: "n", Version: "7", Value: Text("x")}, String)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "n" || s.Version() != "7" {
		t.Errorf("metadata = %s/%s", s.Name(), s.Version())
	}

	_, err = Decode(Record{Name: "n", Value: Text("x")}, Bytes)
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("Decode() error = %v, want InvalidType", err)
	}
}
