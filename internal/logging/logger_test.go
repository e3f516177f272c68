package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsprovider/internal/logging"
	"github.com/systmms/secretsprovider/pkg/provider"
)

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "secret is redacted", input: "my-secret-password"},
		{name: "empty secret is still redacted", input: ""},
		{name: "complex secret is redacted", input: "password123!@#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := logging.Secret(tt.input)
			assert.Equal(t, "[REDACTED]", s.String())
			assert.Equal(t, "[REDACTED]", s.GoString())
			text, err := s.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, "[REDACTED]", string(text))
		})
	}
}

func TestSecretRedactionAcrossLevels(t *testing.T) {
	t.Parallel()

	const value = "super-secret-password-12345"
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, true, true)

	logger.Info("retrieved secret: %s", logging.Secret(value))
	logger.Warn("retrieved secret: %v", logging.Secret(value))
	logger.Error("retrieved secret: %#v", logging.Secret(value))
	logger.Debug("retrieved secret: %s", logging.Secret(value))

	out := buf.String()
	assert.NotContains(t, out, value)
	assert.Equal(t, 4, strings.Count(out, "[REDACTED]"))
	for _, lvl := range []string{"INF", "WRN", "ERR", "DBG"} {
		assert.Contains(t, out, lvl)
	}
}

func TestDebugModeDisabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, false, true)
	logger.Debug("hidden %d", 1)
	logger.Info("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestColorOutputDisabled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.NewWithWriter(&buf, false, true).Warn("plain")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestJSONLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewJSON(&buf, false).
		With("provider", "memory").
		With("token", logging.Secret("abcd1234")).
		With("secret", provider.NewSecret("db", "v2", "hunter22"))
	logger.Info("fetched %s", "db")

	out := buf.String()
	assert.NotContains(t, out, "abcd1234")
	assert.NotContains(t, out, "hunter22")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "fetched db", line["message"])
	assert.Equal(t, "memory", line["provider"])
	assert.Equal(t, "[REDACTED]", line["token"])
	assert.Equal(t, map[string]interface{}{"name": "db", "version": "v2", "secret": "*****"}, line["secret"])
}

func TestNop(t *testing.T) {
	t.Parallel()

	logger := logging.Nop()
	assert.NotPanics(t, func() {
		logger.Info("x")
		logger.With("k", "v").Error("y")
	})
}

func TestRedact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "The password is secret123",
			secrets:  []string{"secret123"},
			expected: "The password is [REDACTED]",
		},
		{
			name:     "multiple secrets redacted",
			input:    "User admin with password secret123 and API key abc123",
			secrets:  []string{"admin", "secret123", "abc123"},
			expected: "User [REDACTED] with password [REDACTED] and API key [REDACTED]",
		},
		{
			name:     "short secrets are left alone",
			input:    "id abc",
			secrets:  []string{"abc", ""},
			expected: "id abc",
		},
		{
			name:     "no secrets to redact",
			input:    "This has no secrets",
			secrets:  nil,
			expected: "This has no secrets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, logging.Redact(tt.input, tt.secrets))
		})
	}
}
