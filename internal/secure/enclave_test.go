package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "text", data: []byte("my-secret-password")},
		{name: "binary", data: []byte{0x00, 0xFF, 0x10, 0x20}},
		{name: "empty", data: []byte{}},
		{name: "nil", data: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := Seal(tt.data)
			defer buf.Destroy()

			got, err := buf.Bytes()
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), len(got))
			assert.Equal(t, len(tt.data), buf.Len())
			if len(tt.data) > 0 {
				assert.Equal(t, tt.data, got)
			}
		})
	}
}

func TestSealLeavesInputIntact(t *testing.T) {
	t.Parallel()

	data := []byte("keep-me")
	buf := Seal(data)
	defer buf.Destroy()

	assert.Equal(t, "keep-me", string(data))
}

func TestBytesReturnsCopies(t *testing.T) {
	t.Parallel()

	buf := Seal([]byte("abc"))
	defer buf.Destroy()

	first, err := buf.Bytes()
	require.NoError(t, err)
	first[0] = 'x'

	second, err := buf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(second))
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	buf := Seal([]byte("gone"))
	buf.Destroy()
	buf.Destroy()

	_, err := buf.Bytes()
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestConcurrentBytes(t *testing.T) {
	t.Parallel()

	buf := Seal([]byte("shared"))
	defer buf.Destroy()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			got, err := buf.Bytes()
			assert.NoError(t, err)
			assert.Equal(t, "shared", string(got))
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
