package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned by Bytes after Destroy.
var ErrDestroyed = errors.New("secure buffer destroyed")

// Buffer holds one sealed value.
type Buffer struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	size      int
	destroyed bool
}

// Seal encrypts a copy of data. data itself is left untouched.
func Seal(data []byte) *Buffer {
	b := &Buffer{size: len(data)}
	if len(data) == 0 {
		return b
	}

	// NewEnclave wipes its argument.
	src := make([]byte, len(data))
	copy(src, data)
	b.enclave = memguard.NewEnclave(src)
	return b
}

// Bytes decrypts the buffer and returns a copy of the plaintext owned by the
// caller.
func (b *Buffer) Bytes() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrDestroyed
	}
	if b.enclave == nil {
		return []byte{}, nil
	}

	locked, err := b.enclave.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	out := make([]byte, locked.Size())
	copy(out, locked.Bytes())
	return out, nil
}

// Len returns the plaintext length.
func (b *Buffer) Len() int {
	return b.size
}

// Destroy drops the enclave. It is safe to call more than once.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.enclave = nil
	b.destroyed = true
}

// Purge wipes every guarded region memguard allocated in this process.
func Purge() {
	memguard.Purge()
}
