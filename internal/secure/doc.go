// Package secure keeps secret bytes encrypted while they sit in process memory.
//
// It wraps github.com/awnumar/memguard. A Buffer seals a copy of the input
// into a memguard Enclave (XSalsa20Poly1305, key held in guarded pages), and
// hands plaintext back only as a fresh copy through Bytes:
//
//	buf := secure.Seal(value)
//	defer buf.Destroy()
//
//	plain, err := buf.Bytes()
//
// Sealing never modifies the caller's slice. Empty input is valid and yields
// an empty Buffer, since memguard refuses zero-length enclaves.
//
// Long running programs should call Purge on exit so every guarded page is
// wiped.
package secure
