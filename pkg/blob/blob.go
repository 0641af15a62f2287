// Package blob is the per-account, content-addressed object store.
// An object's name is derived from a digest of its bytes, so identical
// content always lands under the same name and is stored once.
package blob

import (
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when a requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// ErrInvalidName rejects account names and object handles that are not
// plain URL-safe tokens. Both end up as filesystem path segments and must
// never be interpreted as path fragments.
var ErrInvalidName = errors.New("blob: invalid name")

type Store interface {
	// Ensure creates the account's namespace if it does not exist yet.
	Ensure(account string) error
	// List enumerates the account's object handles. Order is whatever the
	// underlying directory yields; consumers must not rely on it.
	List(account string) ([]string, error)
	// Put stores the stream's content and returns its handle. Storing
	// bytes that are already present is a successful no-op.
	Put(account string, r io.Reader) (string, error)
	// Get opens a stored object for reading.
	Get(account string, handle string) (io.ReadCloser, error)
}

// ValidateName accepts only non-empty strings over the URL-safe base64
// alphabet, which covers every digest-derived handle and rejects path
// separators and traversal sequences outright.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
