package blob

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/ksuid"
)

const (
	// digestLen is how many bytes of the SHA-1 digest name an object.
	digestLen = 18
	// copyChunk bounds how much of an upload is held in memory at once.
	copyChunk = 8192
)

// Dir stores objects as files, one subdirectory per account, each entry
// named by the URL-safe encoding of the truncated content digest.
type Dir struct {
	root string
}

var _ Store = (*Dir)(nil)

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating object root: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Ensure(account string) error {
	if err := ValidateName(account); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(d.root, account), 0o755); err != nil {
		return fmt.Errorf("creating account namespace: %w", err)
	}
	return nil
}

func (d *Dir) List(account string) ([]string, error) {
	if err := d.Ensure(account); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(d.root, account))
	if err != nil {
		return nil, fmt.Errorf("listing account namespace: %w", err)
	}
	handles := make([]string, 0, len(entries))
	for _, entry := range entries {
		// skip stray staging files from interrupted uploads
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "tmp-") {
			continue
		}
		handles = append(handles, entry.Name())
	}
	return handles, nil
}

// Put streams the content into a temporary file while computing its
// digest, then promotes the file to its digest-derived name with an
// atomic rename. If that name is already taken the temporary file is
// discarded and the existing object wins, whatever its bytes are: the
// upload still succeeds with the same handle.
func (d *Dir) Put(account string, r io.Reader) (string, error) {
	if err := d.Ensure(account); err != nil {
		return "", err
	}

	dir := filepath.Join(d.root, account)
	tmpPath := filepath.Join(dir, "tmp-"+ksuid.New().String())

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating temporary object: %w", err)
	}

	digest := sha1.New()
	_, err = io.CopyBuffer(io.MultiWriter(f, digest), r, make([]byte, copyChunk))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// the temp file is never promoted on a broken stream
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing object: %w", err)
	}

	handle := base64.RawURLEncoding.EncodeToString(digest.Sum(nil)[:digestLen])
	finalPath := filepath.Join(dir, handle)

	if _, err := os.Stat(finalPath); err == nil {
		// content already stored, duplicate upload is a no-op
		os.Remove(tmpPath)
		slog.Debug("duplicate object discarded", "account", account, "handle", handle)
		return handle, nil
	} else if !os.IsNotExist(err) {
		os.Remove(tmpPath)
		return "", fmt.Errorf("checking object: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("promoting object: %w", err)
	}

	slog.Info("object stored", "account", account, "handle", handle)
	return handle, nil
}

func (d *Dir) Get(account string, handle string) (io.ReadCloser, error) {
	if err := ValidateName(account); err != nil {
		return nil, err
	}
	if err := ValidateName(handle); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.root, account, handle))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("opening object: %w", err)
	}
	return f, nil
}
