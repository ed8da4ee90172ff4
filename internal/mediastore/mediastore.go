// Package mediastore places downloaded attachments on disk under opaque
// random names.
package mediastore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm  = os.FileMode(0o755)
	defaultFilePerm = os.FileMode(0o600)
)

type Dir struct {
	root string
}

// New ensures the storage directory exists and returns a handle on it.
func New(root string) (*Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("media dir is required")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("mediastore ensure dir %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// Path returns the absolute storage path for a stored name.
func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}

// Save streams content into the directory under the given name. The write
// goes through a temp file and a rename so a failed download never leaves a
// half-written object at its final path.
func (d *Dir) Save(name string, r io.Reader) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("mediastore invalid name %q", name)
	}
	finalPath := d.Path(name)

	tmp, err := os.CreateTemp(d.root, name+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("mediastore create temp for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", fmt.Errorf("mediastore write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("mediastore sync %s: %w", name, err)
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		cleanup()
		return "", fmt.Errorf("mediastore chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("mediastore close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("mediastore rename %s: %w", name, err)
	}
	return finalPath, nil
}

// RandomName is the opaque filename for a stored object: 16 random bytes, hex
// encoded.
func RandomName() (string, error) {
	return randomHex(16)
}

// RandomSuffix backs generated placeholder titles: 8 random bytes, hex
// encoded.
func RandomSuffix() (string, error) {
	return randomHex(8)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("mediastore random name: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
