// Package contentstore provides the content store collaborator used to
// persist plugin state and cached plugin assets.
//
// Paths are slash-separated and relative to the store root. The plugin
// runtime does not care whether a store is backed by a local directory or
// a remote repository.
package contentstore

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNotExist is returned by Read when nothing is stored at the path
var ErrNotExist = errors.New("content not found")

// ErrInvalidPath is returned for paths that escape the store root
var ErrInvalidPath = errors.New("invalid content path")

// Store is the content store contract
type Store interface {
	Read(ctx context.Context, p string) ([]byte, error)
	Write(ctx context.Context, p string, data []byte) error
	Delete(ctx context.Context, p string) error
	// List returns every file beneath dir, recursively, as store paths
	List(ctx context.Context, dir string) ([]string, error)
}

// Clean normalizes a store path and rejects escapes
func Clean(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
