// Package file reads the accident table from disk and writes run artifacts
// as JSON documents.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source opens a delimited accident table on the local filesystem.
type Source struct {
	path string
}

// NewSource creates a Source for the table at path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Open opens the table for reading. The caller closes it.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return f, nil
}
