// Package archive stores the raw bytes of every submission request
// before any parsing happens, so malformed uploads can be replayed when
// debugging client issues.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"
)

// ErrFileExists is returned when the generated archive filename
// collides with an existing one.
var ErrFileExists = errors.New("archive file already exists")

// Request carries the allow-listed request metadata that gets archived
// alongside the body. Nothing else of the HTTP request is persisted.
type Request struct {
	ClientIP     string `json:"clientIp"`
	ForwardedFor string `json:"forwardedFor,omitempty"`
	Body         []byte `json:"body"`
}

// Archiver persists one raw request and returns an opaque filename that
// identifies it.
type Archiver interface {
	Save(req Request) (string, error)
}

// Filesystem is the production archiver: one JSON document per request
// under a base directory.
type Filesystem struct {
	baseDir string
}

// NewFilesystem creates a filesystem archiver rooted at baseDir.
func NewFilesystem(baseDir string) (*Filesystem, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Filesystem{baseDir: baseDir}, nil
}

// Save writes the request document. The filename combines client IP,
// timestamp, and a random suffix; a collision is reported rather than
// overwritten.
func (f *Filesystem) Save(req Request) (string, error) {
	name := fmt.Sprintf(
		"%s-%d-%d",
		req.ClientIP,
		time.Now().Unix(),
		rand.IntN(1024)+1,
	)
	path := filepath.Join(f.baseDir, name)

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFileExists, name)
	}

	doc, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	//nolint:mnd // filemode constant
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	return name, nil
}
