package fsio

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Mux routes each call to the backend matching the URI scheme. The S3
// backend is built lazily so local-only runs never touch AWS config.
type Mux struct {
	local Local

	mu      sync.Mutex
	s3      *S3
	s3Err   error
	s3Built bool
}

// NewMux returns a Filesystem that serves local paths and s3:// URIs.
func NewMux() *Mux {
	return &Mux{}
}

func (m *Mux) backend(ctx context.Context, uri string) (Filesystem, error) {
	switch Scheme(uri) {
	case "":
		return m.local, nil
	case "s3":
		return m.s3Backend(ctx)
	default:
		return nil, fmt.Errorf("unsupported uri scheme in %q", uri)
	}
}

func (m *Mux) s3Backend(ctx context.Context) (Filesystem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.s3Built {
		m.s3, m.s3Err = NewS3(ctx)
		m.s3Built = true
	}
	return m.s3, m.s3Err
}

func (m *Mux) Exists(ctx context.Context, uri string) (bool, error) {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return false, err
	}
	return b.Exists(ctx, uri)
}

func (m *Mux) MakeDirs(ctx context.Context, uri string) error {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return err
	}
	return b.MakeDirs(ctx, uri)
}

func (m *Mux) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, uri)
}

func (m *Mux) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return nil, err
	}
	return b.Create(ctx, uri)
}

func (m *Mux) Remove(ctx context.Context, uri string) error {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return err
	}
	return b.Remove(ctx, uri)
}

func (m *Mux) ListFiles(ctx context.Context, dirURI string) ([]string, error) {
	b, err := m.backend(ctx, dirURI)
	if err != nil {
		return nil, err
	}
	return b.ListFiles(ctx, dirURI)
}

func (m *Mux) Checksums(ctx context.Context, uri string) (FileInfo, error) {
	b, err := m.backend(ctx, uri)
	if err != nil {
		return FileInfo{}, err
	}
	return b.Checksums(ctx, uri)
}
