package fsio

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// FileInfo carries the size and content digests of one file.
type FileInfo struct {
	Path   string
	Size   int64
	SHA256 string
	MD5    string
}

// Filesystem is the storage surface the pipeline steps write through. URIs
// are plain local paths or scheme-qualified object-store locations.
type Filesystem interface {
	// Exists reports whether the file or directory/prefix exists.
	Exists(ctx context.Context, uri string) (bool, error)
	// MakeDirs creates the directory and its parents. A no-op for
	// object stores, which have no directories.
	MakeDirs(ctx context.Context, uri string) error
	// Open returns a reader over the file contents.
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	// Create returns a writer that truncates any prior content. The write
	// is not durable until Close returns nil.
	Create(ctx context.Context, uri string) (io.WriteCloser, error)
	// Remove deletes the file; removing an absent file is not an error.
	Remove(ctx context.Context, uri string) error
	// ListFiles returns every file under the directory/prefix, recursively.
	ListFiles(ctx context.Context, dirURI string) ([]string, error)
	// Checksums streams the file once, returning size, sha256, and md5.
	Checksums(ctx context.Context, uri string) (FileInfo, error)
}

// EnsureDirectory creates the directory when it does not already exist.
func EnsureDirectory(ctx context.Context, fs Filesystem, uri string) error {
	ok, err := fs.Exists(ctx, uri)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return fs.MakeDirs(ctx, uri)
}

// computeChecksums drains r through sha256 and md5 in one pass.
func computeChecksums(path string, r io.Reader) (FileInfo, error) {
	sha := sha256.New()
	sum := md5.New()
	size, err := io.Copy(io.MultiWriter(sha, sum), r)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:   path,
		Size:   size,
		SHA256: hex.EncodeToString(sha.Sum(nil)),
		MD5:    hex.EncodeToString(sum.Sum(nil)),
	}, nil
}
