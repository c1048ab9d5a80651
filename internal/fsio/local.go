package fsio

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Local serves plain filesystem paths.
type Local struct{}

// NewLocal returns the local-path backend.
func NewLocal() Local {
	return Local{}
}

func (Local) Exists(_ context.Context, uri string) (bool, error) {
	_, err := os.Stat(uri)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (Local) MakeDirs(_ context.Context, uri string) error {
	return os.MkdirAll(uri, 0o755)
}

func (Local) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	return os.Open(uri)
}

func (Local) Create(_ context.Context, uri string) (io.WriteCloser, error) {
	return os.OpenFile(uri, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

func (Local) Remove(_ context.Context, uri string) error {
	err := os.Remove(uri)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (Local) ListFiles(_ context.Context, dirURI string) ([]string, error) {
	info, err := os.Stat(dirURI)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(dirURI, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (l Local) Checksums(ctx context.Context, uri string) (FileInfo, error) {
	f, err := os.Open(uri)
	if err != nil {
		return FileInfo{}, err
	}
	defer f.Close()
	return computeChecksums(uri, f)
}
