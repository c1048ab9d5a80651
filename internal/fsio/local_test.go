package fsio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalCreateTruncates(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	path := filepath.Join(t.TempDir(), "out.jsonl")

	for _, content := range []string{"first pass with a long line\n", "second\n"} {
		w, err := local.Create(ctx, path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second\n" {
		t.Fatalf("expected truncated rewrite, got %q", got)
	}
}

func TestLocalRemoveMissingIsNoop(t *testing.T) {
	local := NewLocal()
	if err := local.Remove(context.Background(), filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("remove of absent file: %v", err)
	}
}

func TestLocalListFilesRecursiveSorted(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	dir := t.TempDir()
	for _, rel := range []string{"b.jpg", "sub/a.jpg", "sub/c.jpg"} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(rel), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := local.ListFiles(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %v", files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Fatalf("files not sorted: %v", files)
		}
	}

	missing, err := local.ListFiles(ctx, filepath.Join(dir, "absent"))
	if err != nil || missing != nil {
		t.Fatalf("missing dir should list empty, got %v / %v", missing, err)
	}
}

func TestLocalChecksums(t *testing.T) {
	ctx := context.Background()
	local := NewLocal()
	path := filepath.Join(t.TempDir(), "payload.bin")
	content := []byte("checksum me")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := local.Checksums(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", info.Size, len(content))
	}
	sum := sha256.Sum256(content)
	if info.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("sha256 mismatch: %s", info.SHA256)
	}
	if len(info.MD5) != 32 {
		t.Fatalf("md5 hex length = %d", len(info.MD5))
	}
}

func TestMuxRejectsUnknownScheme(t *testing.T) {
	mux := NewMux()
	if _, err := mux.Exists(context.Background(), "gs://bucket/x"); err == nil {
		t.Fatal("expected unsupported scheme error")
	}
}
