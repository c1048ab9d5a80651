package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"manifold/internal/record"
)

// StreamInfo describes one stream within an opened capture.
type StreamInfo struct {
	ID    string
	Label string
	Kind  record.Kind
}

// Iterator yields records in device-time delivery order. Next returns
// io.EOF once the sequence is exhausted.
type Iterator interface {
	Next() (record.Record, error)
	Close() error
}

// Source is an opened capture session.
type Source interface {
	Streams() []StreamInfo
	// Deliver returns an iterator over the union of the named streams,
	// ordered by device time.
	Deliver(ctx context.Context, streamIDs ...string) (Iterator, error)
	Close() error
}

// Opener constructs a Source for a capture location.
type Opener func(ctx context.Context, path string) (Source, error)

var (
	openersMu sync.RWMutex
	openers   = map[string]Opener{}
)

// RegisterFormat makes a capture format available to Open. Backends call
// this from init.
func RegisterFormat(name string, opener Opener) {
	openersMu.Lock()
	defer openersMu.Unlock()
	openers[name] = opener
}

// Formats lists the registered format names.
func Formats() []string {
	openersMu.RLock()
	defer openersMu.RUnlock()
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a capture with the named format backend.
func Open(ctx context.Context, format, path string) (Source, error) {
	openersMu.RLock()
	opener, ok := openers[format]
	openersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown capture format %q (registered: %s)", format, strings.Join(Formats(), ", "))
	}
	return opener(ctx, path)
}
