package services_test

import (
	"errors"
	"strings"
	"testing"

	"manifold/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvider, "extract_audio", "open source", "no audio stream", base)
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("expected provider marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "extract_audio: open source: no audio stream") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "merge_events", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, services.ExitOK},
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad chunk size", nil), services.ExitConfiguration},
		{services.Wrap(services.ErrValidation, "run", "lock", "root busy", nil), services.ExitConfiguration},
		{services.Wrap(services.ErrProvider, "extract_rgb", "resolve", "no image stream", nil), services.ExitProvider},
		{errors.New("unclassified"), services.ExitFailure},
	}
	for _, tc := range cases {
		if got := services.ExitCode(tc.err); got != tc.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "write_manifest", "discover", "no summaries", nil)
	if got := services.Details(err); got != "write_manifest: discover: no summaries" {
		t.Fatalf("unexpected details: %q", got)
	}
}
