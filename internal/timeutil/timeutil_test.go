package timeutil

import "testing"

func TestPartitionDate(t *testing.T) {
	// 2023-11-14T22:13:20Z
	if got := PartitionDate(1_700_000_000_000_000_000); got != "2023/11/14" {
		t.Fatalf("PartitionDate = %q, want 2023/11/14", got)
	}
}

func TestNsToISO8601(t *testing.T) {
	if got := NsToISO8601(1_700_000_000_500_000_000); got != "2023-11-14T22:13:20.5Z" {
		t.Fatalf("NsToISO8601 = %q", got)
	}
	if got := NsToISO8601(0); got != "1970-01-01T00:00:00Z" {
		t.Fatalf("epoch = %q", got)
	}
}
