package quality_test

import (
	"errors"
	"reflect"
	"testing"

	"manifold/internal/quality"
	"manifold/internal/services"
)

func TestEvaluateOrderFollowsDeclaration(t *testing.T) {
	f := quality.NewFlagger([]string{"a", "b"})
	if err := f.Register("b", func(map[string]any) bool { return true }); err != nil {
		t.Fatal(err)
	}
	if err := f.Register("a", func(map[string]any) bool { return true }); err != nil {
		t.Fatal(err)
	}
	got := f.Evaluate(map[string]any{})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Evaluate = %v, want declared order [a b]", got)
	}
}

func TestUnregisteredEnabledFlagIsInert(t *testing.T) {
	f := quality.NewFlagger([]string{"a", "b"})
	if err := f.Register("a", func(map[string]any) bool { return true }); err != nil {
		t.Fatal(err)
	}
	got := f.Evaluate(map[string]any{"anything": 1})
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("Evaluate = %v, want [a]", got)
	}
}

func TestRegisterRejectsDisabledFlag(t *testing.T) {
	f := quality.NewFlagger([]string{"a"})
	err := f.Register("z", func(map[string]any) bool { return true })
	if err == nil {
		t.Fatal("expected error for disabled flag")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}

func TestEvaluatePredicateSeesPayload(t *testing.T) {
	f := quality.NewFlagger([]string{"blur"})
	if err := f.Register("blur", func(payload map[string]any) bool {
		width, _ := payload["width"].(int)
		return width < 100
	}); err != nil {
		t.Fatal(err)
	}

	if got := f.Evaluate(map[string]any{"width": 50}); len(got) != 1 {
		t.Fatalf("expected blur flag, got %v", got)
	}
	if got := f.Evaluate(map[string]any{"width": 640}); len(got) != 0 {
		t.Fatalf("expected no flags, got %v", got)
	}
}

func TestEvaluateEmptyResultIsNonNil(t *testing.T) {
	f := quality.NewFlagger(nil)
	if got := f.Evaluate(map[string]any{}); got == nil {
		t.Fatal("Evaluate must return an empty slice, not nil, so JSONL encodes []")
	}
}
