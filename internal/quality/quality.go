// Package quality evaluates data-quality flags over sensor record payloads.
//
// A Flagger owns the ordered set of enabled flag names for one pipeline run
// plus a registry of predicates. Construct one per run and pass it through
// explicitly; the registry is never process-wide state.
package quality

import (
	"fmt"

	"manifold/internal/services"
)

// Predicate reports whether a flag applies to one record payload.
type Predicate func(payload map[string]any) bool

// Flagger evaluates enabled flags in their declared order.
type Flagger struct {
	enabled    []string
	enabledSet map[string]struct{}
	predicates map[string]Predicate
}

// NewFlagger builds a flagger for the given enabled flag order. Names are
// expected to be distinct (config validation enforces this).
func NewFlagger(enabled []string) *Flagger {
	set := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		set[name] = struct{}{}
	}
	return &Flagger{
		enabled:    append([]string{}, enabled...),
		enabledSet: set,
		predicates: make(map[string]Predicate),
	}
}

// Enabled returns the declared flag order.
func (f *Flagger) Enabled() []string {
	return append([]string{}, f.enabled...)
}

// IsEnabled reports whether the flag name is in the enabled set.
func (f *Flagger) IsEnabled(name string) bool {
	_, ok := f.enabledSet[name]
	return ok
}

// Register attaches a predicate to an enabled flag. Registering a name
// outside the enabled set is a configuration error.
func (f *Flagger) Register(name string, predicate Predicate) error {
	if !f.IsEnabled(name) {
		return services.Wrap(services.ErrConfiguration, "quality", "register",
			fmt.Sprintf("flag %q is not enabled in the configuration", name), nil)
	}
	f.predicates[name] = predicate
	return nil
}

// Evaluate walks the enabled flags in declared order and returns the names
// whose predicates accept the payload. Enabled flags without a registered
// predicate are silently inert; that is an extensibility point, not an
// error. The result is deterministic and duplicate-free.
func (f *Flagger) Evaluate(payload map[string]any) []string {
	flags := []string{}
	for _, name := range f.enabled {
		predicate, ok := f.predicates[name]
		if !ok {
			continue
		}
		if predicate(payload) {
			flags = append(flags, name)
		}
	}
	return flags
}
