package backup

import (
	"io"
	"log/slog"

	"github.com/oklog/ulid/v2"
)

// RunContext is the explicit, per-run configuration of the engine. It is built
// once before a run and never mutated while the run is in progress.
type RunContext struct {
	RunID    string
	Registry *Registry
	// Enabled lists the entity types to process, in any order.
	Enabled []string
	// Selections maps a selectable type to its selection. Missing means all.
	Selections map[string]Selection
	// StrictSelection reports requested numbers that matched nothing.
	StrictSelection bool
	// Strategies maps keyed types to their conflict strategy.
	Strategies map[string]Strategy
	// Concurrency bounds parallel record creation for unordered types.
	Concurrency int
	Logger      *slog.Logger
}

// Validate checks the configuration without any I/O and returns the
// execution plan.
func (rc RunContext) Validate() ([]EntityDescriptor, error) {
	reg := rc.registry()
	plan, err := reg.Resolve(rc.Enabled)
	if err != nil {
		return nil, err
	}
	for name := range rc.Selections {
		d, ok := reg.Lookup(name)
		if !ok {
			return nil, &ConfigError{Type: name, Err: ErrUnknownType}
		}
		if !d.Selectable {
			return nil, &ConfigError{Type: name, Err: ErrNotSelectable}
		}
	}
	if _, err := NewPolicies(reg, rc.Strategies); err != nil {
		return nil, err
	}
	return plan, nil
}

func (rc RunContext) registry() *Registry {
	if rc.Registry != nil {
		return rc.Registry
	}
	return DefaultRegistry()
}

func (rc RunContext) logger() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (rc RunContext) runID() string {
	if rc.RunID != "" {
		return rc.RunID
	}
	return ulid.Make().String()
}

func (rc RunContext) concurrency() int {
	if rc.Concurrency < 1 {
		return 1
	}
	return rc.Concurrency
}

func (rc RunContext) selection(d EntityDescriptor) *Selection {
	if !d.Selectable {
		return nil
	}
	s, ok := rc.Selections[d.Type]
	if !ok {
		return nil
	}
	return &s
}
