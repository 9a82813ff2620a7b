package backup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownType is returned for type names missing from the registry.
	ErrUnknownType = errors.New("unknown entity type")
	// ErrMissingDependency is returned when an enabled type depends on a disabled one.
	ErrMissingDependency = errors.New("dependency not enabled")
	// ErrCycle is returned when the descriptor table has a dependency cycle.
	ErrCycle = errors.New("dependency cycle")
	// ErrNotSelectable is returned when a selection targets a type that does not accept one.
	ErrNotSelectable = errors.New("type does not accept a selection")
	// ErrNotKeyed is returned when a conflict strategy targets a type without a uniqueness key.
	ErrNotKeyed = errors.New("type has no uniqueness key")
	// ErrUpdateUnsupported is returned by targets that cannot update a given type.
	ErrUpdateUnsupported = errors.New("update not supported")
	// ErrConflict marks a collision under the fail-fast strategy.
	ErrConflict = errors.New("conflicting entity exists in target")
)

// Phase identifies the pipeline an error was raised in.
type Phase string

const (
	PhaseSave    Phase = "save"
	PhaseRestore Phase = "restore"
)

// ConfigError reports an invalid run configuration. It is raised before any I/O.
type ConfigError struct {
	Type       string
	Dependency string
	Err        error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration: ")
	b.WriteString(e.Type)
	if e.Dependency != "" {
		b.WriteString(" -> ")
		b.WriteString(e.Dependency)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FetchError reports a failure reading from the source. It aborts the run.
type FetchError struct {
	Type  string
	Phase Phase
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Phase, e.Type, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TargetStateError reports that the keys already used in the target could
// not be listed before restoring a keyed type. It aborts the run, since no
// conflict policy can be applied without them.
type TargetStateError struct {
	Type string
	Err  error
}

func (e *TargetStateError) Error() string {
	return fmt.Sprintf("restore: list existing %s in target: %v", e.Type, e.Err)
}

func (e *TargetStateError) Unwrap() error { return e.Err }

// StoreError reports that the record store is unavailable. It aborts the run.
type StoreError struct {
	Type  string
	Phase Phase
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: store %s %s: %v", e.Phase, e.Op, e.Type, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConflictError aborts a restore under the fail-fast strategy.
type ConflictError struct {
	Type       string
	OriginalID string
	Key        string
	TargetID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("restore: %s %s: key %q already used by %s", e.Type, e.OriginalID, e.Key, e.TargetID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// RecordError is a non-fatal creation failure scoped to one record.
type RecordError struct {
	Type       string
	OriginalID string
	Action     Action
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("restore: %s %s (%s): %v", e.Type, e.OriginalID, e.Action, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// OrphanWarning marks a child record whose parent (or required link) could
// not be remapped.
type OrphanWarning struct {
	Type       string
	OriginalID string
	RefType    string
	Ref        string
}

func (e *OrphanWarning) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s %s: %s reference missing", e.Type, e.OriginalID, e.RefType)
	}
	return fmt.Sprintf("%s %s: %s %s not restored", e.Type, e.OriginalID, e.RefType, e.Ref)
}
