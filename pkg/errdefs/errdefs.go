// Package errdefs holds the error taxonomy shared by the document engine and
// its components.
//
//   - ParseError: malformed persisted or imported JSON. Non-fatal on load,
//     aborts an import before any mutation.
//   - UnknownWidgetKindError: isolated per widget descriptor.
//   - MissingRequiredFieldError: fatal to the triggering call, nothing mutated.
//   - MigrationError: fatal to the whole import, prior state untouched.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrRestoreInProgress is returned when a restore is requested while another
// restore is still running against the same components.
var ErrRestoreInProgress = errors.New("localhtml: restore already in progress")

// ErrNotFound reports a missing hidden container or record.
var ErrNotFound = errors.New("localhtml: not found")

// ParseError reports malformed JSON in a persisted or imported payload.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source == "" {
		return fmt.Sprintf("localhtml: parse snapshot: %v", e.Err)
	}
	return fmt.Sprintf("localhtml: parse snapshot from %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UnknownWidgetKindError reports a widget kind missing from the registry.
type UnknownWidgetKindError struct {
	Kind string
	ID   string
}

func (e *UnknownWidgetKindError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ID == "" {
		return fmt.Sprintf("widgets: unsupported widget kind %q", e.Kind)
	}
	return fmt.Sprintf("widgets: unsupported widget kind %q (id=%s)", e.Kind, e.ID)
}

// MissingRequiredFieldError reports a missing or out-of-range argument.
type MissingRequiredFieldError struct {
	Op    string
	Field string
	Value any
}

func (e *MissingRequiredFieldError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: %s is required", e.Op, e.Field)
	}
	return fmt.Sprintf("%s: invalid %s %v", e.Op, e.Field, e.Value)
}

// MigrationError wraps a failure raised by a snapshot migrator.
type MigrationError struct {
	From string
	To   string
	Err  error
}

func (e *MigrationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("localhtml: migrate snapshot from=%s to=%s: %v", describeVersion(e.From), describeVersion(e.To), e.Err)
}

func (e *MigrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeVersion(v string) string {
	if v == "" {
		return "<unset>"
	}
	return v
}

// IsParse reports whether err is or wraps a ParseError.
func IsParse(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// IsUnknownWidgetKind reports whether err is or wraps an UnknownWidgetKindError.
func IsUnknownWidgetKind(err error) bool {
	var target *UnknownWidgetKindError
	return errors.As(err, &target)
}

// IsMissingRequiredField reports whether err is or wraps a MissingRequiredFieldError.
func IsMissingRequiredField(err error) bool {
	var target *MissingRequiredFieldError
	return errors.As(err, &target)
}

// IsMigration reports whether err is or wraps a MigrationError.
func IsMigration(err error) bool {
	var target *MigrationError
	return errors.As(err, &target)
}
