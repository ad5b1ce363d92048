// Package ernerr defines the stable error taxonomy surfaced to bindings
// (spec §6.5, §7). Every error the core returns from a public entry point
// is one of the Code values below, wrapped with fmt.Errorf("%w") so
// callers can use errors.Is/errors.As without losing the original cause.
package ernerr

import (
	"errors"
	"fmt"
)

// Code is a stable, binding-facing error classification. Codes never
// change meaning once shipped; new codes may be added.
type Code string

const (
	InvalidXML          Code = "INVALID_XML"
	SecurityViolation   Code = "SECURITY_VIOLATION"
	UnsupportedVersion  Code = "UNSUPPORTED_VERSION"
	StructuralError     Code = "STRUCTURAL_ERROR"
	ReferenceError      Code = "REFERENCE_ERROR"
	PresetViolation     Code = "PRESET_VIOLATION"
	Timeout             Code = "TIMEOUT"
	BackpressureExceeded Code = "BACKPRESSURE_EXCEEDED"
	DeterminismFailure  Code = "DETERMINISM_FAILURE"
)

// Error is the concrete error type returned by every erncore entry point.
// It carries the stable Code plus the path/positional context spec §7
// requires for input errors.
type Error struct {
	Code       Code
	Path       string // element path, e.g. "/ReleaseList/Release[1]"
	Line       int    // 1-based; 0 if not applicable
	Column     int    // 1-based; 0 if not applicable
	Context    string // short excerpt, <=80 chars, for MalformedXml-class errors
	Suggestions []string
	Err        error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d, col %d)", e.Line, e.Column)
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, ernerr.InvalidXML) style checks by comparing
// Codes, in addition to the usual identity comparison errors.Is performs.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

// New builds an *Error for the given code with no extra context.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a Code to an existing error, preserving it as the cause.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// WithPath returns a copy of e with Path set; used when a lower layer's
// error is annotated by a higher layer without losing the original Code
// (spec §7 "Propagation").
func (e *Error) WithPath(path string) *Error {
	cp := *e
	cp.Path = path
	return &cp
}

// WithPos returns a copy of e with Line/Column/Context set.
func (e *Error) WithPos(line, col int, context string) *Error {
	cp := *e
	cp.Line, cp.Column, cp.Context = line, col, context
	if len(context) > 80 {
		cp.Context = context[:80]
	}
	return &cp
}

// SecurityViolationKind enumerates the specific resource-exhaustion
// defenses the Secure XML Reader enforces (spec §4.1).
type SecurityViolationKind string

const (
	KindExternalEntity    SecurityViolationKind = "external_entity"
	KindDoctypeEntity     SecurityViolationKind = "doctype_entity"
	KindEntityExpansion   SecurityViolationKind = "entity_expansion"
	KindNestingDepth      SecurityViolationKind = "nesting_depth"
	KindAttributeCount    SecurityViolationKind = "attribute_count"
	KindTextSize          SecurityViolationKind = "text_size"
	KindByteBudget        SecurityViolationKind = "byte_budget"
	KindTimeout           SecurityViolationKind = "timeout"
)

// SecurityViolation builds the SECURITY_VIOLATION error for a specific
// defense kind (spec §4.1, testable property 4).
func SecurityViolation(kind SecurityViolationKind, detail string) *Error {
	return &Error{
		Code: SecurityViolation,
		Err:  fmt.Errorf("security violation [%s]: %s", kind, detail),
	}
}

// ReferenceErrorKind enumerates the entity kinds a reference can target
// (spec §4.4).
type ReferenceErrorKind string

const (
	RefParty   ReferenceErrorKind = "Party"
	RefResource ReferenceErrorKind = "Resource"
	RefRelease ReferenceErrorKind = "Release"
)

// RefError builds a REFERENCE_ERROR for a dangling (unresolved) reference.
func RefError(kind ReferenceErrorKind, ref, atPath string) *Error {
	return &Error{
		Code: ReferenceError,
		Path: atPath,
		Err:  fmt.Errorf("unresolved %s reference %q", kind, ref),
	}
}

// IsCode reports whether err (or anything it wraps) is an *Error with the
// given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
