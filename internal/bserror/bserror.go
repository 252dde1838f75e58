// Package bserror implements the error taxonomy that the bootstrap
// pipeline reports to the CLI layer: one Kind per class of failure,
// mapped to the process exit codes in the external-interfaces contract.
package bserror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the CLI can choose an exit code and a
// human-readable prefix without inspecting error strings.
type Kind string

const (
	Config            Kind = "Config"
	Transport         Kind = "Transport"
	Verification      Kind = "Verification"
	MalformedIndex    Kind = "MalformedIndex"
	Unsolvable        Kind = "Unsolvable"
	InsufficientSpace Kind = "InsufficientSpace"
	ExtractionError   Kind = "ExtractionError"
	ChrootError       Kind = "ChrootError"
	ScriptFailure     Kind = "ScriptFailure"
)

// ExitCode returns the process exit code associated with a Kind, per
// the CLI's documented exit-code contract.
func (k Kind) ExitCode() int {
	switch k {
	case Config:
		return 2
	case Unsolvable:
		return 3
	case Verification:
		return 4
	case Transport, MalformedIndex, InsufficientSpace, ExtractionError, ChrootError, ScriptFailure:
		return 1
	default:
		return 1
	}
}

// Error is a typed failure carrying a Kind plus whatever context (a URL,
// a package name, a problem list) makes the message actionable.
type Error struct {
	Kind    Kind
	Subject string // offending URL/path/package name, when relevant
	Err     error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a Kind and an optional subject.
func New(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Wrapf is New with a formatted error message in place of a wrapped error.
func Wrapf(kind Kind, subject, format string, args ...any) *Error {
	return &Error{Kind: kind, Subject: subject, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Transport for
// untyped errors, since most untyped failures in this pipeline
// originate from network or filesystem I/O.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Transport
}

// ExitCodeFor computes the process exit code for an arbitrary error
// returned from the pipeline.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}

// UnsolvableError carries the solver's verbatim problem/solution dump,
// per spec §7 ("problems are surfaced verbatim to the user").
type UnsolvableError struct {
	Problems []string
}

func (e *UnsolvableError) Error() string {
	return fmt.Sprintf("dependencies could not be solved: %d problem(s)", len(e.Problems))
}

// NewUnsolvable wraps a solver problem dump as a typed Unsolvable error.
func NewUnsolvable(problems []string) *Error {
	return New(Unsolvable, "", &UnsolvableError{Problems: problems})
}

// ScriptFailureError carries the exit code of a failed user or cleanup
// script.
type ScriptFailureError struct {
	ExitCode int
	Script   string
}

func (e *ScriptFailureError) Error() string {
	return fmt.Sprintf("script %q exited with code %d", e.Script, e.ExitCode)
}

// NewScriptFailure wraps a non-zero script exit as a typed ScriptFailure.
func NewScriptFailure(script string, code int) *Error {
	return New(ScriptFailure, script, &ScriptFailureError{ExitCode: code, Script: script})
}
