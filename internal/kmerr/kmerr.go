// Package kmerr implements the error taxonomy used throughout this repo.
// Every error it builds is an *Error carrying a Kind; callers match it with
// errors.As or KindOf (there are no sentinel values for errors.Is), and the
// CLI uses the Kind to pick an exit code.
package kmerr

import (
	"errors"
	"fmt"
)

// Kind identifies which category of fatal error occurred.
type Kind int

const (
	// Argument covers CLI parse failures.
	Argument Kind = iota
	// KmerLengthMismatch covers a file whose reported k-mer length
	// disagrees with the configured K.
	KmerLengthMismatch
	// TableFull covers insert exhausting all M probes.
	TableFull
	// LookupMiss covers find failing for a predicted successor during
	// traversal.
	LookupMiss
	// IO covers input read / output write failures.
	IO
)

func (k Kind) String() string {
	switch k {
	case Argument:
		return "ArgumentError"
	case KmerLengthMismatch:
		return "KmerLengthMismatch"
	case TableFull:
		return "TableFull"
	case LookupMiss:
		return "LookupMiss"
	case IO:
		return "IoError"
	default:
		return "UnknownError"
	}
}

// Error is a fatal, taxonomized error. No error kind is retried at the
// core layer; the driver surfaces it and the job aborts.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func new(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Argf builds an ArgumentError.
func Argf(format string, args ...any) error {
	return new(Argument, fmt.Sprintf(format, args...), nil)
}

// LengthMismatch builds a KmerLengthMismatch error.
func LengthMismatch(path string, fileK, wantK int) error {
	return new(KmerLengthMismatch, fmt.Sprintf(
		"%s contains %d-mers, compiled for %d-mers", path, fileK, wantK), nil)
}

// Full builds a TableFull error.
func Full(probes int) error {
	return new(TableFull, fmt.Sprintf("exhausted all %d probes", probes), nil)
}

// Miss builds a LookupMiss error.
func Miss(key string) error {
	return new(LookupMiss, fmt.Sprintf("no entry for predicted successor %q", key), nil)
}

// IOf wraps an I/O failure.
func IOf(err error, format string, args ...any) error {
	return new(IO, fmt.Sprintf(format, args...), err)
}

// KindOf returns the Kind of err if it (or something it wraps) is a *Error,
// and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ExitCode maps an error to a process exit code: zero on success, nonzero
// on argument errors or fatal runtime errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if kind, ok := KindOf(err); ok {
		switch kind {
		case Argument:
			return 2
		case KmerLengthMismatch:
			return 3
		case TableFull:
			return 4
		case LookupMiss:
			return 5
		case IO:
			return 6
		}
	}
	return 1
}
