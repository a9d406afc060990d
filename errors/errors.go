// Package errors implements the closed error taxonomy shared by every
// bowl component.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind discriminates the closed sum of failure classes a bowl
// component can report. New values must not be added without updating
// every switch that matches on Kind exhaustively.
type Kind int

const (
	InvalidArgument Kind = iota
	SocketError
	ContainerError
	ChildProcessError
	HostnameError
	WordGenError
	MountError
	NamespaceError
	CapabilityError
	SyscallsError
	ResourcesError
	CleanupFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case SocketError:
		return "SocketError"
	case ContainerError:
		return "ContainerError"
	case ChildProcessError:
		return "ChildProcessError"
	case HostnameError:
		return "HostnameError"
	case WordGenError:
		return "WordGenError"
	case MountError:
		return "MountError"
	case NamespaceError:
		return "NamespaceError"
	case CapabilityError:
		return "CapabilityError"
	case SyscallsError:
		return "SyscallsError"
	case ResourcesError:
		return "ResourcesError"
	case CleanupFailure:
		return "CleanupFailure"
	default:
		return "Unknown"
	}
}

// Errcode is the single error type returned by every bowl component.
// Field is used by InvalidArgument to name the offending field; Code
// is the numeric site discriminant used by every other Kind except
// CleanupFailure, which instead wraps Cause.
type Errcode struct {
	K     Kind
	Field string
	Code  int
	Cause error
}

func New(k Kind, code int) *Errcode {
	return &Errcode{K: k, Code: code}
}

func NewInvalidArgument(field string) *Errcode {
	return &Errcode{K: InvalidArgument, Field: field}
}

// Wrap produces a CleanupFailure carrying the original error that
// triggered cleanup, matching spec.md's "wrap original error in
// CleanupFailure if cleanup also fails" rule.
func Wrap(original error) *Errcode {
	return &Errcode{K: CleanupFailure, Cause: pkgerrors.WithStack(original)}
}

func (e *Errcode) Error() string {
	switch e.K {
	case InvalidArgument:
		return fmt.Sprintf("invalid argument: %s", e.Field)
	case CleanupFailure:
		return fmt.Sprintf("cleanup failed after prior error: %v", e.Cause)
	default:
		return fmt.Sprintf("%s(%d)", e.K, e.Code)
	}
}

// Unwrap lets errors.Is / errors.As see through a CleanupFailure to the
// error that triggered it. Errcode has no Cause() method, so
// pkg/errors.Cause stops at the CleanupFailure itself.
func (e *Errcode) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Errcode of the same Kind (and, for
// non-CleanupFailure kinds, the same numeric site). It lets call sites
// write errors.Is(err, errors.New(errors.MountError, 4)) without caring
// about the Field/Cause payload.
func (e *Errcode) Is(target error) bool {
	t, ok := target.(*Errcode)
	if !ok {
		return false
	}
	if e.K != t.K {
		return false
	}
	if e.K == InvalidArgument {
		return e.Field == t.Field
	}
	if e.K == CleanupFailure {
		return true
	}
	return e.Code == t.Code
}
