package data

import (
	"context"
	"errors"

	"github.com/taskhub/taskhub-cli/internal/output"
)

// StatusKind is the request tri-state shown to the user.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Status is the user-facing request state of one collection.
type Status struct {
	Kind    StatusKind
	Message string // error message when Kind == StatusError
	Reason  string // gateway reason code, if any
	Success string // transient success message when idle
}

// StatusOf derives the request status from a snapshot.
func StatusOf[T any](s Snapshot[T]) Status {
	switch s.State {
	case StateLoading:
		return Status{Kind: StatusLoading}
	case StateError:
		return Status{Kind: StatusError, Message: MessageOf(s.Err), Reason: output.ReasonOf(s.Err)}
	}
	return Status{Kind: StatusIdle, Success: s.Success}
}

// MessageOf returns the human-readable message for a failed request.
// Errors without a gateway message fall back to a generic one.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *output.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Request canceled"
	}
	return output.GenericMessage
}
