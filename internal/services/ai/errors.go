package ai

import (
	"errors"
	"fmt"
)

// Kind classifies classifier failures so the presentation layer can pick a
// message without parsing error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindLoad
	KindNotLoaded
	KindInvalidInput
	KindInference
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load failure"
	case KindNotLoaded:
		return "not loaded"
	case KindInvalidInput:
		return "invalid input"
	case KindInference:
		return "inference failure"
	default:
		return "unknown"
	}
}

// ErrNotLoaded is returned (wrapped) by Predict before a successful Load.
var ErrNotLoaded = errors.New("model is not loaded")

// Error is the error type returned by Classifier operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
