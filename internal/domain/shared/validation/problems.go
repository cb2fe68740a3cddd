package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid matches every *Error through errors.Is.
var ErrInvalid = errors.New("validation failed")

// Error aggregates every rule violated by a single input.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalid.Error()
	}
	return ErrInvalid.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Problems accumulates violations; checks keep running after the first failure.
type Problems []string

func (p *Problems) Add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Merge folds another validation result into p. Non-validation errors are kept by message.
func (p *Problems) Merge(err error) {
	if err == nil {
		return
	}
	var verr *Error
	if errors.As(err, &verr) {
		*p = append(*p, verr.Problems...)
		return
	}
	*p = append(*p, err.Error())
}

func (p Problems) Err() error {
	if len(p) == 0 {
		return nil
	}
	return &Error{Problems: append([]string(nil), p...)}
}

// New builds a single-problem validation error.
func New(format string, args ...any) error {
	return &Error{Problems: []string{fmt.Sprintf(format, args...)}}
}
