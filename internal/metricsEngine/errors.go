package metricsEngine

import (
	"errors"
	"fmt"
)

var (
	ErrParse          = errors.New("malformed percentage")
	ErrDivisionByZero = errors.New("division by zero: nav resolves to zero")
)

// ParseError reports a target weight that could not be parsed.
// Row is the name of the holding the value belongs to.
type ParseError struct {
	Row   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("holding %q: malformed target weight %q: %v", e.Row, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
