package residual

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPolicy indicates a duplicate policy name that is not recognized.
	ErrUnknownPolicy = errors.New("residual: unknown duplicate policy")

	// ErrBadHeader indicates a residual table without a leading Time column.
	ErrBadHeader = errors.New("residual: table header must start with Time")

	// ErrEmptySolverTag indicates an empty linear solver tag.
	ErrEmptySolverTag = errors.New("residual: empty solver tag")
)

// ParseError describes a line that matched a pattern but carried a number
// that could not be parsed. It is logged, never returned from Feed.
type ParseError struct {
	Line    string
	Text    string
	Wrapped error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("residual: cannot parse %q in line %q: %v", e.Text, e.Line, e.Wrapped)
}

func (e *ParseError) Unwrap() error {
	return e.Wrapped
}
