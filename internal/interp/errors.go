package interp

import (
	"errors"
	"fmt"
)

var (
	// ErrStepLimit stops programs that run longer than the configured limit
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrUnsupported reports syntax outside the evaluated subset
	ErrUnsupported = errors.New("unsupported by the evaluator")
)

// Exception is a Python-level error raised while evaluating
type Exception struct {
	Kind string
	Msg  string
	Line int
}

func (e *Exception) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func raise(kind, format string, args ...interface{}) *Exception {
	return &Exception{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func undefinedRead(u *Undefined) error {
	return raise("UnboundLocalError", "%s is used before assignment", u.Name)
}

func unsupported(what interface{}) error {
	return fmt.Errorf("%w: %v", ErrUnsupported, what)
}
