package rpg

import "fmt"

// ValidationError reports invalid input to a manager operation, as opposed to
// a storage failure.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}
