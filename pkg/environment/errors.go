package environment

import (
	"errors"
	"fmt"
)

// InvalidActionError is returned by Step when the action is outside the action space.
// The state is never modified when it is returned.
type InvalidActionError struct {
	Action int
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %d: must be in [0, %d]", e.Action, NumActions-1)
}

// IsInvalidAction reports whether err is, or wraps, an InvalidActionError
func IsInvalidAction(err error) bool {
	var target *InvalidActionError
	return errors.As(err, &target)
}
