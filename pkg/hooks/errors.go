package hooks

import (
	"fmt"

	"github.com/glorpus-work/srcmirror/pkg/errors"
)

// Common hook errors.
var (
	// ErrHookTypeEmpty is returned when a hook type is empty.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

	// ErrHookExecution is returned when there's an error executing a hook.
	ErrHookExecution = errors.ErrHookExecution

	// ErrHookScript is returned when there's an error in a hook script.
	ErrHookScript = errors.ErrHookScript

	// ErrHookLoad is returned when there's an error loading a hook.
	ErrHookLoad = errors.ErrHookLoad
)

// ErrUnsupportedHookType is returned when a hook type is unknown.
func ErrUnsupportedHookType(hookType string) error {
	return errors.Wrapf(ErrHookLoad, "unsupported hook type: %s", hookType)
}
