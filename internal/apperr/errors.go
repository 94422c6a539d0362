// Package apperr defines the error taxonomy shared across pipeline stages.
package apperr

import (
	"errors"
	"fmt"
)

// ErrValidation marks a malformed inbound event or request. No side
// effects have been attempted when it is returned.
var ErrValidation = errors.New("validation failed")

// Upstream wraps a collaborator failure (blob store, index, text
// generation). It propagates as a stage failure; recovery is re-invocation.
func Upstream(op string, err error) error {
	return fmt.Errorf("upstream %s: %w", op, err)
}
