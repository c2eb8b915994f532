package remote

import (
	"errors"
	"fmt"
)

// CallError reports a failed collaborator call. The engine does not
// distinguish not-found from other failures; the cause stays reachable
// through errors.Is/As.
type CallError struct {
	Op   string
	Path string
	Err  error
}

func (e *CallError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Wrap turns a collaborator failure into a CallError. A nil err stays nil
// and an existing CallError is returned unchanged.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Op: op, Path: path, Err: err}
}

// IsCallError reports whether err came from a collaborator call.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}
