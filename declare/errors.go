package declare

import (
	"errors"
	"fmt"
)

// Declaration loading errors.
var (
	ErrUnsupportedFile = errors.New("declare: unsupported declaration file")
	ErrInvalidItem     = errors.New("declare: invalid item")
)

// LoadError wraps a failure to read or decode one declaration file.
type LoadError struct {
	Path      string
	Namespace string
	Cause     error
}

func (e *LoadError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("loading %s: %v", e.Path, e.Cause)
	}

	return fmt.Sprintf("loading %s (namespace %s): %v", e.Path, e.Namespace, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// MergeError reports declarations of one namespace that cannot be combined.
type MergeError struct {
	Code    string // e.g., "duplicate-item"
	Message string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
