package domain

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrEntryNotFound   = errors.New("catalog entry not found")
	ErrDuplicateCode   = errors.New("catalog entry code already exists")
)

// ConfigurationError aborts a run before any processing.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(setting, reason string, err error) error {
	return &ConfigurationError{Setting: setting, Reason: reason, Err: err}
}

// PersistenceConflict is an unexpected catalog store failure mid-batch. The whole
// batch is rolled back when it occurs.
type PersistenceConflict struct {
	Op   string
	Code string
	Err  error
}

func (e *PersistenceConflict) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("persistence conflict: %s %q: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("persistence conflict: %s: %v", e.Op, e.Err)
}

func (e *PersistenceConflict) Unwrap() error {
	return e.Err
}
