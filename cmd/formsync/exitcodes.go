package main

import (
	"github.com/iota-uz/formsync/modules/catalog/domain"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK      = 0
	exitPartial = 2
	exitUsage   = 3
	exitDB      = 4
	exitDBWrite = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// classify picks the exit code for an error returned by the catalog services.
func classify(err error, fallback int) error {
	if err == nil {
		return nil
	}
	var ce *cliError
	if as(err, &ce) {
		return err
	}
	var cfg *domain.ConfigurationError
	if as(err, &cfg) {
		return withCode(exitUsage, err)
	}
	var conflict *domain.PersistenceConflict
	if as(err, &conflict) {
		return withCode(exitDBWrite, err)
	}
	return withCode(fallback, err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if ok := as(err, &ce); ok {
		return ce.code
	}
	return 1
}
