// SPDX-License-Identifier: MPL-2.0

package env

import (
	"errors"
	"fmt"

	"venvoy/pkg/types"
)

var (
	// ErrEnvironmentNotFound is the sentinel error wrapped by NotFoundError.
	ErrEnvironmentNotFound = errors.New("environment not found")

	// ErrEnvironmentExists is the sentinel error wrapped by AlreadyExistsError.
	ErrEnvironmentExists = errors.New("environment already exists")
)

type (
	// NotFoundError is returned when an operation names an environment that
	// has not been initialized.
	NotFoundError struct {
		Name types.EnvironmentName
	}

	// AlreadyExistsError is returned when init would overwrite an existing
	// environment without --force.
	AlreadyExistsError struct {
		Name types.EnvironmentName
		Dir  string
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("environment %q not found: run 'venvoy init --name %s' first", e.Name, e.Name)
}

// Unwrap returns ErrEnvironmentNotFound so callers can use errors.Is for programmatic detection.
func (e *NotFoundError) Unwrap() error { return ErrEnvironmentNotFound }

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("environment %q already exists at %s: use --force to reinitialize", e.Name, e.Dir)
}

// Unwrap returns ErrEnvironmentExists so callers can use errors.Is for programmatic detection.
func (e *AlreadyExistsError) Unwrap() error { return ErrEnvironmentExists }
