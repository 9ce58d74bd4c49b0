// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidEnvironmentName is the sentinel error wrapped by InvalidEnvironmentNameError.
var ErrInvalidEnvironmentName = errors.New("invalid environment name")

// environmentNamePattern matches names that are safe to reuse verbatim as
// container names and registry keys: an alphanumeric start followed by
// alphanumerics, underscores, dots, or hyphens.
var environmentNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// maxEnvironmentNameLength bounds names so derived container and image tags
// stay within runtime limits.
const maxEnvironmentNameLength = 63

type (
	// EnvironmentName identifies a managed environment. The name doubles as
	// the container name and the registry key, so it must satisfy container
	// naming rules for every supported runtime.
	EnvironmentName string

	// InvalidEnvironmentNameError is returned when an EnvironmentName does
	// not satisfy container naming rules.
	InvalidEnvironmentNameError struct {
		Value  EnvironmentName
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidEnvironmentNameError) Error() string {
	return fmt.Sprintf("invalid environment name %q: %s", string(e.Value), e.Reason)
}

// Unwrap returns ErrInvalidEnvironmentName so callers can use errors.Is for programmatic detection.
func (e *InvalidEnvironmentNameError) Unwrap() error { return ErrInvalidEnvironmentName }

// Validate returns an error if the EnvironmentName is empty, too long, or
// contains characters rejected by container runtimes.
func (n EnvironmentName) Validate() error {
	if n == "" {
		return &InvalidEnvironmentNameError{Value: n, Reason: "must not be empty"}
	}
	if len(n) > maxEnvironmentNameLength {
		return &InvalidEnvironmentNameError{
			Value:  n,
			Reason: fmt.Sprintf("must be at most %d characters", maxEnvironmentNameLength),
		}
	}
	if !environmentNamePattern.MatchString(string(n)) {
		return &InvalidEnvironmentNameError{
			Value:  n,
			Reason: "must start with a letter or digit and contain only letters, digits, '_', '.', and '-'",
		}
	}
	return nil
}

// ContainerName returns the name of the session container for this
// environment. This is the single derivation; everything that stops, polls,
// or lists session containers goes through it.
func (n EnvironmentName) ContainerName() string { return string(n) + "-runtime" }

// String returns the EnvironmentName as a plain string.
func (n EnvironmentName) String() string { return string(n) }
