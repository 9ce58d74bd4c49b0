// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
)

// Runtime identifies a supported container runtime. The set is closed: a
// Manager is bound to exactly one Runtime for its lifetime and every
// per-runtime branch in this package switches exhaustively on it.
type Runtime string

const (
	RuntimeDocker      Runtime = "docker"
	RuntimeApptainer   Runtime = "apptainer"
	RuntimeSingularity Runtime = "singularity"
	RuntimePodman      Runtime = "podman"
)

// SupportedRuntimes lists all runtimes in the general preference order:
// daemonless single-file runtimes first, then rootless Podman, then Docker.
// Podman is deliberately probed ahead of Docker so that a system whose
// "docker" binary is really a Podman compatibility shim resolves to Podman.
var SupportedRuntimes = []Runtime{
	RuntimeApptainer,
	RuntimeSingularity,
	RuntimePodman,
	RuntimeDocker,
}

// hpcPreferredRuntimes is the probe order used when the process appears to be
// on an HPC node. Docker is excluded because it typically requires a
// root-owned daemon that clusters forbid.
var hpcPreferredRuntimes = []Runtime{
	RuntimeApptainer,
	RuntimeSingularity,
	RuntimePodman,
}

var (
	// ErrNoRuntimeFound is returned when no supported container runtime
	// could be detected on the host.
	ErrNoRuntimeFound = errors.New(
		"no supported container runtime found: install Docker, Apptainer, Singularity, or Podman")

	// ErrUnknownRuntime is the sentinel wrapped by UnknownRuntimeError.
	ErrUnknownRuntime = errors.New("unknown container runtime")
)

// UnknownRuntimeError is returned when a runtime name (e.g. from the
// VENVOY_HOST_RUNTIME environment variable) is not one of the four supported
// runtimes.
type UnknownRuntimeError struct {
	Value string
}

// Error implements the error interface.
func (e *UnknownRuntimeError) Error() string {
	return fmt.Sprintf("unknown container runtime %q (supported: docker, apptainer, singularity, podman)", e.Value)
}

// Unwrap returns ErrUnknownRuntime for errors.Is compatibility.
func (e *UnknownRuntimeError) Unwrap() error { return ErrUnknownRuntime }

// ParseRuntime maps a runtime name to its Runtime value.
func ParseRuntime(s string) (Runtime, error) {
	switch Runtime(s) {
	case RuntimeDocker, RuntimeApptainer, RuntimeSingularity, RuntimePodman:
		return Runtime(s), nil
	default:
		return "", &UnknownRuntimeError{Value: s}
	}
}

// String returns the runtime name, which is also its binary name on PATH.
func (r Runtime) String() string { return string(r) }

// Binary returns the name of the runtime's CLI binary.
func (r Runtime) Binary() string { return string(r) }

// Validate returns an error if the Runtime is not one of the four supported
// runtimes.
func (r Runtime) Validate() error {
	switch r {
	case RuntimeDocker, RuntimeApptainer, RuntimeSingularity, RuntimePodman:
		return nil
	default:
		return &UnknownRuntimeError{Value: string(r)}
	}
}

// UsesSIF reports whether the runtime consumes flat single-file images
// (Singularity Image Format) instead of a layered image store.
func (r Runtime) UsesSIF() bool {
	return r == RuntimeApptainer || r == RuntimeSingularity
}

// TracksContainers reports whether the runtime has a persistent named
// container model that supports stop/ps/logs. Apptainer and Singularity run
// foreground processes and keep no container registry.
func (r Runtime) TracksContainers() bool {
	return r == RuntimeDocker || r == RuntimePodman
}
