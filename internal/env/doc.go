// SPDX-License-Identifier: MPL-2.0

// Package env manages the lifecycle of portable computational environments.
//
// An environment is a named, versioned Python or R workspace backed by a
// container image. The package owns the on-disk state under ~/.venvoy
// (per-environment metadata, generated Dockerfiles, vendored wheels) and
// under ~/venvoy-projects (timestamped environment.yml exports), and drives
// the selected container runtime through internal/container for everything
// that must happen inside a container: package installation, dependency
// listing, wheel downloads.
//
// The split matters: host-side operations are file management and container
// orchestration only; package-manager semantics stay inside the container
// and are invoked as opaque commands.
package env
