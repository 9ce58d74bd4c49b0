// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into guidance. It defines the ActionableError
// carrier (operation, resource, suggestions) used across venvoy, plus a
// catalog of known issues rendered as Markdown cards when a command fails in
// a recognized way, such as no container runtime being installed.
package issue
