// SPDX-License-Identifier: MPL-2.0

// Package config loads venvoy's user configuration.
//
// Configuration lives at ~/.venvoy/config.yaml and is optional: every field
// has a default, and a missing file is not an error. Values can also be set
// through VENVOY_-prefixed environment variables.
package config
