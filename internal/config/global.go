// SPDX-License-Identifier: MPL-2.0

package config

// homeDirOverride allows tests to override the state directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var homeDirOverride string

// Reset clears test overrides. Call from test cleanup to restore defaults.
func Reset() {
	homeDirOverride = ""
}

// SetHomeDirOverride sets a custom state directory path.
// This is primarily intended for testing to bypass os.UserHomeDir() which
// doesn't reliably respect the HOME env var on all platforms (e.g., macOS in CI).
func SetHomeDirOverride(dir string) {
	homeDirOverride = dir
}
