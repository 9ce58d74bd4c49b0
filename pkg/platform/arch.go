// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OCI platform name constants. Environment images are linux-only; the host
// OS never enters the platform selector.
const (
	Linux = "linux"
	AMD64 = "amd64"
	ARM64 = "arm64"
)

// NormalizeArch maps a GOARCH-style or uname-style architecture string to
// the OCI platform name multi-arch images are published under. Unknown
// values pass through unchanged so exotic platforms fail at pull time with
// the registry's own message instead of a hidden rewrite.
func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64", "amd64":
		return AMD64
	case "aarch64", "arm64":
		return ARM64
	default:
		return arch
	}
}

// HostArch returns the OCI platform name of the current host.
func HostArch() string {
	return NormalizeArch(runtime.GOARCH)
}

// HostOCIPlatform returns the "os/arch" platform selector for the current
// host, e.g. "linux/arm64".
func HostOCIPlatform() string {
	return Linux + "/" + HostArch()
}
