// SPDX-License-Identifier: MPL-2.0

package container

import "strings"

// defaultRegistry is prepended to repo-qualified image references for
// runtimes that refuse short names (Podman, and a docker binary suspected of
// being a Podman shim).
const defaultRegistry = "docker.io/"

// NormalizeImageRef fully qualifies an image reference for Podman. A
// reference with a repo path (contains "/") but no docker.io/ prefix gets
// the prefix prepended; bare single-segment names are left alone, since
// Podman resolves those through its own registries.conf. The function is
// idempotent.
func NormalizeImageRef(ref string) string {
	if !strings.Contains(ref, "/") {
		return ref
	}
	if strings.HasPrefix(ref, defaultRegistry) {
		return ref
	}
	return defaultRegistry + ref
}

// DockerURI translates an image reference to the docker:// form Apptainer
// and Singularity use to pull from OCI registries.
func DockerURI(ref string) string {
	return "docker://" + ref
}

// SIFFileName maps an image reference to its on-disk cache file name: every
// "/" and ":" replaced with "-", suffixed ".si". Pure function; the same
// reference always maps to the same file.
func SIFFileName(ref string) string {
	sanitized := strings.NewReplacer("/", "-", ":", "-").Replace(ref)
	return sanitized + ".si"
}
