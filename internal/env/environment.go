// SPDX-License-Identifier: MPL-2.0

package env

import (
	"fmt"
	"path/filepath"

	"venvoy/pkg/types"
)

const (
	// metadataFileName is the per-environment metadata file.
	metadataFileName = "config.yaml"
	// dockerfileName is the generated per-environment Dockerfile.
	dockerfileName = "Dockerfile"
	// vendorDirName holds wheels downloaded by freeze.
	vendorDirName = "vendor"
	// projectsDirName is the directory under the user's home that collects
	// auto-saved environment.yml exports. It lives outside ~/.venvoy so that
	// wiping venvoy state never destroys reproducibility records.
	projectsDirName = "venvoy-projects"

	// defaultImageRepository publishes the prebuilt venvoy base images.
	defaultImageRepository = "zaphodbeeblebrox3rd/venvoy"
)

// Environment resolves the on-disk layout for one named environment. It is
// a value: construction never touches the filesystem.
type Environment struct {
	Name types.EnvironmentName

	// stateDir is ~/.venvoy and userHome the user's home directory.
	stateDir string
	userHome string
}

// Dir returns the environment's state directory,
// ~/.venvoy/environments/<name>.
func (e Environment) Dir() string {
	return filepath.Join(e.stateDir, "environments", string(e.Name))
}

// MetadataPath returns the environment's config.yaml path.
func (e Environment) MetadataPath() string {
	return filepath.Join(e.Dir(), metadataFileName)
}

// DockerfilePath returns the environment's generated Dockerfile path.
func (e Environment) DockerfilePath() string {
	return filepath.Join(e.Dir(), dockerfileName)
}

// VendorDir returns the directory wheels are vendored into.
func (e Environment) VendorDir() string {
	return filepath.Join(e.Dir(), vendorDirName)
}

// RequirementsPath returns the pip requirements file path. Dev requirements
// live alongside in requirements-dev.txt.
func (e Environment) RequirementsPath() string {
	return filepath.Join(e.Dir(), "requirements.txt")
}

// DevRequirementsPath returns the dev requirements file path.
func (e Environment) DevRequirementsPath() string {
	return filepath.Join(e.Dir(), "requirements-dev.txt")
}

// CondaRequirementsPath returns the conda requirements file written when an
// export is restored.
func (e Environment) CondaRequirementsPath() string {
	return filepath.Join(e.Dir(), "conda-requirements.txt")
}

// ProjectsDir returns the auto-save export directory,
// ~/venvoy-projects/<name>.
func (e Environment) ProjectsDir() string {
	return filepath.Join(e.userHome, projectsDirName, string(e.Name))
}

// ContainerName returns the name of the environment's running container.
func (e Environment) ContainerName() string {
	return e.Name.ContainerName()
}

// LocalImageTag returns the tag a locally built image for this environment
// carries.
func (e Environment) LocalImageTag(version string) string {
	return fmt.Sprintf("venvoy/%s:%s", e.Name, version)
}

// DefaultImage returns the prebuilt remote image for a kind and version,
// e.g. zaphodbeeblebrox3rd/venvoy:python3.11.
func DefaultImage(kind Kind, version string) string {
	return fmt.Sprintf("%s:%s%s", defaultImageRepository, kind, version)
}
