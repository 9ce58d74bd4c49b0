// SPDX-License-Identifier: MPL-2.0

package container

import (
	"os"
	"strings"
)

const (
	// HostRuntimeEnv is set by venvoy's own container images when the CLI
	// runs nested inside a container it spawned. Its value names the host
	// runtime so the nested process does not re-probe binaries that only
	// exist on the host.
	HostRuntimeEnv = "VENVOY_HOST_RUNTIME"

	// dockerEnvFile exists at the root of every Docker container filesystem.
	dockerEnvFile = "/.dockerenv"

	// cgroupFile is scanned for container runtime markers.
	cgroupFile = "/proc/1/cgroup"
)

// hpcIndicatorVars are environment variables whose mere presence marks an
// HPC node. The first four come from batch schedulers; HOSTNAME is included
// because HPC systems export it with node-specific patterns, at the cost of
// matching any interactive shell that exports it too.
var hpcIndicatorVars = []string{
	"SLURM_JOB_ID",
	"PBS_JOBID",
	"LSB_JOBID",
	"SGE_JOB_ID",
	"HOSTNAME",
}

// hpcHostnameMarkers are substrings commonly found in HPC node hostnames.
var hpcHostnameMarkers = []string{"login", "compute", "node", "hpc", "cluster"}

// containerMarkerVars are environment variables that container runtimes set
// inside the containers they launch, in the order they are checked for
// runtime inference.
var containerMarkerVars = []struct {
	name    string
	runtime Runtime
}{
	{"APPTAINER_NAME", RuntimeApptainer},
	{"APPTAINER_CONTAINER", RuntimeApptainer},
	{"SINGULARITY_NAME", RuntimeSingularity},
	{"SINGULARITY_CONTAINER", RuntimeSingularity},
	{"PODMAN_CONTAINER", RuntimePodman},
	{"DOCKER_CONTAINER", RuntimeDocker},
}

// venvoyMountPaths is the pair of mount points every venvoy-generated
// container image creates. Both being present is a strong signal that the
// process runs inside one of our own containers, as opposed to an arbitrary
// third-party one.
var venvoyMountPaths = [2]string{"/workspace", "/home/venvoy"}

type (
	// ExecutionContext is a snapshot of the environment facts the runtime
	// selector consults. It is computed once per detection pass and passed
	// explicitly, so selection logic stays testable without ambient
	// os.Getenv reads.
	ExecutionContext struct {
		// HPC reports whether the process appears to run on an HPC
		// scheduler node. This is a heuristic biased toward true: any
		// shell that exports HOSTNAME matches. Accepted tradeoff for
		// zero-configuration operation.
		HPC bool
		// InsideContainer reports whether the process itself already runs
		// inside a container.
		InsideContainer bool
		// HostRuntimeHint is the value of VENVOY_HOST_RUNTIME, or empty.
		HostRuntimeHint string
	}

	// DetectorOption configures a Detector.
	DetectorOption func(*Detector)

	// Detector derives an ExecutionContext from environment variables and
	// filesystem markers. All inputs are injectable for tests.
	Detector struct {
		getenv   func(string) string
		pathStat func(string) bool
		readFile func(string) ([]byte, error)
	}
)

// WithGetenv overrides environment variable lookup.
func WithGetenv(fn func(string) string) DetectorOption {
	return func(d *Detector) { d.getenv = fn }
}

// WithPathStat overrides filesystem existence checks.
func WithPathStat(fn func(string) bool) DetectorOption {
	return func(d *Detector) { d.pathStat = fn }
}

// WithReadFile overrides file reads (used for /proc/1/cgroup).
func WithReadFile(fn func(string) ([]byte, error)) DetectorOption {
	return func(d *Detector) { d.readFile = fn }
}

// NewDetector creates a Detector backed by the real environment.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		getenv: os.Getenv,
		pathStat: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Snapshot computes the ExecutionContext once. Callers should reuse the
// returned value rather than re-detecting per operation.
func (d *Detector) Snapshot() ExecutionContext {
	return ExecutionContext{
		HPC:             d.IsHPCEnvironment(),
		InsideContainer: d.IsInsideContainer(),
		HostRuntimeHint: d.getenv(HostRuntimeEnv),
	}
}

// IsHPCEnvironment reports whether the process appears to be on an HPC
// scheduler node: any indicator environment variable is set, or the hostname
// contains a cluster-ish substring. The substring check only matters for
// callers that feed hostnames from somewhere other than HOSTNAME itself,
// since a set HOSTNAME already satisfies the first loop.
func (d *Detector) IsHPCEnvironment() bool {
	for _, v := range hpcIndicatorVars {
		if d.getenv(v) != "" {
			return true
		}
	}
	hostname := strings.ToLower(d.getenv("HOSTNAME"))
	for _, marker := range hpcHostnameMarkers {
		if strings.Contains(hostname, marker) {
			return true
		}
	}
	return false
}

// IsInsideContainer reports whether the process itself already runs inside a
// container: a runtime marker variable is set, the Docker marker file exists,
// PID 1's cgroup names a container runtime, or both venvoy mount paths are
// present.
func (d *Detector) IsInsideContainer() bool {
	for _, m := range containerMarkerVars {
		if d.getenv(m.name) != "" {
			return true
		}
	}
	if d.pathStat(dockerEnvFile) {
		return true
	}
	if d.cgroupRuntime() != "" {
		return true
	}
	return d.pathStat(venvoyMountPaths[0]) && d.pathStat(venvoyMountPaths[1])
}

// InferRuntime maps container markers to the runtime that most likely
// launched this process. Used as a last resort when no runtime binary can be
// probed (typical inside a container, where the host's binaries are not
// mounted).
func (d *Detector) InferRuntime() (Runtime, bool) {
	for _, m := range containerMarkerVars {
		if d.getenv(m.name) != "" {
			return m.runtime, true
		}
	}
	if d.pathStat(dockerEnvFile) {
		return RuntimeDocker, true
	}
	switch d.cgroupRuntime() {
	case "podman":
		return RuntimePodman, true
	case "docker", "containerd", "crio":
		return RuntimeDocker, true
	}
	return "", false
}

// cgroupRuntime returns the first container runtime named in PID 1's cgroup
// membership, or empty. Read failures (non-Linux hosts, restricted /proc)
// are treated as "no marker".
func (d *Detector) cgroupRuntime() string {
	data, err := d.readFile(cgroupFile)
	if err != nil {
		return ""
	}
	content := string(data)
	for _, marker := range []string{"podman", "docker", "containerd", "crio"} {
		if strings.Contains(content, marker) {
			return marker
		}
	}
	return ""
}
