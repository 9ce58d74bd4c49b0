// SPDX-License-Identifier: MPL-2.0

package container

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// psFormat is the --format template used for docker/podman ps. Seven
// pipe-delimited fields; parsePSOutput splits on the pipe.
const psFormat = "{{.ID}}|{{.Image}}|{{.Command}}|{{.CreatedAt}}|{{.Status}}|{{.Ports}}|{{.Names}}"

// singularityEntrypoint is the well-known entrypoint script baked into
// venvoy images. Singularity invokes it when no explicit command is given,
// since `singularity exec` has no image-default command to fall back on.
const singularityEntrypoint = "/usr/local/bin/venvoy-entrypoint.sh"

type (
	// RunSpec describes a container launch in runtime-agnostic terms.
	RunSpec struct {
		// Image is the remote image reference (registry/repo:tag form).
		Image string
		// Name is the container name. Ignored by Apptainer/Singularity,
		// which have no named-container model.
		Name string
		// Command is a shell command string; empty means the image default
		// (or, for Singularity, the well-known venvoy entrypoint).
		Command string
		// Volumes are bind mounts, applied in order.
		Volumes []VolumeMount
		// Ports are port mappings, applied in order. Ignored by
		// Apptainer/Singularity.
		Ports []PortMapping
		// Env are environment variables set inside the container.
		Env map[string]string
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Detach launches the container in the background.
		Detach bool
		// Interactive attaches stdin and allocates a TTY.
		Interactive bool
		// Remove deletes the container when it exits.
		Remove bool

		// Stdin, Stdout, Stderr are wired to the foreground subprocess.
		// nil values inherit the venvoy process's own streams.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// BuildSpec describes an image build.
	BuildSpec struct {
		// Dockerfile is the path to the Dockerfile.
		Dockerfile string
		// Tag is the image tag to produce.
		Tag string
		// ContextDir is the build context directory.
		ContextDir string
		// Stdout and Stderr receive build output.
		Stdout io.Writer
		Stderr io.Writer
	}

	// ContainerInfo is one row of a container listing.
	ContainerInfo struct {
		ID      string
		Image   string
		Command string
		Created string
		Status  string
		Ports   string
		Name    string
	}
)

// Validate checks the typed fields of a RunSpec.
func (s RunSpec) Validate() error {
	if strings.TrimSpace(s.Image) == "" {
		return fmt.Errorf("run spec: image must not be empty")
	}
	for _, v := range s.Volumes {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	for _, p := range s.Ports {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// pullArgs builds the argument vector for an image pull. For SIF runtimes
// the destination cache path must be supplied; for Docker/Podman it is
// ignored.
func pullArgs(rt Runtime, image, sifPath string) []string {
	switch rt {
	case RuntimeDocker, RuntimePodman:
		return []string{rt.Binary(), "pull", image}
	case RuntimeApptainer, RuntimeSingularity:
		return []string{rt.Binary(), "pull", sifPath, DockerURI(image)}
	default:
		panic(fmt.Sprintf("unsupported runtime %q", rt))
	}
}

// runArgs builds the argument vector for a container run. image is the
// already-normalized reference for Docker/Podman, the local SIF path for
// Apptainer, and ignored for Singularity (which resolves the docker:// URI
// itself from spec.Image).
func runArgs(rt Runtime, spec RunSpec, image string) []string {
	switch rt {
	case RuntimeDocker, RuntimePodman:
		return cliRunArgs(rt, spec, image)
	case RuntimeApptainer:
		return apptainerRunArgs(spec, image)
	case RuntimeSingularity:
		return singularityRunArgs(spec)
	default:
		panic(fmt.Sprintf("unsupported runtime %q", rt))
	}
}

// cliRunArgs builds docker/podman run arguments in a fixed flag order:
// name, detach, volumes, ports, environment, workdir, image, command.
func cliRunArgs(rt Runtime, spec RunSpec, image string) []string {
	args := []string{rt.Binary(), "run"}

	if spec.Remove {
		args = append(args, "--rm")
	}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	if spec.Detach {
		args = append(args, "-d")
	} else if spec.Interactive {
		args = append(args, "-it")
	}

	if rt == RuntimePodman {
		// Without keep-id, files written through bind mounts end up owned
		// by the container's root-mapped UID and become unusable from the
		// host. Correctness, not an optimization.
		args = append(args, "--userns=keep-id")
	}

	for _, v := range spec.Volumes {
		args = append(args, "-v", v.Flag())
	}
	for _, p := range spec.Ports {
		args = append(args, "-p", p.Flag())
	}
	for _, k := range slices.Sorted(maps.Keys(spec.Env)) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}

	args = append(args, image)
	args = append(args, commandArgs(rt, spec.Command)...)
	return args
}

// commandArgs renders the command string for docker/podman. Podman passes
// simple no-metacharacter invocations literally (the bootstrap script issues
// commands like "sleep infinity" this way); everything else goes through
// sh -c.
func commandArgs(rt Runtime, command string) []string {
	if command == "" {
		return nil
	}
	if rt == RuntimePodman {
		if fields, ok := SplitSimpleCommand(command); ok {
			return fields
		}
	}
	return []string{"sh", "-c", command}
}

// apptainerRunArgs builds apptainer run arguments. There is no container
// name or port concept; volumes become --bind flags and the image argument
// is the local SIF path.
func apptainerRunArgs(spec RunSpec, sifPath string) []string {
	args := []string{RuntimeApptainer.Binary(), "run"}
	for _, v := range spec.Volumes {
		args = append(args, "--bind", v.Flag())
	}
	for _, k := range slices.Sorted(maps.Keys(spec.Env)) {
		args = append(args, "--env", k+"="+spec.Env[k])
	}
	args = append(args, sifPath)
	if spec.Command != "" {
		args = append(args, "sh", "-c", spec.Command)
	}
	return args
}

// singularityRunArgs builds singularity exec arguments. Unlike Apptainer we
// hand Singularity the docker:// URI directly and let it resolve and cache
// the image itself.
func singularityRunArgs(spec RunSpec) []string {
	args := []string{RuntimeSingularity.Binary(), "exec"}
	for _, v := range spec.Volumes {
		args = append(args, "--bind", v.Flag())
	}
	for _, k := range slices.Sorted(maps.Keys(spec.Env)) {
		args = append(args, "--env", k+"="+spec.Env[k])
	}
	args = append(args, DockerURI(spec.Image))
	if spec.Command != "" {
		args = append(args, "sh", "-c", spec.Command)
	} else {
		args = append(args, singularityEntrypoint)
	}
	return args
}

// stopArgs builds the argument vector for stopping a named container, or nil
// for runtimes with no persistent container model.
func stopArgs(rt Runtime, name string) []string {
	switch rt {
	case RuntimeDocker, RuntimePodman:
		return []string{rt.Binary(), "stop", name}
	case RuntimeApptainer, RuntimeSingularity:
		return nil
	default:
		panic(fmt.Sprintf("unsupported runtime %q", rt))
	}
}

// psArgs builds the argument vector for listing containers, or nil for
// runtimes with no persistent container model.
func psArgs(rt Runtime, all bool) []string {
	switch rt {
	case RuntimeDocker, RuntimePodman:
		args := []string{rt.Binary(), "ps"}
		if all {
			args = append(args, "-a")
		}
		return append(args, "--format", psFormat)
	case RuntimeApptainer, RuntimeSingularity:
		return nil
	default:
		panic(fmt.Sprintf("unsupported runtime %q", rt))
	}
}

// statusArgs builds the argument vector that reports the status of one named
// container, used by the detached-run integrity check.
func statusArgs(rt Runtime, name string) []string {
	return []string{rt.Binary(), "ps", "--filter", "name=" + name, "--format", "{{.Status}}"}
}

// logsArgs builds the argument vector that fetches a container's log output.
func logsArgs(rt Runtime, name string) []string {
	return []string{rt.Binary(), "logs", name}
}

// execArgs builds the argument vector that runs a command inside a running
// named container.
func execArgs(rt Runtime, name string, command []string) []string {
	args := []string{rt.Binary(), "exec", name}
	return append(args, command...)
}

// buildImageArgs builds the argument vector for an image build. For SIF
// runtimes deffile must be the already-converted definition file.
func buildImageArgs(rt Runtime, spec BuildSpec, deffile string) []string {
	switch rt {
	case RuntimeDocker, RuntimePodman:
		return []string{rt.Binary(), "build", "-t", spec.Tag, "-f", spec.Dockerfile, spec.ContextDir}
	case RuntimeApptainer, RuntimeSingularity:
		return []string{rt.Binary(), "build", spec.Tag + ".sif", deffile}
	default:
		panic(fmt.Sprintf("unsupported runtime %q", rt))
	}
}

// parsePSOutput parses docker/podman ps output produced with psFormat. Lines
// that do not split into at least seven pipe-delimited fields are dropped;
// blank lines are skipped. A malformed listing never raises.
func parsePSOutput(out string) []ContainerInfo {
	var containers []ContainerInfo
	for line := range strings.SplitSeq(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 7 {
			continue
		}
		containers = append(containers, ContainerInfo{
			ID:      parts[0],
			Image:   parts[1],
			Command: parts[2],
			Created: parts[3],
			Status:  parts[4],
			Ports:   parts[5],
			Name:    parts[6],
		})
	}
	return containers
}
