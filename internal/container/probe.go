// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// defaultProbeTimeout bounds the version query sent to each candidate binary.
// A runtime whose CLI cannot answer --version in this window is useless to us
// anyway.
const defaultProbeTimeout = 5 * time.Second

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves a binary name on PATH.
	LookPathFunc func(file string) (string, error)

	// ProberOption configures a Prober.
	ProberOption func(*Prober)

	// Prober answers whether a specific runtime binary is installed and
	// actually working, not merely present on PATH. It keeps no state and
	// has no side effects beyond short subprocess executions; every probe
	// failure is downgraded to "not available", never surfaced as an error.
	Prober struct {
		lookPath    LookPathFunc
		execCommand ExecCommandFunc
		timeout     time.Duration
		logger      *log.Logger
	}

	// dockerProbe is the outcome of the Docker-specific probe. Suspect is
	// set when the docker binary could not be confirmed as genuine Docker:
	// either it is a Podman compatibility shim, or the buildx signature
	// check was inconclusive and docker was trusted at face value.
	dockerProbe struct {
		Available bool
		Suspect   bool
	}
)

// WithLookPath overrides PATH resolution for testing.
func WithLookPath(fn LookPathFunc) ProberOption {
	return func(p *Prober) { p.lookPath = fn }
}

// WithProbeExecCommand overrides subprocess creation for testing.
func WithProbeExecCommand(fn ExecCommandFunc) ProberOption {
	return func(p *Prober) { p.execCommand = fn }
}

// WithProbeTimeout overrides the per-probe timeout.
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) { p.timeout = d }
}

// NewProber creates a Prober backed by the real PATH and real subprocesses.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		lookPath:    exec.LookPath,
		execCommand: exec.CommandContext,
		timeout:     defaultProbeTimeout,
		logger:      log.NewWithOptions(os.Stderr, log.Options{Prefix: "probe"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsAvailable reports whether the runtime's CLI binary resolves on PATH and
// responds to a version query. For Docker it additionally rules out a
// Podman-provided docker shim (see probeDocker).
func (p *Prober) IsAvailable(ctx context.Context, rt Runtime) bool {
	if rt == RuntimeDocker {
		return p.probeDocker(ctx).Available
	}
	if _, err := p.lookPath(rt.Binary()); err != nil {
		return false
	}
	ok := p.versionQuery(ctx, rt.Binary()) == nil
	p.logger.Debug("probed runtime", "runtime", rt, "available", ok)
	return ok
}

// DockerStatus reports whether docker is usable and whether its identity is
// suspect. Suspect dockers get speculative registry qualification on image
// references, since Podman shims resolve short names differently.
func (p *Prober) DockerStatus(ctx context.Context) (available, suspect bool) {
	probe := p.probeDocker(ctx)
	return probe.Available, probe.Suspect
}

// Version returns the runtime's version string (the trimmed output of
// `<binary> --version`).
func (p *Prober) Version(ctx context.Context, rt Runtime) (string, error) {
	out, err := p.output(ctx, rt.Binary(), "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// probeDocker applies the Docker-specific heuristics. A docker binary is
// treated as unavailable when its version string admits to being Podman, or
// when its buildx signature is missing while a real podman binary exists (in
// which case selecting Podman directly is strictly better than driving it
// through the shim). The heuristic inspects CLI output text and is known to
// be fragile against formatting changes in either tool.
func (p *Prober) probeDocker(ctx context.Context) dockerProbe {
	if _, err := p.lookPath(RuntimeDocker.Binary()); err != nil {
		return dockerProbe{}
	}

	version, err := p.output(ctx, "docker", "--version")
	if err != nil {
		return dockerProbe{}
	}
	if strings.Contains(strings.ToLower(version), "podman") {
		p.logger.Debug("docker binary is a podman shim", "version", strings.TrimSpace(version))
		return dockerProbe{Suspect: true}
	}

	// Genuine Docker ships buildx; the Podman shim does not.
	buildx, buildxErr := p.output(ctx, "docker", "buildx", "version")
	if buildxErr == nil && dockerBuildxSignature(buildx) {
		return dockerProbe{Available: true}
	}

	if p.binaryExists(RuntimePodman.Binary()) {
		// Ambiguous docker, real podman present: prefer podman.
		p.logger.Debug("docker buildx signature missing, preferring podman")
		return dockerProbe{Suspect: true}
	}

	// No podman to fall back to; trust a responding daemon as evidence of
	// working Docker, flagged suspect so image names get the speculative
	// docker.io/ qualification a shim would need.
	if err := p.versionQuery(ctx, "docker", "info"); err != nil {
		return dockerProbe{}
	}
	return dockerProbe{Available: true, Suspect: buildxErr != nil || !dockerBuildxSignature(buildx)}
}

// dockerBuildxSignature reports whether buildx version output looks like
// genuine Docker buildx.
func dockerBuildxSignature(out string) bool {
	return strings.Contains(out, "buildx v") || strings.Contains(out, "docker.com/buildx")
}

// binaryExists reports whether a binary resolves on PATH.
func (p *Prober) binaryExists(name string) bool {
	_, err := p.lookPath(name)
	return err == nil
}

// versionQuery runs the binary with the given args (default "--version") and
// reports only success or failure. Spawn errors count as failure.
func (p *Prober) versionQuery(ctx context.Context, binary string, args ...string) error {
	if len(args) == 0 {
		args = []string{"--version"}
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.execCommand(ctx, binary, args...).Run()
}

// output runs the binary and returns its combined output. Any spawn or exit
// failure is returned as an error; callers downgrade it to "unavailable".
func (p *Prober) output(ctx context.Context, binary string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	out, err := p.execCommand(ctx, binary, args...).CombinedOutput()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
