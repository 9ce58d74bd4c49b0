// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// defaultDetachDelay is how long a detached launch waits before confirming
// the container is still running. A heuristic wait, not a retry loop.
const defaultDetachDelay = 2 * time.Second

type (
	// Manager owns one selected runtime and dispatches every container
	// operation through it. Exactly one Runtime is active per Manager for
	// its whole lifetime; construction performs the selection and the
	// choice is never re-evaluated.
	Manager struct {
		runtime       Runtime
		execCtx       ExecutionContext
		hpc           bool
		dockerSuspect bool

		prober   *Prober
		detector *Detector
		execer   *Execer
		sif      *SIFCache

		// native is the Docker API client, set only when the selected
		// runtime is genuine Docker and the daemon answered a ping at
		// construction. Nil means every operation goes through the CLI.
		native     *NativeClient
		nativeDial func(context.Context) (*NativeClient, error)

		detachDelay time.Duration
		sleep       func(time.Duration)
		logger      *log.Logger
	}

	// ManagerOption configures a Manager prior to runtime selection.
	ManagerOption func(*Manager)

	// RuntimeInfo summarizes the selected runtime for display.
	RuntimeInfo struct {
		Runtime Runtime
		Version string
		HPC     bool
	}

	// ContainerHandle identifies a launched container and knows how to stop
	// it. For runtimes without a persistent container model Stop is a no-op.
	ContainerHandle struct {
		Name    string
		manager *Manager
	}

	// DetachedRunError reports a detached container that launched cleanly
	// but was no longer running moments later. The container's own log
	// output is attached so the entrypoint failure can be diagnosed.
	DetachedRunError struct {
		Name   string
		Status string
		Logs   string
	}
)

func (e *DetachedRunError) Error() string {
	msg := fmt.Sprintf("container %q is not running (status %q)", e.Name, e.Status)
	if e.Logs != "" {
		msg += "\ncontainer logs:\n" + e.Logs
	}
	return msg
}

// WithRuntime pins the runtime, skipping selection entirely.
func WithRuntime(rt Runtime) ManagerOption {
	return func(m *Manager) { m.runtime = rt }
}

// WithProber overrides the runtime prober.
func WithProber(p *Prober) ManagerOption {
	return func(m *Manager) { m.prober = p }
}

// WithDetector overrides the execution-context detector.
func WithDetector(d *Detector) ManagerOption {
	return func(m *Manager) { m.detector = d }
}

// WithExecer overrides the subprocess executor.
func WithExecer(e *Execer) ManagerOption {
	return func(m *Manager) { m.execer = e }
}

// WithSIFCache overrides the SIF image cache.
func WithSIFCache(c *SIFCache) ManagerOption {
	return func(m *Manager) { m.sif = c }
}

// WithDetachDelay overrides the wait before a detached run's status check.
func WithDetachDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.detachDelay = d }
}

// WithSleep overrides the sleep function used by the detached-run check.
func WithSleep(fn func(time.Duration)) ManagerOption {
	return func(m *Manager) { m.sleep = fn }
}

// WithManagerLogger overrides the manager's logger.
func WithManagerLogger(logger *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithNativeDial overrides how the Docker API client is established. Used by
// tests to keep construction away from a real daemon socket.
func WithNativeDial(fn func(context.Context) (*NativeClient, error)) ManagerOption {
	return func(m *Manager) { m.nativeDial = fn }
}

// NewManager snapshots the execution context, selects a runtime, and returns
// a Manager bound to it. Returns ErrNoRuntimeFound (possibly wrapped) when
// no runtime can be established.
func NewManager(ctx context.Context, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		detachDelay: defaultDetachDelay,
		sleep:       time.Sleep,
		logger:      log.NewWithOptions(os.Stderr, log.Options{Prefix: "container"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.detector == nil {
		m.detector = NewDetector()
	}
	if m.prober == nil {
		m.prober = NewProber()
	}
	if m.execer == nil {
		m.execer = NewExecer()
	}

	m.execCtx = m.detector.Snapshot()
	m.hpc = m.execCtx.HPC

	if m.sif == nil {
		m.sif = NewSIFCache(m.execCtx.InsideContainer)
	}

	if m.runtime == "" {
		rt, err := m.selectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		m.runtime = rt
	} else {
		if err := m.runtime.Validate(); err != nil {
			return nil, err
		}
		// A pinned docker still needs the shim check so image normalization
		// behaves. Hinted and probed selections have already settled it.
		if m.runtime == RuntimeDocker {
			_, m.dockerSuspect = m.prober.DockerStatus(ctx)
		}
	}

	// Genuine Docker gets the API client when the daemon is reachable;
	// shims and every other runtime stay on the CLI path.
	if m.runtime == RuntimeDocker && !m.dockerSuspect {
		if m.nativeDial == nil {
			m.nativeDial = NewNativeClient
		}
		native, err := m.nativeDial(ctx)
		if err != nil {
			m.logger.Debug("docker API unavailable, using CLI", "error", err)
		} else {
			m.native = native
		}
	}

	m.logger.Debug("runtime selected", "runtime", m.runtime, "hpc", m.hpc,
		"inside_container", m.execCtx.InsideContainer, "native_docker", m.native != nil)
	return m, nil
}

// selectRuntime picks the runtime for this manager. Order: the host-runtime
// hint (trusted without probing, since a nested venvoy cannot see the host's
// binaries), then probing in HPC-preferred order when on a cluster, then the
// general preference order, then marker-based inference, then failure.
func (m *Manager) selectRuntime(ctx context.Context) (Runtime, error) {
	if hint := m.execCtx.HostRuntimeHint; hint != "" {
		rt, err := ParseRuntime(hint)
		if err != nil {
			m.logger.Warn("ignoring invalid host runtime hint", "hint", hint)
		} else {
			m.logger.Debug("using host runtime hint", "runtime", rt)
			return rt, nil
		}
	}

	if m.hpc {
		for _, rt := range hpcPreferredRuntimes {
			if m.available(ctx, rt) {
				return rt, nil
			}
		}
	}

	for _, rt := range SupportedRuntimes {
		if m.available(ctx, rt) {
			return rt, nil
		}
	}

	if rt, ok := m.detector.InferRuntime(); ok {
		m.logger.Debug("no runtime probe succeeded, inferred from environment markers", "runtime", rt)
		return rt, nil
	}

	return "", ErrNoRuntimeFound
}

func (m *Manager) available(ctx context.Context, rt Runtime) bool {
	if rt == RuntimeDocker {
		available, suspect := m.prober.DockerStatus(ctx)
		if available {
			m.dockerSuspect = suspect
		}
		return available
	}
	return m.prober.IsAvailable(ctx, rt)
}

// Runtime returns the runtime this manager is bound to.
func (m *Manager) Runtime() Runtime { return m.runtime }

// Context returns the execution-context snapshot taken at construction.
func (m *Manager) Context() ExecutionContext { return m.execCtx }

// GetRuntimeInfo reports the selected runtime, its version string, and
// whether an HPC environment was detected.
func (m *Manager) GetRuntimeInfo(ctx context.Context) RuntimeInfo {
	info := RuntimeInfo{Runtime: m.runtime, HPC: m.hpc}
	version, err := m.prober.Version(ctx, m.runtime)
	if err != nil {
		m.logger.Debug("version query failed", "runtime", m.runtime, "error", err)
		version = "unknown"
	}
	info.Version = version
	return info
}

// normalizeImage applies registry qualification where the runtime needs it:
// always for Podman, and speculatively for a Docker binary suspected of
// being a Podman shim.
func (m *Manager) normalizeImage(image string) string {
	if m.runtime == RuntimePodman || (m.runtime == RuntimeDocker && m.dockerSuspect) {
		return NormalizeImageRef(image)
	}
	return image
}

// PullImage fetches an image. For SIF runtimes the pull converts into the
// local cache and is skipped when the cached file already exists.
func (m *Manager) PullImage(ctx context.Context, image string) error {
	image = m.normalizeImage(image)

	var sifPath string
	if m.runtime.UsesSIF() {
		path, ok := m.sif.Exists(image)
		if ok {
			m.logger.Debug("image already cached", "image", image, "path", path)
			return nil
		}
		var err error
		sifPath, err = m.sif.Path(image)
		if err != nil {
			return err
		}
	}

	m.logger.Info("pulling image", "runtime", m.runtime, "image", image)
	if m.native != nil {
		return m.native.PullImage(ctx, image)
	}
	return m.execer.Run(ctx, pullArgs(m.runtime, image, sifPath), nil, os.Stderr, os.Stderr)
}

// RunContainer launches the container described by spec and returns a handle.
// Detached launches are confirmed still running after a short delay; a
// container that exited immediately is surfaced as a DetachedRunError with
// its logs attached.
func (m *Manager) RunContainer(ctx context.Context, spec RunSpec) (*ContainerHandle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	image := m.normalizeImage(spec.Image)
	if m.runtime == RuntimeApptainer {
		path, err := m.sif.Path(image)
		if err != nil {
			return nil, err
		}
		if _, ok := m.sif.Exists(image); !ok {
			if err := m.PullImage(ctx, spec.Image); err != nil {
				return nil, err
			}
		}
		image = path
	}

	args := runArgs(m.runtime, spec, image)

	if spec.Detach {
		if m.native != nil {
			nativeSpec := spec
			nativeSpec.Image = image
			if _, err := m.native.RunDetached(ctx, nativeSpec); err != nil {
				return nil, err
			}
		} else if _, err := m.execer.Capture(ctx, args); err != nil {
			return nil, err
		}
		if err := m.confirmRunning(ctx, spec.Name); err != nil {
			return nil, err
		}
		return &ContainerHandle{Name: spec.Name, manager: m}, nil
	}

	if err := m.execer.Run(ctx, args, spec.Stdin, spec.Stdout, spec.Stderr); err != nil {
		return nil, err
	}
	return &ContainerHandle{Name: spec.Name, manager: m}, nil
}

// confirmRunning checks a detached container's status after the configured
// delay. A zero-exit launch whose container already died is a failure.
func (m *Manager) confirmRunning(ctx context.Context, name string) error {
	if !m.runtime.TracksContainers() {
		return nil
	}
	m.sleep(m.detachDelay)

	status, err := m.execer.Capture(ctx, statusArgs(m.runtime, name))
	if err != nil {
		status = ""
	}
	lower := strings.ToLower(status)
	if strings.Contains(lower, "up") || strings.Contains(lower, "running") {
		return nil
	}

	logs, logsErr := m.execer.Capture(ctx, logsArgs(m.runtime, name))
	if logsErr != nil {
		m.logger.Debug("could not fetch container logs", "name", name, "error", logsErr)
	}
	return &DetachedRunError{Name: name, Status: status, Logs: logs}
}

// StopContainer stops a named container. Trivially succeeds for runtimes
// with no persistent container model.
func (m *Manager) StopContainer(ctx context.Context, name string) error {
	if m.native != nil {
		return m.native.Stop(ctx, name)
	}
	args := stopArgs(m.runtime, name)
	if args == nil {
		return nil
	}
	_, err := m.execer.Capture(ctx, args)
	return err
}

// ListContainers lists containers known to the runtime. Always empty for
// Apptainer/Singularity.
func (m *Manager) ListContainers(ctx context.Context, all bool) ([]ContainerInfo, error) {
	args := psArgs(m.runtime, all)
	if args == nil {
		return nil, nil
	}
	out, err := m.execer.Capture(ctx, args)
	if err != nil {
		return nil, err
	}
	return parsePSOutput(out), nil
}

// Exec runs a command inside a running named container and returns its
// trimmed output.
func (m *Manager) Exec(ctx context.Context, name string, command []string) (string, error) {
	return m.execer.Capture(ctx, execArgs(m.runtime, name, command))
}

// ExecStreaming runs a command inside a running named container with the
// given streams attached.
func (m *Manager) ExecStreaming(ctx context.Context, name string, command []string, stdin io.Reader, stdout, stderr io.Writer) error {
	return m.execer.Run(ctx, execArgs(m.runtime, name, command), stdin, stdout, stderr)
}

// BuildImage builds an image from a Dockerfile. For SIF runtimes the
// Dockerfile is first rewritten into a best-effort definition file; the
// conversion is approximate and documented as such.
func (m *Manager) BuildImage(ctx context.Context, spec BuildSpec) error {
	stdout := spec.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := spec.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var deffile string
	if m.runtime.UsesSIF() {
		content, err := os.ReadFile(spec.Dockerfile)
		if err != nil {
			return fmt.Errorf("reading dockerfile: %w", err)
		}
		deffile = filepath.Join(filepath.Dir(spec.Dockerfile), filepath.Base(spec.Dockerfile)+".def")
		if err := os.WriteFile(deffile, []byte(DockerfileToDefinition(string(content))), 0o644); err != nil {
			return fmt.Errorf("writing definition file: %w", err)
		}
	}

	m.logger.Info("building image", "runtime", m.runtime, "tag", spec.Tag)
	return m.execer.Run(ctx, buildImageArgs(m.runtime, spec, deffile), nil, stdout, stderr)
}

// Stop stops the container behind this handle.
func (h *ContainerHandle) Stop(ctx context.Context) error {
	if h.manager == nil {
		return nil
	}
	return h.manager.StopContainer(ctx, h.Name)
}
