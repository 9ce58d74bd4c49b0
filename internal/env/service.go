// SPDX-License-Identifier: MPL-2.0

package env

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"venvoy/internal/config"
	"venvoy/internal/container"
	"venvoy/pkg/platform"
	"venvoy/pkg/types"
)

// activateAndRun wraps a command so it executes inside the container's conda
// environment.
const activateScript = "source /opt/conda/bin/activate venvoy && "

type (
	// ContainerManager is the slice of internal/container.Manager the
	// environment service depends on.
	ContainerManager interface {
		Runtime() container.Runtime
		GetRuntimeInfo(ctx context.Context) container.RuntimeInfo
		PullImage(ctx context.Context, image string) error
		RunContainer(ctx context.Context, spec container.RunSpec) (*container.ContainerHandle, error)
		StopContainer(ctx context.Context, name string) error
		ListContainers(ctx context.Context, all bool) ([]container.ContainerInfo, error)
		Exec(ctx context.Context, name string, command []string) (string, error)
		BuildImage(ctx context.Context, spec container.BuildSpec) error
	}

	// Service implements the environment lifecycle operations on top of a
	// selected container runtime.
	Service struct {
		cfg *config.Config
		mgr ContainerManager

		userHome func() (string, error)
		now      func() time.Time
		logger   *log.Logger
	}

	// ServiceOption configures a Service.
	ServiceOption func(*Service)

	// InitOptions parameterizes environment initialization.
	InitOptions struct {
		Name types.EnvironmentName
		Kind Kind
		// Version is the interpreter version; empty falls back to the
		// configured default for the kind.
		Version string
		// Force reinitializes an existing environment.
		Force bool
		// RestoreTimestamp restores package state from a prior export,
		// identified by its history timestamp. Empty means a fresh
		// environment.
		RestoreTimestamp string
	}

	// RunOptions parameterizes an environment session.
	RunOptions struct {
		Name types.EnvironmentName
		// Command overrides the interactive shell.
		Command string
		// Mounts are extra host:container[:mode] bind mounts.
		Mounts []string
		// Detach launches the session in the background.
		Detach bool

		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Info is one environment's row in a listing.
	Info struct {
		Name    types.EnvironmentName
		Kind    Kind
		Version string
		Created time.Time
		// Status is the container status when a session container exists,
		// "stopped" otherwise.
		Status string
	}
)

// WithUserHome overrides home-directory resolution.
func WithUserHome(fn func() (string, error)) ServiceOption {
	return func(s *Service) { s.userHome = fn }
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) { s.now = fn }
}

// WithLogger overrides the service logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService returns an environment service bound to a container manager.
func NewService(cfg *config.Config, mgr ContainerManager, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:      cfg,
		mgr:      mgr,
		userHome: os.UserHomeDir,
		now:      time.Now,
		logger:   log.NewWithOptions(os.Stderr, log.Options{Prefix: "env"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Environment resolves the on-disk layout for a named environment.
func (s *Service) Environment(name types.EnvironmentName) (Environment, error) {
	if err := name.Validate(); err != nil {
		return Environment{}, err
	}
	stateDir, err := config.HomeDir()
	if err != nil {
		return Environment{}, err
	}
	home, err := s.userHome()
	if err != nil {
		return Environment{}, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return Environment{Name: name, stateDir: stateDir, userHome: home}, nil
}

// load resolves an environment and reads its metadata, translating a missing
// metadata file into NotFoundError.
func (s *Service) load(name types.EnvironmentName) (Environment, *Metadata, error) {
	e, err := s.Environment(name)
	if err != nil {
		return Environment{}, nil, err
	}
	meta, err := loadMetadata(e.MetadataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Environment{}, nil, &NotFoundError{Name: name}
		}
		return Environment{}, nil, err
	}
	return e, meta, nil
}

// Init creates (or with Force, recreates) an environment: directories, the
// prebuilt image, the generated Dockerfile, metadata, and a registry entry.
func (s *Service) Init(ctx context.Context, opts InitOptions) (*Metadata, error) {
	if err := opts.Kind.Validate(); err != nil {
		return nil, err
	}
	e, err := s.Environment(opts.Name)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(e.MetadataPath()); err == nil && !opts.Force {
		return nil, &AlreadyExistsError{Name: opts.Name, Dir: e.Dir()}
	}

	version := opts.Version
	if version == "" {
		if opts.Kind == KindR {
			version = string(s.cfg.RVersion)
		} else {
			version = string(s.cfg.PythonVersion)
		}
	}

	if err := os.MkdirAll(e.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create environment directory: %w", err)
	}
	if err := os.MkdirAll(e.ProjectsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}

	image := s.cfg.BaseImage
	if image == "" {
		image = DefaultImage(opts.Kind, version)
	}
	s.logger.Info("setting up environment", "name", opts.Name, "kind", opts.Kind, "version", version)
	if err := s.mgr.PullImage(ctx, image); err != nil {
		return nil, fmt.Errorf("failed to set up environment image: %w", err)
	}

	meta := &Metadata{
		Name:     opts.Name,
		Kind:     opts.Kind,
		Version:  version,
		Created:  s.now(),
		Image:    image,
		Platform: platform.HostOCIPlatform(),
	}

	if opts.RestoreTimestamp != "" {
		entry, err := s.historyEntry(e, opts.RestoreTimestamp)
		if err != nil {
			return nil, err
		}
		if err := s.restoreFromEntry(e, entry); err != nil {
			return nil, err
		}
		meta.RestoredFrom = entry.Timestamp.Format(historyTimestampLayout)
	} else {
		if err := touch(e.RequirementsPath()); err != nil {
			return nil, err
		}
		if err := touch(e.DevRequirementsPath()); err != nil {
			return nil, err
		}
	}

	dockerfile, err := GenerateDockerfile(meta, s.cfg.BaseImage, s.now())
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(e.DockerfilePath(), []byte(dockerfile), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write dockerfile: %w", err)
	}

	if err := saveMetadata(e.MetadataPath(), meta); err != nil {
		return nil, err
	}
	if err := s.register(meta); err != nil {
		return nil, err
	}

	s.logger.Info("environment ready", "name", opts.Name)
	return meta, nil
}

// Run launches an environment session. The host home directory and the
// current working directory are always mounted; AutoSave polling is the
// caller's concern (see internal/watch).
func (s *Service) Run(ctx context.Context, opts RunOptions) (*container.ContainerHandle, error) {
	e, meta, err := s.load(opts.Name)
	if err != nil {
		return nil, err
	}

	if err := s.mgr.PullImage(ctx, meta.Image); err != nil {
		return nil, err
	}

	volumes, err := s.sessionVolumes(e, opts.Mounts)
	if err != nil {
		return nil, err
	}

	command := opts.Command
	interactive := false
	if command == "" && !opts.Detach {
		command = interactiveShellCommand(meta.Kind)
		interactive = true
	}
	if opts.Detach && command == "" {
		// A background session needs something to keep the container alive.
		command = "sleep infinity"
	}

	spec := container.RunSpec{
		Image:       meta.Image,
		Name:        e.ContainerName(),
		Command:     command,
		Volumes:     volumes,
		WorkDir:     "/workspace",
		Detach:      opts.Detach,
		Interactive: interactive,
		Remove:      true,
		Env:         map[string]string{"TERM": "xterm-256color"},
		Stdin:       opts.Stdin,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
	}

	handle, err := s.mgr.RunContainer(ctx, spec)
	if err != nil {
		return nil, err
	}

	if !opts.Detach && s.cfg.AutoSave.Enabled && meta.Kind == KindPython {
		// The session has ended; record its final package state.
		if _, err := s.AutoSave(ctx, opts.Name); err != nil {
			s.logger.Warn("failed to auto-save environment on exit", "name", opts.Name, "error", err)
		}
	}
	return handle, nil
}

// Build builds a local image for the environment from its generated
// Dockerfile and records the tag in the metadata.
func (s *Service) Build(ctx context.Context, name types.EnvironmentName) (string, error) {
	e, meta, err := s.load(name)
	if err != nil {
		return "", err
	}
	tag := e.LocalImageTag(meta.Version)
	err = s.mgr.BuildImage(ctx, container.BuildSpec{
		Dockerfile: e.DockerfilePath(),
		Tag:        tag,
		ContextDir: e.Dir(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to build environment image: %w", err)
	}
	meta.ImageTag = tag
	if err := saveMetadata(e.MetadataPath(), meta); err != nil {
		return "", err
	}
	return tag, nil
}

// Stop stops an environment's session container.
func (s *Service) Stop(ctx context.Context, name types.EnvironmentName) error {
	e, _, err := s.load(name)
	if err != nil {
		return err
	}
	return s.mgr.StopContainer(ctx, e.ContainerName())
}

// sessionVolumes builds the standard session mounts plus any extras.
func (s *Service) sessionVolumes(e Environment, extra []string) ([]container.VolumeMount, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}
	volumes := []container.VolumeMount{
		{HostPath: e.userHome, ContainerPath: "/home/venvoy/host-home"},
		{HostPath: cwd, ContainerPath: "/workspace"},
	}
	for _, flag := range extra {
		mount, err := container.ParseVolumeFlag(flag)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, mount)
	}
	return volumes, nil
}

// InstalledPackages lists the packages installed in an environment's image
// by running the package manager's own listing inside a throwaway
// container. Only Python environments have a pip listing; R environments
// return an empty list.
func (s *Service) InstalledPackages(ctx context.Context, name types.EnvironmentName) ([]Package, error) {
	_, meta, err := s.load(name)
	if err != nil {
		return nil, err
	}
	if meta.Kind != KindPython {
		return nil, nil
	}

	var out bytes.Buffer
	spec := container.RunSpec{
		Image:   meta.Image,
		Command: activateScript + "pip freeze",
		Remove:  true,
		Stdout:  &out,
		Stderr:  io.Discard,
	}
	if _, err := s.mgr.RunContainer(ctx, spec); err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}
	return parsePipFreeze(out.String()), nil
}

// AutoSave records the environment's current package state as a timestamped
// conda-style environment.yml under the projects directory, refreshes the
// latest copy, and returns the timestamped path.
func (s *Service) AutoSave(ctx context.Context, name types.EnvironmentName) (string, error) {
	e, _, err := s.load(name)
	if err != nil {
		return "", err
	}
	packages, err := s.InstalledPackages(ctx, name)
	if err != nil {
		return "", err
	}
	return s.writeEnvironmentFile(e, packages)
}

// AutoSaveRunning is AutoSave for a live session: the listing runs inside
// the already-running container instead of a fresh one.
func (s *Service) AutoSaveRunning(ctx context.Context, name types.EnvironmentName) (string, error) {
	e, meta, err := s.load(name)
	if err != nil {
		return "", err
	}
	if meta.Kind != KindPython {
		return "", nil
	}
	// Exec addresses the session by container name, which only exists on
	// runtimes that track named containers.
	if !s.mgr.Runtime().TracksContainers() {
		return "", nil
	}
	out, err := s.mgr.Exec(ctx, e.ContainerName(), []string{"bash", "-c", activateScript + "pip freeze"})
	if err != nil {
		return "", fmt.Errorf("failed to list installed packages: %w", err)
	}
	return s.writeEnvironmentFile(e, parsePipFreeze(out))
}

func (s *Service) writeEnvironmentFile(e Environment, packages []Package) (string, error) {
	now := s.now()
	envFile := NewEnvironmentFile(string(e.Name), packages, now)
	data, err := envFile.Marshal()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.ProjectsDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create projects directory: %w", err)
	}
	stamped := filepath.Join(e.ProjectsDir(), historyFileName(now))
	if err := os.WriteFile(stamped, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write environment file: %w", err)
	}
	latest := filepath.Join(e.ProjectsDir(), latestEnvironmentFileName)
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write environment file: %w", err)
	}
	lastUpdated := filepath.Join(e.ProjectsDir(), ".last_updated")
	if err := os.WriteFile(lastUpdated, []byte(now.Format(time.RFC3339)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write timestamp file: %w", err)
	}

	s.logger.Info("auto-saved environment", "path", stamped)
	return stamped, nil
}

// History lists an environment's auto-saved exports, newest first.
func (s *Service) History(name types.EnvironmentName) ([]HistoryEntry, error) {
	e, err := s.Environment(name)
	if err != nil {
		return nil, err
	}
	return listHistory(e.ProjectsDir())
}

// Restore rewrites an environment's requirements files from the export with
// the given history timestamp.
func (s *Service) Restore(name types.EnvironmentName, timestamp string) error {
	e, _, err := s.load(name)
	if err != nil {
		return err
	}
	entry, err := s.historyEntry(e, timestamp)
	if err != nil {
		return err
	}
	return s.restoreFromEntry(e, entry)
}

func (s *Service) historyEntry(e Environment, timestamp string) (HistoryEntry, error) {
	history, err := listHistory(e.ProjectsDir())
	if err != nil {
		return HistoryEntry{}, err
	}
	entry, ok := findHistoryEntry(history, timestamp)
	if !ok {
		return HistoryEntry{}, fmt.Errorf("no export with timestamp %q for environment %q", timestamp, e.Name)
	}
	return entry, nil
}

// restoreFromEntry writes requirements files from an export. Conda specs
// are converted to pip pin syntax so a plain pip install can replay them.
func (s *Service) restoreFromEntry(e Environment, entry HistoryEntry) error {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	envFile, err := parseEnvironmentFile(data)
	if err != nil {
		return err
	}
	condaDeps, pipDeps := envFile.Split()

	if len(condaDeps) > 0 {
		var buf bytes.Buffer
		for _, dep := range condaDeps {
			name, version, ok := strings.Cut(dep, "=")
			if ok {
				fmt.Fprintf(&buf, "%s==%s\n", name, version)
			} else {
				fmt.Fprintln(&buf, dep)
			}
		}
		if err := os.WriteFile(e.CondaRequirementsPath(), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write conda requirements: %w", err)
		}
	}
	if len(pipDeps) > 0 {
		var buf bytes.Buffer
		for _, dep := range pipDeps {
			fmt.Fprintln(&buf, dep)
		}
		if err := os.WriteFile(e.RequirementsPath(), buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write requirements: %w", err)
		}
	}

	s.logger.Info("restored environment configuration",
		"conda_packages", len(condaDeps), "pip_packages", len(pipDeps))
	return nil
}

// List returns all registered environments with their container status.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	registryPath, err := config.RegistryPath()
	if err != nil {
		return nil, err
	}
	reg, err := loadRegistry(registryPath)
	if err != nil {
		return nil, err
	}

	containers, err := s.mgr.ListContainers(ctx, true)
	if err != nil {
		s.logger.Debug("could not list containers", "error", err)
		containers = nil
	}
	statusByName := make(map[string]string, len(containers))
	for _, c := range containers {
		statusByName[c.Name] = c.Status
	}

	infos := make([]Info, 0, len(reg.Environments))
	for _, entry := range reg.Environments {
		e := Environment{Name: entry.Name}
		status, ok := statusByName[e.ContainerName()]
		if !ok {
			status = "stopped"
		}
		infos = append(infos, Info{
			Name:    entry.Name,
			Kind:    entry.Kind,
			Version: entry.Version,
			Created: entry.Created,
			Status:  status,
		})
	}
	return infos, nil
}

// RuntimeInfo reports the active runtime for status display.
func (s *Service) RuntimeInfo(ctx context.Context) container.RuntimeInfo {
	return s.mgr.GetRuntimeInfo(ctx)
}

// register upserts the environment into the registry file.
func (s *Service) register(meta *Metadata) error {
	if err := config.EnsureDirs(); err != nil {
		return err
	}
	registryPath, err := config.RegistryPath()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(registryPath)
	if err != nil {
		return err
	}
	reg.Upsert(RegistryEntry{
		Name:    meta.Name,
		Kind:    meta.Kind,
		Version: meta.Version,
		Image:   meta.Image,
		Created: meta.Created,
	})
	return saveRegistry(registryPath, reg)
}

// interactiveShellCommand is the default session command: an interactive
// shell with the environment activated.
func interactiveShellCommand(kind Kind) string {
	if kind == KindR {
		return "R"
	}
	return `/bin/bash -c "` + activateScript + `exec /bin/bash"`
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f.Close()
}
