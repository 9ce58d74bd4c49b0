// SPDX-License-Identifier: MPL-2.0

package env

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"venvoy/internal/config"
	"venvoy/internal/container"
	"venvoy/pkg/types"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeManager records every container operation and returns canned results.
type fakeManager struct {
	runtime    container.Runtime
	pulled     []string
	runSpecs   []container.RunSpec
	runStdout  string
	runErr     error
	execOut    string
	execErr    error
	execCalls  [][]string
	containers []container.ContainerInfo
	stopped    []string
	builds     []container.BuildSpec
	buildErr   error
}

func (f *fakeManager) Runtime() container.Runtime { return f.runtime }

func (f *fakeManager) GetRuntimeInfo(context.Context) container.RuntimeInfo {
	return container.RuntimeInfo{Runtime: f.runtime, Version: "1.0"}
}

func (f *fakeManager) PullImage(_ context.Context, image string) error {
	f.pulled = append(f.pulled, image)
	return nil
}

func (f *fakeManager) RunContainer(_ context.Context, spec container.RunSpec) (*container.ContainerHandle, error) {
	f.runSpecs = append(f.runSpecs, spec)
	if f.runErr != nil {
		return nil, f.runErr
	}
	if spec.Stdout != nil && f.runStdout != "" {
		io.WriteString(spec.Stdout, f.runStdout) //nolint:errcheck // test buffer
	}
	return &container.ContainerHandle{Name: spec.Name}, nil
}

func (f *fakeManager) StopContainer(_ context.Context, name string) error {
	f.stopped = append(f.stopped, name)
	return nil
}

func (f *fakeManager) ListContainers(context.Context, bool) ([]container.ContainerInfo, error) {
	return f.containers, nil
}

func (f *fakeManager) Exec(_ context.Context, name string, command []string) (string, error) {
	f.execCalls = append(f.execCalls, append([]string{name}, command...))
	return f.execOut, f.execErr
}

func (f *fakeManager) BuildImage(_ context.Context, spec container.BuildSpec) error {
	f.builds = append(f.builds, spec)
	return f.buildErr
}

// newTestService wires a Service against a fake manager and isolated state
// directories. Tests using it must not run in parallel because the config
// home override is package-global.
func newTestService(t *testing.T, fake *fakeManager) *Service {
	t.Helper()
	config.SetHomeDirOverride(t.TempDir())
	t.Cleanup(config.Reset)

	home := t.TempDir()
	return NewService(config.DefaultConfig(), fake,
		WithUserHome(func() (string, error) { return home, nil }),
		WithClock(func() time.Time { return testTime }),
		WithLogger(log.NewWithOptions(io.Discard, log.Options{})),
	)
}

func mustInit(t *testing.T, svc *Service, name string) *Metadata {
	t.Helper()
	meta, err := svc.Init(context.Background(), InitOptions{
		Name: types.EnvironmentName(name), Kind: KindPython,
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return meta
}

func TestServiceInit(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)

	meta, err := svc.Init(context.Background(), InitOptions{Name: "analysis", Kind: KindPython})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if meta.Image != "zaphodbeeblebrox3rd/venvoy:python3.11" {
		t.Errorf("Image = %q", meta.Image)
	}
	if len(fake.pulled) != 1 || fake.pulled[0] != meta.Image {
		t.Errorf("pulled = %v", fake.pulled)
	}

	e, err := svc.Environment("analysis")
	if err != nil {
		t.Fatalf("Environment: %v", err)
	}
	for _, path := range []string{
		e.MetadataPath(), e.DockerfilePath(), e.RequirementsPath(), e.DevRequirementsPath(),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}

	infos, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "analysis" || infos[0].Status != "stopped" {
		t.Errorf("List() = %+v", infos)
	}
}

func TestServiceInitAlreadyExists(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)

	if _, err := svc.Init(context.Background(), InitOptions{Name: "proj", Kind: KindPython}); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	_, err := svc.Init(context.Background(), InitOptions{Name: "proj", Kind: KindPython})
	if !errors.Is(err, ErrEnvironmentExists) {
		t.Fatalf("second Init error = %v, want ErrEnvironmentExists", err)
	}
	if _, err := svc.Init(context.Background(), InitOptions{Name: "proj", Kind: KindPython, Force: true}); err != nil {
		t.Fatalf("forced Init: %v", err)
	}
}

func TestServiceInitRKind(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimePodman}
	svc := newTestService(t, fake)

	meta, err := svc.Init(context.Background(), InitOptions{Name: "stats", Kind: KindR})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if meta.Version != "4.4" {
		t.Errorf("Version = %q, want the configured R default", meta.Version)
	}
	if meta.Image != "zaphodbeeblebrox3rd/venvoy:r4.4" {
		t.Errorf("Image = %q", meta.Image)
	}
}

func TestServiceInitRejectsBadInputs(t *testing.T) {
	svc := newTestService(t, &fakeManager{})

	if _, err := svc.Init(context.Background(), InitOptions{Name: "proj", Kind: "julia"}); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("bad kind error = %v", err)
	}
	if _, err := svc.Init(context.Background(), InitOptions{Name: "bad name", Kind: KindPython}); err == nil {
		t.Error("bad name accepted")
	}
}

func TestServiceRunMountsAndShell(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")
	fake.runSpecs = nil

	var out bytes.Buffer
	_, err := svc.Run(context.Background(), RunOptions{
		Name:   "proj",
		Mounts: []string{"/data:/mnt/data:ro"},
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The interactive session plus the auto-save package listing.
	if len(fake.runSpecs) != 2 {
		t.Fatalf("len(runSpecs) = %d, want 2", len(fake.runSpecs))
	}
	spec := fake.runSpecs[0]
	if spec.Name != "proj-runtime" {
		t.Errorf("Name = %q", spec.Name)
	}
	if !spec.Interactive || spec.Detach {
		t.Errorf("Interactive = %v, Detach = %v", spec.Interactive, spec.Detach)
	}
	if !strings.Contains(spec.Command, "/bin/bash") {
		t.Errorf("Command = %q", spec.Command)
	}
	if spec.WorkDir != "/workspace" {
		t.Errorf("WorkDir = %q", spec.WorkDir)
	}

	var sawWorkspace, sawHome, sawExtra bool
	for _, v := range spec.Volumes {
		switch v.ContainerPath {
		case "/workspace":
			sawWorkspace = true
		case "/home/venvoy/host-home":
			sawHome = true
		case "/mnt/data":
			sawExtra = v.Mode == container.ModeReadOnly && v.HostPath == "/data"
		}
	}
	if !sawWorkspace || !sawHome || !sawExtra {
		t.Errorf("volumes = %+v", spec.Volumes)
	}
}

func TestServiceRunDetached(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")
	fake.runSpecs = nil

	handle, err := svc.Run(context.Background(), RunOptions{Name: "proj", Detach: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if handle.Name != "proj-runtime" {
		t.Errorf("handle.Name = %q", handle.Name)
	}
	if len(fake.runSpecs) != 1 {
		t.Fatalf("detached run should not auto-save, got %d specs", len(fake.runSpecs))
	}
	spec := fake.runSpecs[0]
	if !spec.Detach || spec.Interactive {
		t.Errorf("Detach = %v, Interactive = %v", spec.Detach, spec.Interactive)
	}
	if spec.Command != "sleep infinity" {
		t.Errorf("Command = %q", spec.Command)
	}
}

func TestServiceRunUnknownEnvironment(t *testing.T) {
	svc := newTestService(t, &fakeManager{})

	_, err := svc.Run(context.Background(), RunOptions{Name: "ghost"})
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("error = %v, want ErrEnvironmentNotFound", err)
	}
}

func TestServiceInstalledPackages(t *testing.T) {
	fake := &fakeManager{
		runtime:   container.RuntimeDocker,
		runStdout: "numpy==1.26.0\nrequests==2.31.0\n",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")
	fake.runSpecs = nil

	packages, err := svc.InstalledPackages(context.Background(), "proj")
	if err != nil {
		t.Fatalf("InstalledPackages: %v", err)
	}
	if len(packages) != 2 || packages[0].Name != "numpy" {
		t.Errorf("packages = %v", packages)
	}

	spec := fake.runSpecs[0]
	if !strings.Contains(spec.Command, "pip freeze") {
		t.Errorf("Command = %q", spec.Command)
	}
	if !spec.Remove {
		t.Error("listing container not set to auto-remove")
	}
}

func TestServiceAutoSaveWritesExports(t *testing.T) {
	fake := &fakeManager{
		runtime:   container.RuntimeDocker,
		runStdout: "numpy==1.26.0\nhttpx==0.27.0\n",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	stamped, err := svc.AutoSave(context.Background(), "proj")
	if err != nil {
		t.Fatalf("AutoSave: %v", err)
	}

	e, _ := svc.Environment("proj")
	wantStamped := filepath.Join(e.ProjectsDir(), "environment_20240301_120000.yml")
	if stamped != wantStamped {
		t.Errorf("stamped path = %q, want %q", stamped, wantStamped)
	}
	for _, path := range []string{
		stamped,
		filepath.Join(e.ProjectsDir(), "environment.yml"),
		filepath.Join(e.ProjectsDir(), ".last_updated"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}

	history, err := svc.History("proj")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].CondaPackages != 1 || history[0].PipPackages != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestServiceAutoSaveRunningUsesExec(t *testing.T) {
	fake := &fakeManager{
		runtime: container.RuntimeDocker,
		execOut: "pandas==2.2.0",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	if _, err := svc.AutoSaveRunning(context.Background(), "proj"); err != nil {
		t.Fatalf("AutoSaveRunning: %v", err)
	}
	if len(fake.execCalls) != 1 || fake.execCalls[0][0] != "proj-runtime" {
		t.Errorf("execCalls = %v", fake.execCalls)
	}
	history, _ := svc.History("proj")
	if len(history) != 1 || history[0].CondaPackages != 1 {
		t.Errorf("history = %+v", history)
	}
}

func TestServiceAutoSaveRunningSkipsUntrackedRuntimes(t *testing.T) {
	fake := &fakeManager{
		runtime: container.RuntimeApptainer,
		execOut: "pandas==2.2.0",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	path, err := svc.AutoSaveRunning(context.Background(), "proj")
	if err != nil {
		t.Fatalf("AutoSaveRunning: %v", err)
	}
	if path != "" {
		t.Errorf("expected no snapshot for an untracked runtime, got %q", path)
	}
	if len(fake.execCalls) != 0 {
		t.Errorf("exec must not be attempted without a named container: %v", fake.execCalls)
	}
}

func TestServiceRestoreRewritesRequirements(t *testing.T) {
	fake := &fakeManager{
		runtime:   container.RuntimeDocker,
		runStdout: "numpy==1.26.0\nhttpx==0.27.0\n",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	if _, err := svc.AutoSave(context.Background(), "proj"); err != nil {
		t.Fatalf("AutoSave: %v", err)
	}
	if err := svc.Restore("proj", testTime.Format("20060102_150405")); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	e, _ := svc.Environment("proj")
	conda, err := os.ReadFile(e.CondaRequirementsPath())
	if err != nil {
		t.Fatalf("read conda requirements: %v", err)
	}
	if !strings.Contains(string(conda), "numpy==1.26.0") {
		t.Errorf("conda requirements = %q", conda)
	}
	pip, err := os.ReadFile(e.RequirementsPath())
	if err != nil {
		t.Fatalf("read requirements: %v", err)
	}
	if !strings.Contains(string(pip), "httpx==0.27.0") {
		t.Errorf("requirements = %q", pip)
	}
}

func TestServiceRestoreUnknownTimestamp(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	if err := svc.Restore("proj", "19990101_000000"); err == nil {
		t.Fatal("Restore accepted a missing timestamp")
	}
}

func TestServiceFreeze(t *testing.T) {
	fake := &fakeManager{
		runtime:   container.RuntimeDocker,
		runStdout: "numpy==1.26.0\n",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	e, _ := svc.Environment("proj")
	if err := os.WriteFile(e.RequirementsPath(), []byte("numpy==1.26.0\n"), 0o644); err != nil {
		t.Fatalf("write requirements: %v", err)
	}
	fake.runSpecs = nil

	snapshot, err := svc.Freeze(context.Background(), "proj", false)
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Errorf("missing snapshot %s: %v", snapshot, err)
	}
	if _, err := os.Stat(e.VendorDir()); err != nil {
		t.Errorf("missing vendor dir: %v", err)
	}

	// First run is the uv download, last is the pip freeze listing.
	if len(fake.runSpecs) < 2 {
		t.Fatalf("len(runSpecs) = %d, want at least 2", len(fake.runSpecs))
	}
	if !strings.Contains(fake.runSpecs[0].Command, "uv pip download") {
		t.Errorf("download command = %q", fake.runSpecs[0].Command)
	}
	var sawVendorMount bool
	for _, v := range fake.runSpecs[0].Volumes {
		if v.ContainerPath == "/workspace/vendor" {
			sawVendorMount = true
		}
	}
	if !sawVendorMount {
		t.Errorf("download volumes = %+v", fake.runSpecs[0].Volumes)
	}
}

func TestServiceStop(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	if err := svc.Stop(context.Background(), "proj"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(fake.stopped) != 1 || fake.stopped[0] != "proj-runtime" {
		t.Errorf("stopped = %v", fake.stopped)
	}
}

func TestServiceBuild(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	tag, err := svc.Build(context.Background(), "proj")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tag != "venvoy/proj:3.11" {
		t.Errorf("tag = %q", tag)
	}
	if len(fake.builds) != 1 || fake.builds[0].Tag != tag {
		t.Errorf("builds = %+v", fake.builds)
	}

	e, _ := svc.Environment("proj")
	meta, err := loadMetadata(e.MetadataPath())
	if err != nil {
		t.Fatalf("loadMetadata: %v", err)
	}
	if meta.ImageTag != tag {
		t.Errorf("ImageTag = %q, want %q", meta.ImageTag, tag)
	}
}

func TestServiceListShowsContainerStatus(t *testing.T) {
	fake := &fakeManager{
		runtime: container.RuntimeDocker,
		containers: []container.ContainerInfo{
			{Name: "proj-runtime", Status: "Up 2 minutes"},
		},
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")
	mustInit(t, svc, "idle")

	infos, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	statusByName := map[string]string{}
	for _, info := range infos {
		statusByName[string(info.Name)] = info.Status
	}
	if statusByName["proj"] != "Up 2 minutes" {
		t.Errorf("proj status = %q", statusByName["proj"])
	}
	if statusByName["idle"] != "stopped" {
		t.Errorf("idle status = %q", statusByName["idle"])
	}
}
