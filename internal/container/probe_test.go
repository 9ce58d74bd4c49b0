// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"strings"
	"testing"
)

func TestProberIsAvailable_BinaryMissing(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	p := NewProber(
		WithLookPath(lookPathFound()),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	for _, rt := range SupportedRuntimes {
		if p.IsAvailable(context.Background(), rt) {
			t.Errorf("%s: expected unavailable with empty PATH", rt)
		}
	}
	recorder.AssertInvocationCount(t, 0)
}

func TestProberIsAvailable_VersionSucceeds(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Stdout = "apptainer version 1.3.0"
	p := NewProber(
		WithLookPath(lookPathFound("apptainer")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	if !p.IsAvailable(context.Background(), RuntimeApptainer) {
		t.Fatal("expected apptainer to be available")
	}
	recorder.AssertCommandName(t, "apptainer")
}

func TestProberIsAvailable_VersionFails(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.ExitCode = 1
	p := NewProber(
		WithLookPath(lookPathFound("singularity")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	if p.IsAvailable(context.Background(), RuntimeSingularity) {
		t.Fatal("expected singularity to be unavailable when --version fails")
	}
}

func TestProberDocker_Genuine(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Respond("docker --version", "Docker version 27.1.1, build 6312585", 0)
	recorder.Respond("docker buildx version", "github.com/docker/buildx v0.16.1 c8e40d9", 0)
	p := NewProber(
		WithLookPath(lookPathFound("docker")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	available, suspect := p.DockerStatus(context.Background())
	if !available {
		t.Fatal("expected genuine docker to be available")
	}
	if suspect {
		t.Fatal("expected genuine docker to not be suspect")
	}
}

func TestProberDocker_PodmanShimVersionString(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Respond("docker --version", "podman version 4.9.3", 0)
	p := NewProber(
		WithLookPath(lookPathFound("docker", "podman")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	if available, _ := p.DockerStatus(context.Background()); available {
		t.Fatal("expected a podman-shim docker to be unavailable")
	}
	// Version output alone settles it; no buildx probe should follow.
	for _, line := range recorder.CommandLines() {
		if strings.Contains(line, "buildx") {
			t.Errorf("unexpected buildx probe after shim version string: %s", line)
		}
	}
}

func TestProberDocker_MissingBuildxWithPodmanPresent(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Respond("docker --version", "Docker version 24.0.0", 0)
	recorder.Respond("docker buildx version", "", 1)
	p := NewProber(
		WithLookPath(lookPathFound("docker", "podman")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	available, suspect := p.DockerStatus(context.Background())
	if available {
		t.Fatal("expected ambiguous docker to yield to a real podman binary")
	}
	if !suspect {
		t.Fatal("expected ambiguous docker to be marked suspect")
	}
}

func TestProberDocker_MissingBuildxNoPodmanDaemonResponds(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Respond("docker --version", "Docker version 24.0.0", 0)
	recorder.Respond("docker buildx version", "", 1)
	recorder.Respond("docker info", "server info", 0)
	p := NewProber(
		WithLookPath(lookPathFound("docker")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	available, suspect := p.DockerStatus(context.Background())
	if !available {
		t.Fatal("expected docker with a responding daemon to be available")
	}
	if !suspect {
		t.Fatal("expected docker without a buildx signature to stay suspect")
	}
}

func TestProberDocker_MissingBuildxNoPodmanDaemonDown(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Respond("docker --version", "Docker version 24.0.0", 0)
	recorder.Respond("docker buildx version", "", 1)
	recorder.Respond("docker info", "", 1)
	p := NewProber(
		WithLookPath(lookPathFound("docker")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	if available, _ := p.DockerStatus(context.Background()); available {
		t.Fatal("expected docker to be unavailable when info fails too")
	}
}

func TestProberVersion(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Stdout = "podman version 5.0.2\n"
	p := NewProber(
		WithLookPath(lookPathFound("podman")),
		WithProbeExecCommand(recorder.ContextCommandFunc(t)),
	)

	got, err := p.Version(context.Background(), RuntimePodman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "podman version 5.0.2" {
		t.Errorf("expected trimmed version string, got %q", got)
	}
}

func TestDockerBuildxSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		want bool
	}{
		{"upstream build", "github.com/docker/buildx v0.16.1 c8e40d9", true},
		{"url fragment", "see docs.docker.com/buildx for details", true},
		{"podman message", "Error: unrecognized command", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := dockerBuildxSignature(tt.out); got != tt.want {
				t.Errorf("dockerBuildxSignature(%q) = %v, want %v", tt.out, got, tt.want)
			}
		})
	}
}
