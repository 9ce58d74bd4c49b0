// SPDX-License-Identifier: MPL-2.0

package container

import "testing"

func TestNormalizeImageRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"repo path gets qualified", "venvoy/base:latest", "docker.io/venvoy/base:latest"},
		{"already qualified unchanged", "docker.io/venvoy/base:latest", "docker.io/venvoy/base:latest"},
		{"bare name untouched", "python:3.11", "python:3.11"},
		{"bare name no tag", "ubuntu", "ubuntu"},
		{"other registry still prefixed", "quay.io/biocontainers/samtools:1.19", "docker.io/quay.io/biocontainers/samtools:1.19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeImageRef(tt.ref); got != tt.want {
				t.Errorf("NormalizeImageRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
			// Idempotence: a second pass must be a no-op.
			if got := NormalizeImageRef(NormalizeImageRef(tt.ref)); got != tt.want {
				t.Errorf("NormalizeImageRef twice over %q = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestDockerURI(t *testing.T) {
	t.Parallel()

	if got := DockerURI("venvoy/base:latest"); got != "docker://venvoy/base:latest" {
		t.Errorf("DockerURI() = %q", got)
	}
}

func TestSIFFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref  string
		want string
	}{
		{"venvoy/base:latest", "venvoy-base-latest.si"},
		{"docker.io/venvoy/base:latest", "docker.io-venvoy-base-latest.si"},
		{"python:3.11", "python-3.11.si"},
	}

	for _, tt := range tests {
		if got := SIFFileName(tt.ref); got != tt.want {
			t.Errorf("SIFFileName(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
