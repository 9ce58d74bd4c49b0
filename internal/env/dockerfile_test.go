// SPDX-License-Identifier: MPL-2.0

package env

import (
	"strings"
	"testing"
	"time"
)

func TestBaseImage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind    Kind
		version string
		want    string
	}{
		{KindPython, "3.11", "python:3.11-slim"},
		{KindPython, "3.13", "python:3.13-slim"},
		{KindR, "4.4", "rocker/r-ver:4.4"},
	}

	for _, tt := range tests {
		if got := BaseImage(tt.kind, tt.version); got != tt.want {
			t.Errorf("BaseImage(%q, %q) = %q, want %q", tt.kind, tt.version, got, tt.want)
		}
	}
}

func TestDefaultImage(t *testing.T) {
	t.Parallel()

	if got := DefaultImage(KindPython, "3.11"); got != "zaphodbeeblebrox3rd/venvoy:python3.11" {
		t.Errorf("DefaultImage() = %q", got)
	}
	if got := DefaultImage(KindR, "4.4"); got != "zaphodbeeblebrox3rd/venvoy:r4.4" {
		t.Errorf("DefaultImage() = %q", got)
	}
}

func TestGenerateDockerfilePython(t *testing.T) {
	t.Parallel()

	meta := validMetadata()
	got, err := GenerateDockerfile(meta, "", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GenerateDockerfile: %v", err)
	}

	for _, want := range []string{
		"FROM python:3.11-slim",
		"mamba create -n venvoy python=3.11",
		"pip install --no-cache-dir uv",
		"WORKDIR /workspace",
		"useradd -u $USER_ID -g $GROUP_ID -m -s /bin/bash venvoy",
		"# venvoy environment: analysis",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dockerfile missing %q", want)
		}
	}
}

func TestGenerateDockerfileR(t *testing.T) {
	t.Parallel()

	meta := validMetadata()
	meta.Kind = KindR
	meta.Version = "4.4"
	got, err := GenerateDockerfile(meta, "", time.Now())
	if err != nil {
		t.Fatalf("GenerateDockerfile: %v", err)
	}
	if !strings.Contains(got, "FROM rocker/r-ver:4.4") {
		t.Errorf("dockerfile missing R base image:\n%s", got)
	}
	if strings.Contains(got, "conda") {
		t.Error("R dockerfile should not reference conda")
	}
}

func TestGenerateDockerfileBaseOverride(t *testing.T) {
	t.Parallel()

	got, err := GenerateDockerfile(validMetadata(), "registry.internal/python:3.11", time.Now())
	if err != nil {
		t.Fatalf("GenerateDockerfile: %v", err)
	}
	if !strings.Contains(got, "FROM registry.internal/python:3.11") {
		t.Error("base image override not applied")
	}
}

func TestGenerateDockerfileUnknownKind(t *testing.T) {
	t.Parallel()

	meta := validMetadata()
	meta.Kind = "julia"
	if _, err := GenerateDockerfile(meta, "", time.Now()); err == nil {
		t.Fatal("GenerateDockerfile accepted an unknown kind")
	}
}
