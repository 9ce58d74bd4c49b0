// SPDX-License-Identifier: MPL-2.0

package env

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"venvoy/internal/container"
	"venvoy/pkg/types"
)

// Freeze vendors the environment's packages as wheels into the vendor
// directory and writes a snapshot of the installed package set. The
// downloads run inside the container so the container's package managers
// and Python resolve them, never the host's.
func (s *Service) Freeze(ctx context.Context, name types.EnvironmentName, includeDev bool) (string, error) {
	e, meta, err := s.load(name)
	if err != nil {
		return "", err
	}
	if meta.Kind != KindPython {
		return "", fmt.Errorf("freeze supports python environments only, %q is %s", name, meta.Kind)
	}

	if err := os.MkdirAll(e.VendorDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create vendor directory: %w", err)
	}

	reqFiles := []string{e.RequirementsPath()}
	if includeDev {
		reqFiles = append(reqFiles, e.DevRequirementsPath())
	}
	for _, reqFile := range reqFiles {
		info, err := os.Stat(reqFile)
		if err != nil || info.Size() == 0 {
			continue
		}
		if err := s.downloadWheels(ctx, e, meta, reqFile); err != nil {
			s.logger.Warn("failed to download wheels", "requirements", reqFile, "error", err)
		}
	}

	return s.writeSnapshot(ctx, e, meta)
}

// downloadWheels runs the wheel download for one requirements file inside a
// throwaway container, trying uv first and falling back to pip.
func (s *Service) downloadWheels(ctx context.Context, e Environment, meta *Metadata, reqFile string) error {
	reqName := filepath.Base(reqFile)
	volumes := []container.VolumeMount{
		{HostPath: reqFile, ContainerPath: "/workspace/" + reqName, Mode: container.ModeReadOnly},
		{HostPath: e.VendorDir(), ContainerPath: "/workspace/vendor"},
	}

	uvSpec := container.RunSpec{
		Image:   meta.Image,
		Command: fmt.Sprintf("%suv pip download -r /workspace/%s --dest /workspace/vendor --no-deps", activateScript, reqName),
		Volumes: volumes,
		Remove:  true,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if _, err := s.mgr.RunContainer(ctx, uvSpec); err == nil {
		return nil
	}

	pipSpec := container.RunSpec{
		Image:   meta.Image,
		Command: fmt.Sprintf("%spip download -r /workspace/%s -d /workspace/vendor --no-deps", activateScript, reqName),
		Volumes: volumes,
		Remove:  true,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if _, err := s.mgr.RunContainer(ctx, pipSpec); err != nil {
		return fmt.Errorf("wheel download failed with both uv and pip: %w", err)
	}
	return nil
}

// writeSnapshot records the current package set in the environment
// directory and returns the snapshot path.
func (s *Service) writeSnapshot(ctx context.Context, e Environment, meta *Metadata) (string, error) {
	packages, err := s.InstalledPackages(ctx, e.Name)
	if err != nil {
		return "", err
	}

	now := s.now()
	snapshot := struct {
		Name     types.EnvironmentName `yaml:"name"`
		Kind     Kind                  `yaml:"kind"`
		Version  string                `yaml:"version"`
		Created  string                `yaml:"created"`
		Platform string                `yaml:"platform"`
		Packages []Package             `yaml:"packages"`
	}{
		Name:     meta.Name,
		Kind:     meta.Kind,
		Version:  meta.Version,
		Created:  now.Format(time.RFC3339),
		Platform: meta.Platform,
		Packages: packages,
	}

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	path := filepath.Join(e.Dir(), fmt.Sprintf("snapshot-%s.yaml", now.Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}
