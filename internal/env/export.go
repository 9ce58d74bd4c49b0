// SPDX-License-Identifier: MPL-2.0

package env

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"venvoy/pkg/types"
)

const (
	// ExportFormatYAML exports a package specification.
	ExportFormatYAML = "yaml"
	// ExportFormatDockerfile exports a standalone Dockerfile.
	ExportFormatDockerfile = "dockerfile"
	// ExportFormatTarball exports the whole environment directory as a
	// compressed archive for offline transfer.
	ExportFormatTarball = "tarball"
	// ExportFormatCompose exports a best-effort docker-compose service
	// definition for the environment.
	ExportFormatCompose = "compose"
)

// ErrInvalidExportFormat is returned for an unrecognized export format.
var ErrInvalidExportFormat = errors.New("invalid export format")

// exportManifest is the metadata file embedded in tarball exports.
type exportManifest struct {
	Name     types.EnvironmentName `yaml:"name"`
	Kind     Kind                  `yaml:"kind"`
	Version  string                `yaml:"version"`
	Exported time.Time             `yaml:"exported"`
	Platform string                `yaml:"platform"`
	Usage    string                `yaml:"usage"`
}

// exportManifestName is the manifest's file name inside an archive.
const exportManifestName = "export-info.yaml"

// Export writes an environment in the requested format and returns the
// output path. An empty output picks a default name in the current
// directory.
func (s *Service) Export(ctx context.Context, name types.EnvironmentName, format, output string) (string, error) {
	switch format {
	case ExportFormatYAML:
		return s.exportYAML(ctx, name, output)
	case ExportFormatDockerfile:
		return s.exportDockerfile(name, output)
	case ExportFormatTarball:
		return s.exportTarball(name, output)
	case ExportFormatCompose:
		return s.exportCompose(name, output)
	default:
		return "", fmt.Errorf("%w: %q (valid: yaml, dockerfile, tarball, compose)", ErrInvalidExportFormat, format)
	}
}

// exportYAML writes the environment's package specification.
func (s *Service) exportYAML(ctx context.Context, name types.EnvironmentName, output string) (string, error) {
	_, meta, err := s.load(name)
	if err != nil {
		return "", err
	}
	packages, err := s.InstalledPackages(ctx, name)
	if err != nil {
		return "", err
	}

	if output == "" {
		output = fmt.Sprintf("%s-environment.yaml", name)
	}
	doc := struct {
		Name      types.EnvironmentName `yaml:"name"`
		Kind      Kind                  `yaml:"kind"`
		Version   string                `yaml:"version"`
		Created   time.Time             `yaml:"created"`
		Platform  string                `yaml:"platform"`
		BaseImage string                `yaml:"base_image"`
		Packages  []Package             `yaml:"packages"`
	}{
		Name:      meta.Name,
		Kind:      meta.Kind,
		Version:   meta.Version,
		Created:   meta.Created,
		Platform:  meta.Platform,
		BaseImage: BaseImage(meta.Kind, meta.Version),
		Packages:  packages,
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize export: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return output, nil
}

// exportDockerfile copies the generated Dockerfile with an export header so
// it can be built outside venvoy.
func (s *Service) exportDockerfile(name types.EnvironmentName, output string) (string, error) {
	e, _, err := s.load(name)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(e.DockerfilePath())
	if err != nil {
		return "", fmt.Errorf("failed to read dockerfile: %w", err)
	}

	if output == "" {
		output = fmt.Sprintf("%s-Dockerfile", name)
	}
	header := fmt.Sprintf("# Exported venvoy environment: %s\n# Export date: %s\n\n",
		name, s.now().Format(time.RFC3339))
	if err := os.WriteFile(output, append([]byte(header), content...), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return output, nil
}

// exportTarball archives the environment directory plus a manifest.
func (s *Service) exportTarball(name types.EnvironmentName, output string) (string, error) {
	e, meta, err := s.load(name)
	if err != nil {
		return "", err
	}

	if output == "" {
		output = fmt.Sprintf("%s-%s.tar.gz", name, meta.Version)
	}
	f, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	if err := addTreeToArchive(tw, e.Dir(), string(name)); err != nil {
		return "", err
	}

	manifest := exportManifest{
		Name:     meta.Name,
		Kind:     meta.Kind,
		Version:  meta.Version,
		Exported: s.now(),
		Platform: meta.Platform,
		Usage:    fmt.Sprintf("Extract and run: docker build -t %s %s/", name, name),
	}
	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to serialize manifest: %w", err)
	}
	if err := addFileToArchive(tw, filepath.Join(string(name), exportManifestName), manifestData); err != nil {
		return "", err
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return output, nil
}

// exportCompose writes a best-effort docker-compose service for the
// environment. Only the session container's shape is captured; runtime
// selection, SIF conversion, and auto-save stay venvoy's job.
func (s *Service) exportCompose(name types.EnvironmentName, output string) (string, error) {
	e, meta, err := s.load(name)
	if err != nil {
		return "", err
	}

	image := meta.ImageTag
	if image == "" {
		image = meta.Image
	}
	home, err := s.userHome()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	doc := map[string]any{
		"services": map[string]any{
			string(name): map[string]any{
				"image":          image,
				"container_name": e.ContainerName(),
				"working_dir":    "/workspace",
				"stdin_open":     true,
				"tty":            true,
				"volumes": []string{
					".:/workspace",
					home + ":/home/venvoy/host-home",
				},
				"environment": []string{"TERM=xterm-256color"},
			},
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize compose file: %w", err)
	}

	if output == "" {
		output = fmt.Sprintf("%s-docker-compose.yml", name)
	}
	header := fmt.Sprintf("# Generated by venvoy for environment %s\n", name)
	if err := os.WriteFile(output, append([]byte(header), data...), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return output, nil
}

// Import restores an environment from a tarball export into the local state
// directory and registers it.
func (s *Service) Import(ctx context.Context, archivePath string, force bool) (types.EnvironmentName, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to read archive: %w", err)
	}
	defer gz.Close()

	files, manifest, err := readArchive(tar.NewReader(gz))
	if err != nil {
		return "", err
	}
	if manifest == nil {
		return "", fmt.Errorf("archive %s has no %s manifest", archivePath, exportManifestName)
	}
	if err := manifest.Name.Validate(); err != nil {
		return "", err
	}

	e, err := s.Environment(manifest.Name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(e.MetadataPath()); err == nil && !force {
		return "", &AlreadyExistsError{Name: manifest.Name, Dir: e.Dir()}
	}

	for rel, data := range files {
		dest := filepath.Join(e.Dir(), rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to extract %s: %w", rel, err)
		}
	}
	if err := os.MkdirAll(e.ProjectsDir(), 0o755); err != nil {
		return "", fmt.Errorf("failed to create projects directory: %w", err)
	}

	meta, err := loadMetadata(e.MetadataPath())
	if err != nil {
		return "", fmt.Errorf("archive %s has no valid environment metadata: %w", archivePath, err)
	}
	if err := s.register(meta); err != nil {
		return "", err
	}

	s.logger.Info("imported environment", "name", manifest.Name, "archive", archivePath)
	return manifest.Name, nil
}

// addTreeToArchive writes a directory tree under the given prefix.
func addTreeToArchive(tw *tar.Writer, root, prefix string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return addFileToArchive(tw, filepath.Join(prefix, rel), data)
	})
}

func addFileToArchive(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name: filepath.ToSlash(name),
		Mode: 0o644,
		Size: int64(len(data)),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write archive header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry: %w", err)
	}
	return nil
}

// readArchive reads every regular file out of a tar stream, keyed by path
// relative to the single top-level directory. Paths escaping the archive
// root are rejected.
func readArchive(tr *tar.Reader) (map[string][]byte, *exportManifest, error) {
	files := make(map[string][]byte)
	var manifest *exportManifest

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		clean := filepath.Clean(filepath.FromSlash(hdr.Name))
		if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			return nil, nil, fmt.Errorf("archive entry %q escapes the extraction root", hdr.Name)
		}
		// Strip the archive's top-level directory.
		parts := strings.SplitN(filepath.ToSlash(clean), "/", 2)
		if len(parts) != 2 {
			continue
		}
		rel := parts[1]

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read archive entry %s: %w", hdr.Name, err)
		}

		if rel == exportManifestName {
			var m exportManifest
			if err := yaml.Unmarshal(data, &m); err != nil {
				return nil, nil, fmt.Errorf("failed to parse archive manifest: %w", err)
			}
			manifest = &m
			continue
		}
		files[rel] = data
	}
	return files, manifest, nil
}
