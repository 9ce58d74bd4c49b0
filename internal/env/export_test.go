// SPDX-License-Identifier: MPL-2.0

package env

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"venvoy/internal/config"
	"venvoy/internal/container"
)

func TestServiceExportYAML(t *testing.T) {
	fake := &fakeManager{
		runtime:   container.RuntimeDocker,
		runStdout: "numpy==1.26.0\n",
	}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	out := filepath.Join(t.TempDir(), "proj.yaml")
	path, err := svc.Export(context.Background(), "proj", ExportFormatYAML, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, want := range []string{"name: proj", "kind: python", "numpy", "base_image: python:3.11-slim"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %q:\n%s", want, data)
		}
	}
}

func TestServiceExportCompose(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	out := filepath.Join(t.TempDir(), "compose.yml")
	path, err := svc.Export(context.Background(), "proj", ExportFormatCompose, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, want := range []string{
		"container_name: proj-runtime",
		"working_dir: /workspace",
		".:/workspace",
		"/home/venvoy/host-home",
		"image: zaphodbeeblebrox3rd/venvoy:python3.11",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("compose export missing %q:\n%s", want, data)
		}
	}
}

func TestServiceExportDockerfile(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	out := filepath.Join(t.TempDir(), "Dockerfile.proj")
	path, err := svc.Export(context.Background(), "proj", ExportFormatDockerfile, out)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Exported venvoy environment: proj") {
		t.Errorf("export header missing:\n%.100s", data)
	}
	if !strings.Contains(string(data), "FROM python:3.11-slim") {
		t.Error("export does not contain the generated dockerfile")
	}
}

func TestServiceExportInvalidFormat(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	_, err := svc.Export(context.Background(), "proj", "iso", "")
	if !errors.Is(err, ErrInvalidExportFormat) {
		t.Fatalf("error = %v, want ErrInvalidExportFormat", err)
	}
}

func TestServiceExportUnknownEnvironment(t *testing.T) {
	svc := newTestService(t, &fakeManager{})

	_, err := svc.Export(context.Background(), "ghost", ExportFormatYAML, "")
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Fatalf("error = %v, want ErrEnvironmentNotFound", err)
	}
}

func TestServiceTarballRoundTrip(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	e, _ := svc.Environment("proj")
	if err := os.WriteFile(e.RequirementsPath(), []byte("numpy==1.26.0\n"), 0o644); err != nil {
		t.Fatalf("write requirements: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "proj.tar.gz")
	if _, err := svc.Export(context.Background(), "proj", ExportFormatTarball, archive); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Import into a fresh state directory.
	config.SetHomeDirOverride(t.TempDir())

	name, err := svc.Import(context.Background(), archive, false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if name != "proj" {
		t.Errorf("imported name = %q", name)
	}

	imported, _ := svc.Environment("proj")
	meta, err := loadMetadata(imported.MetadataPath())
	if err != nil {
		t.Fatalf("loadMetadata after import: %v", err)
	}
	if meta.Kind != KindPython || meta.Version != "3.11" {
		t.Errorf("imported metadata = %+v", meta)
	}
	reqs, err := os.ReadFile(imported.RequirementsPath())
	if err != nil {
		t.Fatalf("read imported requirements: %v", err)
	}
	if !strings.Contains(string(reqs), "numpy==1.26.0") {
		t.Errorf("imported requirements = %q", reqs)
	}

	infos, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "proj" {
		t.Errorf("List() after import = %+v", infos)
	}
}

func TestServiceImportRefusesOverwrite(t *testing.T) {
	fake := &fakeManager{runtime: container.RuntimeDocker}
	svc := newTestService(t, fake)
	mustInit(t, svc, "proj")

	archive := filepath.Join(t.TempDir(), "proj.tar.gz")
	if _, err := svc.Export(context.Background(), "proj", ExportFormatTarball, archive); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if _, err := svc.Import(context.Background(), archive, false); !errors.Is(err, ErrEnvironmentExists) {
		t.Fatalf("error = %v, want ErrEnvironmentExists", err)
	}
	if _, err := svc.Import(context.Background(), archive, true); err != nil {
		t.Fatalf("forced Import: %v", err)
	}
}
