// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	p := NewProvider()
	cfg, err := p.Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PythonVersion != "3.11" {
		t.Errorf("PythonVersion = %q, want default 3.11", cfg.PythonVersion)
	}
	if cfg.RVersion != "4.4" {
		t.Errorf("RVersion = %q, want default 4.4", cfg.RVersion)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("ColorScheme = %q, want auto", cfg.UI.ColorScheme)
	}
	if !cfg.AutoSave.Enabled || cfg.AutoSave.IntervalSeconds != 2 {
		t.Errorf("unexpected auto-save defaults: %+v", cfg.AutoSave)
	}
	if cfg.Runtime != "" {
		t.Errorf("Runtime = %q, want empty (auto-select)", cfg.Runtime)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `runtime: podman
python_version: "3.12"
ui:
  color_scheme: dark
  verbose: true
auto_save:
  enabled: false
  interval_seconds: 10
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Runtime != "podman" {
		t.Errorf("Runtime = %q", cfg.Runtime)
	}
	if cfg.PythonVersion != "3.12" {
		t.Errorf("PythonVersion = %q", cfg.PythonVersion)
	}
	if cfg.RVersion != "4.4" {
		t.Errorf("RVersion = %q, expected default to survive partial files", cfg.RVersion)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark || !cfg.UI.Verbose {
		t.Errorf("unexpected UI config: %+v", cfg.UI)
	}
	if cfg.AutoSave.Enabled || cfg.AutoSave.IntervalSeconds != 10 {
		t.Errorf("unexpected auto-save config: %+v", cfg.AutoSave)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("runtime: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	content := "runtime: rkt\npython_version: latest\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig in chain, got %v", err)
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestHomeDirOverride(t *testing.T) {
	t.Cleanup(Reset)

	dir := t.TempDir()
	SetHomeDirOverride(dir)

	got, err := HomeDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != dir {
		t.Errorf("HomeDir() = %q, want %q", got, dir)
	}

	envs, err := EnvironmentsDir()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if envs != filepath.Join(dir, "environments") {
		t.Errorf("EnvironmentsDir() = %q", envs)
	}

	if err := EnsureDirs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(envs); err != nil {
		t.Errorf("EnsureDirs did not create %q: %v", envs, err)
	}
}
