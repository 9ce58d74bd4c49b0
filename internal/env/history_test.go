// SPDX-License-Identifier: MPL-2.0

package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeExport(t *testing.T, dir string, ts time.Time, packages []Package) string {
	t.Helper()
	f := NewEnvironmentFile("proj", packages, ts)
	data, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(dir, historyFileName(ts))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
	return path
}

func TestListHistoryNewestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	older := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 20, 18, 30, 0, 0, time.UTC)

	writeExport(t, dir, older, []Package{{Name: "numpy", Version: "1.26.0"}})
	writeExport(t, dir, newer, []Package{
		{Name: "numpy", Version: "1.26.4"},
		{Name: "requests", Version: "2.31.0"},
	})

	history, err := listHistory(dir)
	if err != nil {
		t.Fatalf("listHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if !history[0].Timestamp.Equal(newer) {
		t.Errorf("history[0].Timestamp = %v, want %v", history[0].Timestamp, newer)
	}
	if history[0].CondaPackages != 1 || history[0].PipPackages != 1 {
		t.Errorf("newest entry counts = (%d, %d), want (1, 1)",
			history[0].CondaPackages, history[0].PipPackages)
	}
	if history[1].TotalPackages() != 1 {
		t.Errorf("oldest entry TotalPackages() = %d, want 1", history[1].TotalPackages())
	}
}

func TestListHistorySkipsStrays(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeExport(t, dir, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), nil)

	// Strays that must not break or pollute the listing.
	for name, content := range map[string]string{
		"environment.yml":              "name: proj\n",
		"environment_notadate.yml":     "name: proj\n",
		"environment_20240115_.yml":    "name: proj\n",
		"notes.txt":                    "hello\n",
		"environment_20249999_000000.yml": "name: proj\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write stray: %v", err)
		}
	}

	history, err := listHistory(dir)
	if err != nil {
		t.Fatalf("listHistory: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("len(history) = %d, want 1", len(history))
	}
}

func TestListHistoryMissingDir(t *testing.T) {
	t.Parallel()

	history, err := listHistory(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("listHistory: %v", err)
	}
	if history != nil {
		t.Errorf("history = %v, want nil", history)
	}
}

func TestFindHistoryEntry(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 2, 20, 18, 30, 0, 0, time.UTC)
	history := []HistoryEntry{{Timestamp: ts}}

	if _, ok := findHistoryEntry(history, "20240220_183000"); !ok {
		t.Error("findHistoryEntry did not match an existing timestamp")
	}
	if _, ok := findHistoryEntry(history, "20240101_000000"); ok {
		t.Error("findHistoryEntry matched a missing timestamp")
	}
}
