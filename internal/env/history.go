// SPDX-License-Identifier: MPL-2.0

package env

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	// historyTimestampLayout is the timestamp embedded in auto-saved
	// environment file names, e.g. environment_20240131_154500.yml.
	historyTimestampLayout = "20060102_150405"

	historyFilePrefix = "environment_"
	historyFileSuffix = ".yml"

	// latestEnvironmentFileName always mirrors the newest export.
	latestEnvironmentFileName = "environment.yml"
)

// HistoryEntry is one auto-saved export of an environment's package state.
type HistoryEntry struct {
	Path          string
	Timestamp     time.Time
	CondaPackages int
	PipPackages   int
	Exported      string
}

// TotalPackages returns the entry's combined package count.
func (h HistoryEntry) TotalPackages() int { return h.CondaPackages + h.PipPackages }

// historyFileName builds the timestamped file name for an export.
func historyFileName(ts time.Time) string {
	return historyFilePrefix + ts.Format(historyTimestampLayout) + historyFileSuffix
}

// listHistory scans a projects directory for timestamped exports, newest
// first. Files with unparseable names or contents are skipped, not errors:
// the directory is user-visible and may accumulate strays.
func listHistory(projectsDir string) ([]HistoryEntry, error) {
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read export history: %w", err)
	}

	var history []HistoryEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, historyFilePrefix) || !strings.HasSuffix(name, historyFileSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, historyFilePrefix), historyFileSuffix)
		ts, err := time.Parse(historyTimestampLayout, stamp)
		if err != nil {
			continue
		}

		path := filepath.Join(projectsDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		envFile, err := parseEnvironmentFile(data)
		if err != nil {
			continue
		}

		conda, pip := envFile.Counts()
		history = append(history, HistoryEntry{
			Path:          path,
			Timestamp:     ts,
			CondaPackages: conda,
			PipPackages:   pip,
			Exported:      envFile.Exported,
		})
	}

	slices.SortFunc(history, func(a, b HistoryEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return history, nil
}

// findHistoryEntry returns the entry whose file name carries the given
// timestamp string, as printed by `venvoy history`.
func findHistoryEntry(history []HistoryEntry, timestamp string) (HistoryEntry, bool) {
	for _, entry := range history {
		if entry.Timestamp.Format(historyTimestampLayout) == timestamp {
			return entry, true
		}
	}
	return HistoryEntry{}, false
}
