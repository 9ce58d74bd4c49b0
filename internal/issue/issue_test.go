// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestId_Constants(t *testing.T) {
	// Verify all IDs are unique and sequential
	ids := []Id{
		NoRuntimeFoundId,
		EnvironmentNotFoundId,
		EnvironmentAlreadyExistsId,
		ImagePullFailedId,
		ImageBuildFailedId,
		DetachedRunFailedId,
		ExportFailedId,
		ImportFailedId,
		ConfigLoadFailedId,
		SifCacheUnwritableId,
	}

	seen := make(map[Id]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	// Verify IDs start at 1 (iota + 1)
	if NoRuntimeFoundId != 1 {
		t.Errorf("NoRuntimeFoundId = %d, want 1", NoRuntimeFoundId)
	}
}

func TestIssue_Id(t *testing.T) {
	issue := Get(NoRuntimeFoundId)
	if issue == nil {
		t.Fatal("Get(NoRuntimeFoundId) returned nil")
	}

	if issue.Id() != NoRuntimeFoundId {
		t.Errorf("issue.Id() = %d, want %d", issue.Id(), NoRuntimeFoundId)
	}
}

func TestIssue_MarkdownMsg(t *testing.T) {
	issue := Get(NoRuntimeFoundId)
	if issue == nil {
		t.Fatal("Get(NoRuntimeFoundId) returned nil")
	}

	msg := issue.MarkdownMsg()
	if msg == "" {
		t.Error("MarkdownMsg() returned empty string")
	}

	// The remediation must name all four supported runtimes.
	for _, rt := range []string{"Docker", "Apptainer", "Singularity", "Podman"} {
		if !strings.Contains(string(msg), rt) {
			t.Errorf("MarkdownMsg() should mention %s", rt)
		}
	}
}

func TestIssue_DocLinks(t *testing.T) {
	issue := Get(NoRuntimeFoundId)
	if issue == nil {
		t.Fatal("Get(NoRuntimeFoundId) returned nil")
	}

	links := issue.DocLinks()
	if len(links) == 0 {
		t.Fatal("every issue must carry at least one doc link")
	}

	// Modifying the returned slice should not affect the original
	original := links[0]
	links[0] = "modified"
	newLinks := issue.DocLinks()
	if newLinks[0] != original {
		t.Error("DocLinks() should return a clone")
	}
}

func TestGet_AllRegistered(t *testing.T) {
	for id := NoRuntimeFoundId; id <= SifCacheUnwritableId; id++ {
		if Get(id) == nil {
			t.Errorf("Get(%d) returned nil; issue not registered", id)
		}
	}
}

func TestValues(t *testing.T) {
	values := Values()
	if len(values) != len(issues) {
		t.Errorf("Values() returned %d issues, want %d", len(values), len(issues))
	}
}

func TestIssue_Render(t *testing.T) {
	// Swap the glamour renderer for a pass-through so the test asserts on
	// content, not terminal styling.
	oldRender := render
	render = func(in string, _ string) (string, error) { return in, nil }
	defer func() { render = oldRender }()

	issue := Get(ImagePullFailedId)
	out, err := issue.Render("dark")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Image pull failed") {
		t.Errorf("rendered output missing title: %q", out)
	}
	if !strings.Contains(out, "See also") {
		t.Errorf("rendered output missing links section: %q", out)
	}
}
