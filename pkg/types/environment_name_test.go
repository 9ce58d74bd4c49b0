// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"strings"
	"testing"
)

func TestEnvironmentNameValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     EnvironmentName
		wantValid bool
	}{
		{name: "simple name", value: "myproject", wantValid: true},
		{name: "with hyphen", value: "my-project", wantValid: true},
		{name: "with underscore and dot", value: "my_project.v2", wantValid: true},
		{name: "starts with digit", value: "2024-analysis", wantValid: true},
		{name: "single character", value: "x", wantValid: true},
		{name: "empty", value: "", wantValid: false},
		{name: "starts with hyphen", value: "-project", wantValid: false},
		{name: "starts with dot", value: ".project", wantValid: false},
		{name: "contains space", value: "my project", wantValid: false},
		{name: "contains slash", value: "my/project", wantValid: false},
		{name: "contains colon", value: "my:project", wantValid: false},
		{name: "too long", value: EnvironmentName(strings.Repeat("a", 64)), wantValid: false},
		{name: "max length", value: EnvironmentName(strings.Repeat("a", 63)), wantValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Errorf("EnvironmentName(%q).Validate() error = %v, wantValid %v", tt.value, err, tt.wantValid)
			}
			if !tt.wantValid && !errors.Is(err, ErrInvalidEnvironmentName) {
				t.Errorf("error does not wrap ErrInvalidEnvironmentName: %v", err)
			}
		})
	}
}

func TestEnvironmentNameContainerName(t *testing.T) {
	t.Parallel()

	if got := EnvironmentName("analysis").ContainerName(); got != "analysis-runtime" {
		t.Errorf("ContainerName() = %q, want %q", got, "analysis-runtime")
	}
}
