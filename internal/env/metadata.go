// SPDX-License-Identifier: MPL-2.0

package env

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"venvoy/pkg/types"
)

const (
	// KindPython marks a Python environment.
	KindPython Kind = "python"
	// KindR marks an R environment.
	KindR Kind = "r"
)

// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
var ErrInvalidKind = errors.New("invalid environment kind")

var validate = validator.New()

type (
	// Kind is the interpreter an environment is built around.
	Kind string

	// InvalidKindError is returned when a Kind is neither python nor r.
	InvalidKindError struct {
		Value Kind
	}

	// Metadata is the per-environment config.yaml written at init time and
	// read back by every later operation.
	Metadata struct {
		Name    types.EnvironmentName `yaml:"name" validate:"required"`
		Kind    Kind                  `yaml:"kind" validate:"required,oneof=python r"`
		Version string                `yaml:"version" validate:"required"`
		Created time.Time             `yaml:"created" validate:"required"`
		// Image is the remote image the environment runs from.
		Image string `yaml:"image" validate:"required"`
		// ImageTag is set once a local image has been built for the
		// environment; empty until then.
		ImageTag string `yaml:"image_tag,omitempty"`
		// Platform is the host OS/arch recorded for provenance.
		Platform string `yaml:"platform"`
		// RestoredFrom names the export this environment was restored from,
		// empty for a fresh environment.
		RestoredFrom string `yaml:"restored_from,omitempty"`
	}
)

// Error implements the error interface.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid environment kind %q (valid: python, r)", e.Value)
}

// Unwrap returns ErrInvalidKind so callers can use errors.Is for programmatic detection.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// Validate returns an error unless the Kind is python or r.
func (k Kind) Validate() error {
	switch k {
	case KindPython, KindR:
		return nil
	default:
		return &InvalidKindError{Value: k}
	}
}

// Validate checks the metadata's struct tags and typed fields.
func (m *Metadata) Validate() error {
	if err := m.Name.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(m); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// loadMetadata reads and validates an environment's config.yaml.
func loadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment metadata: %w", err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse environment metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

// saveMetadata validates and writes an environment's config.yaml.
func saveMetadata(path string, meta *Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize environment metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write environment metadata: %w", err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("metadata validation failed: %w", err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	if len(msgs) == 1 {
		return fmt.Errorf("metadata validation error: %s", msgs[0])
	}
	result := "metadata validation errors:\n"
	for _, msg := range msgs {
		result += fmt.Sprintf("  - %s\n", msg)
	}
	return errors.New(result)
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", e.Field())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", e.Field(), e.Tag())
	}
}
