// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError carries user-facing context alongside a failure: the
// operation that was attempted, the resource it touched, and concrete
// suggestions for recovery. The CLI renders these instead of raw error
// chains so that a failed pull or export tells the user what to do next.
//
// Construct one through the ErrorContext builder:
//
//	err := issue.NewErrorContext().
//		WithOperation("load environment").
//		WithResource("~/.venvoy/environments.yaml").
//		WithSuggestion("Run 'venvoy init' to create an environment first").
//		Wrap(originalErr).
//		Build()
type ActionableError struct {
	// Operation is a verb phrase naming what was attempted,
	// e.g. "pull image" or "export environment".
	Operation string

	// Resource is the file, path, or entity involved. Optional.
	Resource string

	// Suggestions are recovery hints shown under the message. Optional.
	Suggestions []string

	// Cause is the underlying error. Optional.
	Cause error
}

// ErrorContext accumulates error context incrementally. A context can be
// prepared up front and finished at the failure site:
//
//	ctx := issue.NewErrorContext().
//		WithOperation("parse environment file").
//		WithResource("./environment.yml")
//
//	// later, when the parse fails:
//	return ctx.WithSuggestion("Check YAML syntax").Wrap(err).Build()
type ErrorContext struct {
	operation   string
	resource    string
	suggestions []string
	cause       error
}

// NewErrorContext creates an empty ErrorContext builder.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// WrapWithOperation attaches an operation to err. Returns nil when err is nil
// so it can wrap a call directly.
func WrapWithOperation(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// WrapWithContext attaches an operation and a resource to err.
// Returns nil when err is nil.
func WrapWithContext(err error, operation, resource string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// Error returns the concise one-line form used in non-verbose output.
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// HasSuggestions reports whether any recovery hints are attached.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// Format renders the error for terminal display. The default form is the
// one-line message followed by bulleted suggestions; verbose additionally
// walks the wrapped chain one numbered cause per line.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder
	msg.WriteString(e.Error())

	if e.HasSuggestions() {
		msg.WriteString("\n")
		for _, suggestion := range e.Suggestions {
			msg.WriteString("\n  • ")
			msg.WriteString(suggestion)
		}
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, errors.Unwrap(err) {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
		}
	}

	return msg.String()
}

// WithOperation sets the operation being performed.
func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

// WithResource sets the resource involved.
func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one recovery hint. May be called repeatedly.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

// Wrap records the underlying cause.
func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build finishes the context. The operation is required; without one
// Build returns nil.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build returned as the error interface, for use directly in
// return statements. An ActionableError nil pointer would compare non-nil as
// an error, so the nil case is handled here.
func (c *ErrorContext) BuildError() error {
	ae := c.Build()
	if ae == nil {
		return nil
	}
	return ae
}
