// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"errors"
	"fmt"
	"os"

	"venvoy/internal/config"
	"venvoy/internal/container"
	"venvoy/internal/env"
	"venvoy/internal/issue"
)

// classifyIssue maps a command failure to its issue catalog entry, or 0 when
// the error has no catalog help.
func classifyIssue(err error) issue.Id {
	var detached *container.DetachedRunError
	switch {
	case errors.Is(err, container.ErrNoRuntimeFound):
		return issue.NoRuntimeFoundId
	case errors.Is(err, env.ErrEnvironmentNotFound):
		return issue.EnvironmentNotFoundId
	case errors.Is(err, env.ErrEnvironmentExists):
		return issue.EnvironmentAlreadyExistsId
	case errors.As(err, &detached):
		return issue.DetachedRunFailedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	default:
		return 0
	}
}

// reportIssue renders catalog help for a recognized failure to stderr. The
// error itself is still returned up through cobra, so this only adds the
// "things you can try" card.
func reportIssue(err error) {
	id := classifyIssue(err)
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, renderErr := entry.Render(issueStyle())
	if renderErr != nil {
		newLogger("cli").Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
		return
	}
	fmt.Fprint(os.Stderr, rendered)
}

// issueStyle picks the glamour style for issue cards from the configured
// color scheme.
func issueStyle() string {
	if cfg != nil && cfg.UI.ColorScheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
