// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"fmt"
	"os"

	"venvoy/internal/config"
	"venvoy/internal/container"
	"venvoy/internal/env"

	"github.com/charmbracelet/log"
)

// newLogger returns a component logger honoring the --verbose flag.
func newLogger(prefix string) *log.Logger {
	opts := log.Options{Prefix: prefix}
	if verbose {
		opts.Level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, opts)
}

// newManager selects a container runtime, honoring an explicit pin from the
// config file.
func newManager(ctx context.Context) (*container.Manager, error) {
	opts := []container.ManagerOption{
		container.WithManagerLogger(newLogger("container")),
	}
	if cfg != nil && cfg.Runtime != "" {
		rt, err := container.ParseRuntime(cfg.Runtime)
		if err != nil {
			return nil, fmt.Errorf("config runtime: %w", err)
		}
		opts = append(opts, container.WithRuntime(rt))
	}
	return container.NewManager(ctx, opts...)
}

// newEnvService wires the environment service on top of a freshly selected
// runtime. The manager is returned too so callers can exec against the
// session container without re-running runtime detection.
func newEnvService(ctx context.Context) (*env.Service, *container.Manager, error) {
	mgr, err := newManager(ctx)
	if err != nil {
		reportIssue(err)
		return nil, nil, err
	}
	c := cfg
	if c == nil {
		c = config.DefaultConfig()
	}
	return env.NewService(c, mgr, env.WithLogger(newLogger("env"))), mgr, nil
}
