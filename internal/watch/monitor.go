// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"venvoy/internal/container"
)

const (
	// defaultSignalPath is the file the in-container package monitor touches
	// when the installed package set changes.
	defaultSignalPath = "/tmp/venvoy_package_changed"

	// defaultPollInterval is how often the signal file is checked.
	defaultPollInterval = 2 * time.Second

	// maxConsecutiveFailures is how many exec failures in a row the monitor
	// tolerates before concluding the container has stopped.
	maxConsecutiveFailures = 3
)

type (
	// ContainerExecer runs a command inside a running named container. It is
	// the slice of internal/container.Manager the monitor needs.
	ContainerExecer interface {
		Exec(ctx context.Context, name string, command []string) (string, error)
	}

	// MonitorConfig holds the parameters for a Monitor.
	MonitorConfig struct {
		// ContainerName is the session container to poll.
		ContainerName string

		// SignalPath is the in-container path of the change marker. Empty
		// falls back to the well-known default.
		SignalPath string

		// Interval is the poll period. Zero or negative falls back to the
		// default.
		Interval time.Duration

		// OnChange is invoked once per detected change, after the marker has
		// been observed and before it is cleared. A nil callback still
		// clears the marker.
		OnChange func(ctx context.Context) error

		// Logger receives monitor lifecycle messages. Nil gets a default.
		Logger *log.Logger
	}

	// Monitor polls a running session container for the package-change
	// marker and fires a callback when it appears. Run must be called
	// exactly once.
	Monitor struct {
		cfg      MonitorConfig
		execer   ContainerExecer
		interval time.Duration
		signal   string
		logger   *log.Logger
		started  atomic.Bool
	}
)

// NewMonitor creates a Monitor from the given config.
func NewMonitor(execer ContainerExecer, cfg MonitorConfig) (*Monitor, error) {
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("watch: container name must not be empty")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	signal := cfg.SignalPath
	if signal == "" {
		signal = defaultSignalPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
	}
	return &Monitor{
		cfg:      cfg,
		execer:   execer,
		interval: interval,
		signal:   signal,
		logger:   logger,
	}, nil
}

// Run polls until the context is cancelled or the container stops. A
// stopped container is the normal way a session ends, so it returns nil;
// only a repeated unexpected failure shape is reported. Run must be called
// exactly once; a second call returns an error immediately.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	m.logger.Debug("package change monitor started",
		"container", m.cfg.ContainerName, "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		changed, err := m.checkSignal(ctx)
		if err != nil {
			failures++
			if failures >= maxConsecutiveFailures {
				m.logger.Debug("container no longer reachable, stopping monitor",
					"container", m.cfg.ContainerName, "error", err)
				return nil
			}
			continue
		}
		failures = 0

		if !changed {
			continue
		}

		m.logger.Info("package change detected", "container", m.cfg.ContainerName)
		if m.cfg.OnChange != nil {
			if err := m.cfg.OnChange(ctx); err != nil {
				m.logger.Warn("package change callback failed", "error", err)
			}
		}
		m.clearSignal(ctx)
	}
}

// checkSignal tests for the marker file. A clean exit means present, exit
// code 1 means absent, anything else is a container failure.
func (m *Monitor) checkSignal(ctx context.Context) (bool, error) {
	_, err := m.execer.Exec(ctx, m.cfg.ContainerName, []string{"test", "-f", m.signal})
	if err == nil {
		return true, nil
	}
	var execErr *container.ExecError
	if errors.As(err, &execErr) && execErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

func (m *Monitor) clearSignal(ctx context.Context) {
	if _, err := m.execer.Exec(ctx, m.cfg.ContainerName, []string{"rm", "-f", m.signal}); err != nil {
		m.logger.Debug("could not clear change marker", "error", err)
	}
}
