// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"venvoy/internal/container"
	"venvoy/internal/env"
	"venvoy/internal/watch"
	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	runName    string
	runCommand string
	runMounts  []string
	runDetach  bool

	// runCmd starts an environment session
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start a session in an environment",
		Long: `Start a session in an environment.

Without --command this drops into an interactive shell inside the
container. The host home directory is mounted at /home/venvoy/host-home
and the current directory at /workspace.

While a Python session runs, venvoy watches for package changes inside
the container and refreshes the environment.yml snapshot automatically.`,
		RunE: runRunCmd,
	}
)

func init() {
	runCmd.Flags().StringVarP(&runName, "name", "n", "venvoy-env", "environment name")
	runCmd.Flags().StringVarP(&runCommand, "command", "c", "", "command to run instead of an interactive shell")
	runCmd.Flags().StringArrayVarP(&runMounts, "mount", "m", nil, "extra bind mount host:container[:mode] (repeatable)")
	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "run the session in the background")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(runName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, mgr, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}
	e, err := svc.Environment(name)
	if err != nil {
		reportIssue(err)
		return err
	}

	// Interactive sessions get background snapshotting: a poller inside the
	// container notices installs, and a host-side watcher notices edits to
	// the environment's requirements files. Both sides exec into the named
	// session container, so runtimes without a container-tracking model
	// (Apptainer, Singularity) skip it entirely.
	watchCtx, cancelWatch := context.WithCancel(cmd.Context())
	defer cancelWatch()
	if cfg != nil && cfg.AutoSave.Enabled && !runDetach {
		if mgr.Runtime().TracksContainers() {
			startAutoSave(watchCtx, svc, mgr, e, name)
		} else {
			newLogger("watch").Debug("auto-save disabled", "runtime", mgr.Runtime())
		}
	}

	handle, err := svc.Run(cmd.Context(), env.RunOptions{
		Name:    name,
		Command: runCommand,
		Mounts:  runMounts,
		Detach:  runDetach,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	if err != nil {
		reportIssue(err)
		// The session's own exit status propagates to venvoy's.
		var execErr *container.ExecError
		if errors.As(err, &execErr) && execErr.ExitCode > 0 {
			code := types.ExitCode(execErr.ExitCode)
			if code.IsSignal() {
				fmt.Fprintln(os.Stderr, SubtitleStyle.Render(
					fmt.Sprintf("session terminated by signal %d", code.SignalNumber())))
			}
			return &ExitError{Code: code, Err: err}
		}
		return err
	}

	if runDetach && handle != nil {
		fmt.Printf("%s Session running in background as %s\n",
			SuccessStyle.Render("✓"), CmdStyle.Render(handle.Name))
		fmt.Printf("  stop it with '%s'\n", CmdStyle.Render("venvoy stop --name "+string(name)))
	}
	return nil
}

// startAutoSave launches the in-container change poller and the host-side
// requirements watcher for the duration of a session. Both are best-effort:
// a failure to start or to snapshot never interrupts the session.
func startAutoSave(ctx context.Context, svc *env.Service, mgr *container.Manager, e env.Environment, name types.EnvironmentName) {
	logger := newLogger("watch")
	refresh := func(ctx context.Context) error {
		path, err := svc.AutoSaveRunning(ctx, name)
		if err != nil {
			logger.Debug("snapshot refresh failed", "name", name, "error", err)
			return nil
		}
		logger.Info("environment snapshot updated", "path", path)
		return nil
	}

	mon, err := watch.NewMonitor(mgr, watch.MonitorConfig{
		ContainerName: e.ContainerName(),
		Interval:      time.Duration(cfg.AutoSave.IntervalSeconds) * time.Second,
		OnChange:      refresh,
		Logger:        logger,
	})
	if err == nil {
		go func() {
			if runErr := mon.Run(ctx); runErr != nil {
				logger.Debug("package monitor stopped", "error", runErr)
			}
		}()
	}

	w, err := watch.New(watch.Config{
		BaseDir:  e.Dir(),
		OnChange: func(ctx context.Context, changed []string) error { return refresh(ctx) },
		Stderr:   os.Stderr,
	})
	if err != nil {
		logger.Debug("requirements watcher unavailable", "error", err)
		return
	}
	go func() {
		if runErr := w.Run(ctx); runErr != nil {
			logger.Debug("requirements watcher stopped", "error", runErr)
		}
	}()
}
