// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// unrecoverableErrnos are the inotify resource-exhaustion errors after which
// the watcher cannot limp on: ENOSPC (fs.inotify.max_user_watches hit, not
// rare on login nodes with large shared homes), EMFILE (per-process fd
// limit), ENFILE (system-wide fd limit).
var unrecoverableErrnos = []error{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}

// isFatalFsnotifyError reports whether an fsnotify error means the watcher is
// fundamentally broken. Anything else (permissions, transient IO) keeps the
// session's watcher alive.
func isFatalFsnotifyError(err error) bool {
	for _, errno := range unrecoverableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
