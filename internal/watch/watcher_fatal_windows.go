// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// unrecoverableErrnos are the Win32 codes after which ReadDirectoryChangesW
// watching cannot recover: ERROR_TOO_MANY_OPEN_FILES (4, handle limit),
// ERROR_INVALID_HANDLE (6, watched directory deleted or unmounted), and
// ERROR_NOT_ENOUGH_MEMORY (8, notification buffer allocation failed).
var unrecoverableErrnos = []error{
	syscall.Errno(4),
	syscall.Errno(6),
	syscall.Errno(8),
}

// isFatalFsnotifyError reports whether an fsnotify error means the watcher is
// fundamentally broken. Anything else keeps the session's watcher alive.
func isFatalFsnotifyError(err error) bool {
	for _, errno := range unrecoverableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
