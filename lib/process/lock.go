// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockFileName is the lock file created inside a locked directory.
const LockFileName = "lock"

// ErrLocked is returned by LockDirectory when another process holds
// the lock.
var ErrLocked = errors.New("process: directory is locked by another process")

// DirectoryLock is an exclusive flock on a directory's lock file. The
// kernel releases it when the process exits, so a crash never leaves
// a stale lock behind.
type DirectoryLock struct {
	path string
	fd   int
}

// LockDirectory takes the exclusive lock for directory without
// waiting. The directory must exist.
func LockDirectory(directory string) (*DirectoryLock, error) {
	path := filepath.Join(directory, LockFileName)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, directory)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &DirectoryLock{path: path, fd: fd}, nil
}

// Path returns the lock file's path.
func (l *DirectoryLock) Path() string { return l.path }

// Unlock releases the lock. The lock file is left in place; removing
// it would race with a process that has just opened it.
func (l *DirectoryLock) Unlock() error {
	if l.fd < 0 {
		return nil
	}
	fd := l.fd
	l.fd = -1
	if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
		unix.Close(fd)
		return fmt.Errorf("unlocking %s: %w", l.path, err)
	}
	return unix.Close(fd)
}
