// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
	"github.com/bureau-foundation/areasearch/lib/codec"
)

// FileName is the session file's name inside the state directory.
const FileName = "session.cbor"

// DefaultMaxAge is how long a saved session stays eligible for
// [Restore].
const DefaultMaxAge = 30 * 24 * time.Hour

// State is what one interactive run leaves behind.
type State struct {
	Filters areasearch.Filters `cbor:"filters"`
	// Region is the name of the region the view was showing.
	Region  string    `cbor:"region,omitempty"`
	SavedAt time.Time `cbor:"saved_at"`
}

// Write atomically replaces the session file at path. The parent
// directory must exist. The file is created with mode 0600.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("session: creating %s: %w", temporaryPath, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("session: writing %s: %w", temporaryPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("session: syncing %s: %w", temporaryPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("session: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("session: renaming into %s: %w", path, err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the session file at path. A missing file yields an error
// wrapping [os.ErrNotExist].
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("session: %w", err)
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("session: parsing %s: %w", path, err)
	}
	return state, nil
}

// Restore returns the saved state and true when path holds a session
// saved within maxAge of now. A missing or stale file is not an error.
func Restore(path string, maxAge time.Duration, now time.Time) (State, bool, error) {
	state, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	if now.Sub(state.SavedAt) > maxAge {
		return State{}, false, nil
	}
	return state, true, nil
}

// Clear removes the session file. Removing a missing file succeeds.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", path, err)
	}
	return nil
}
