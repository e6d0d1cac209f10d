// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/areasearch/lib/areasearch"
)

var savedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleState() State {
	filters := areasearch.DefaultFilters()
	filters.Name = "lamp"
	filters.Owner = "ada"
	filters.Types.Temporary = false
	return State{Filters: filters, Region: "Ahern", SavedAt: savedAt}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	state := sampleState()

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Filters != state.Filters {
		t.Errorf("Filters = %+v, want %+v", got.Filters, state.Filters)
	}
	if got.Region != state.Region {
		t.Errorf("Region = %q, want %q", got.Region, state.Region)
	}
	if !got.SavedAt.Equal(state.SavedAt) {
		t.Errorf("SavedAt = %v, want %v", got.SavedAt, state.SavedAt)
	}
}

func TestWriteOverwritesAndCleansUp(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, FileName)

	first := sampleState()
	if err := Write(path, first); err != nil {
		t.Fatalf("Write first: %v", err)
	}
	second := first
	second.Filters.Name = "chair"
	second.Region = "Bexley"
	if err := Write(path, second); err != nil {
		t.Fatalf("Write second: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Filters.Name != "chair" || got.Region != "Bexley" {
		t.Errorf("got %+v, want the second state", got)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only %s", len(entries), FileName)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("mode = %o, want 0600", mode)
	}
}

func TestWriteMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", FileName)
	if err := Write(path, sampleState()); err == nil {
		t.Fatal("Write into a missing directory succeeded")
	}
}

func TestReadErrors(t *testing.T) {
	directory := t.TempDir()

	_, err := Read(filepath.Join(directory, "absent.cbor"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want os.ErrNotExist", err)
	}

	corrupt := filepath.Join(directory, "corrupt.cbor")
	if err := os.WriteFile(corrupt, []byte{0xff, 0x00, 0x13}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(corrupt); err == nil {
		t.Error("corrupt file: Read succeeded")
	}
}

func TestRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"fresh", savedAt.Add(time.Hour), true},
		{"at the limit", savedAt.Add(DefaultMaxAge), true},
		{"stale", savedAt.Add(DefaultMaxAge + time.Second), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			state, ok, err := Restore(path, DefaultMaxAge, test.now)
			if err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if ok != test.want {
				t.Fatalf("ok = %v, want %v", ok, test.want)
			}
			if ok && state.Filters.Name != "lamp" {
				t.Errorf("Filters.Name = %q, want lamp", state.Filters.Name)
			}
			if !ok && state != (State{}) {
				t.Errorf("stale restore returned %+v", state)
			}
		})
	}
}

func TestRestoreMissingAndCorrupt(t *testing.T) {
	directory := t.TempDir()

	_, ok, err := Restore(filepath.Join(directory, FileName), DefaultMaxAge, savedAt)
	if err != nil || ok {
		t.Errorf("missing file: ok = %v, err = %v", ok, err)
	}

	corrupt := filepath.Join(directory, "corrupt.cbor")
	if err := os.WriteFile(corrupt, []byte{0xff, 0xff}, 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := Restore(corrupt, DefaultMaxAge, savedAt); err == nil || ok {
		t.Errorf("corrupt file: ok = %v, err = %v", ok, err)
	}
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Write(path, sampleState()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for attempt := range 2 {
		if err := Clear(path); err != nil {
			t.Fatalf("Clear #%d: %v", attempt+1, err)
		}
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present: %v", err)
	}
}
