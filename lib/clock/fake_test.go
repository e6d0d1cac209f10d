// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(250 * time.Millisecond)
	if got, want := clock.Now(), epoch.Add(250*time.Millisecond); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfter(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(30 * time.Second)

	clock.Advance(29 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(30 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(30*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}

	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after one-shot fired, want 0", clock.PendingCount())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(d):
		default:
			t.Errorf("After(%v) did not deliver immediately", d)
		}
	}
}

func TestFakeTicker(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	clock.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(50 * time.Millisecond)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire at first period")
	}

	// Spanning several periods yields one tick; the channel holds one.
	clock.Advance(time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after long advance")
	}
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(time.Second)
	if clock.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", clock.PendingCount())
	}
	ticker.Stop()
	if clock.PendingCount() != 0 {
		t.Fatalf("PendingCount after Stop = %d, want 0", clock.PendingCount())
	}
	clock.Advance(2 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	registered := make(chan struct{})
	go func() {
		ticker := clock.NewTicker(time.Second)
		close(registered)
		<-ticker.C
		ticker.Stop()
	}()

	clock.WaitForTimers(1)
	<-registered
	clock.Advance(time.Second)
}

func TestNewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}
