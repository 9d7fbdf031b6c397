package timer

import (
	"sync"
	"testing"
	"time"
)

// fastManager ticks every millisecond so tests finish quickly.
func fastManager(onComplete CompletionFunc) *Manager {
	m := NewManager(onComplete)
	m.SetIntervals(time.Millisecond, time.Millisecond)
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestManager_StartAndStatus(t *testing.T) {
	m := fastManager(nil)
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{60, 60}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.ID == "" || snap.ExerciseID != "ex1" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.State != "running" {
		t.Fatalf("state = %q, want running", snap.State)
	}

	got, err := m.Status(snap.ID, "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.ID != snap.ID {
		t.Fatalf("status id = %q, want %q", got.ID, snap.ID)
	}
}

func TestManager_OwnershipEnforced(t *testing.T) {
	m := fastManager(nil)
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{60}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Status(snap.ID, "intruder"); err != ErrSessionNotFound {
		t.Fatalf("foreign status: got %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Pause(snap.ID, "intruder"); err != ErrSessionNotFound {
		t.Fatalf("foreign pause: got %v, want ErrSessionNotFound", err)
	}
}

func TestManager_PauseStopsCountdown(t *testing.T) {
	m := fastManager(nil)
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{600}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	paused, err := m.Pause(snap.ID, "u1")
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.State != "paused" {
		t.Fatalf("state = %q, want paused", paused.State)
	}

	remaining := paused.Remaining
	time.Sleep(20 * time.Millisecond)
	got, err := m.Status(snap.ID, "u1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Remaining != remaining {
		t.Fatalf("countdown advanced while paused: %d -> %d", remaining, got.Remaining)
	}

	resumed, err := m.Resume(snap.ID, "u1")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.State != "running" {
		t.Fatalf("state = %q, want running", resumed.State)
	}
}

func TestManager_PauseCompleted(t *testing.T) {
	m := fastManager(nil)
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{1}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		s, err := m.Status(snap.ID, "u1")
		return err == nil && s.State == "completed"
	})
	if _, err := m.Pause(snap.ID, "u1"); err != ErrBadTransition {
		t.Fatalf("pause completed: got %v, want ErrBadTransition", err)
	}
}

func TestManager_CompletionCallback(t *testing.T) {
	var mu sync.Mutex
	var gotUser, gotExercise string
	calls := 0

	m := fastManager(func(userID, exerciseID string) {
		mu.Lock()
		defer mu.Unlock()
		gotUser, gotExercise = userID, exerciseID
		calls++
	})
	defer m.Shutdown()

	if _, err := m.Start("u1", "ex9", []int{2}, false); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls > 0
	})

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("onComplete calls = %d, want 1", calls)
	}
	if gotUser != "u1" || gotExercise != "ex9" {
		t.Fatalf("onComplete(%q, %q), want (u1, ex9)", gotUser, gotExercise)
	}
}

func TestManager_CompletedSessionEvicted(t *testing.T) {
	m := fastManager(nil)
	m.completedRetention = 10 * time.Millisecond
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{1}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		s, err := m.Status(snap.ID, "u1")
		return err == nil && s.State == "completed"
	})

	// after the retention window the snapshot is gone
	waitFor(t, time.Second, func() bool {
		_, err := m.Status(snap.ID, "u1")
		return err == ErrSessionNotFound
	})
}

func TestManager_ResetDiscardsSession(t *testing.T) {
	m := fastManager(nil)

	snap, err := m.Start("u1", "ex1", []int{600}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Reset(snap.ID, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := m.Status(snap.ID, "u1"); err != ErrSessionNotFound {
		t.Fatalf("status after reset: got %v, want ErrSessionNotFound", err)
	}
	if err := m.Reset(snap.ID, "u1"); err != ErrSessionNotFound {
		t.Fatalf("double reset: got %v, want ErrSessionNotFound", err)
	}
}

func TestManager_BreathingSnapshotFields(t *testing.T) {
	m := fastManager(nil)
	defer m.Shutdown()

	snap, err := m.Start("u1", "ex1", []int{600}, true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.BreathPhase != "inhale" {
		t.Fatalf("breath phase = %q, want inhale", snap.BreathPhase)
	}

	waitFor(t, time.Second, func() bool {
		s, err := m.Status(snap.ID, "u1")
		return err == nil && s.Breaths >= 1
	})
}
