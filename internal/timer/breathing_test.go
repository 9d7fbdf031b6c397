package timer

import "testing"

func TestBreathCycle_PhaseSequence(t *testing.T) {
	b := NewBreathCycle()
	if b.Phase() != PhaseInhale {
		t.Fatalf("initial phase = %v, want inhale", b.Phase())
	}

	tickMs := func(ms int) (wrapped bool) {
		t.Helper()
		for i := 0; i < ms/100; i++ {
			if b.Tick() {
				wrapped = true
			}
		}
		return wrapped
	}

	tickMs(4000)
	if b.Phase() != PhaseHold {
		t.Fatalf("after 4s: phase = %v, want hold", b.Phase())
	}
	tickMs(7000)
	if b.Phase() != PhaseExhale {
		t.Fatalf("after 11s: phase = %v, want exhale", b.Phase())
	}
	tickMs(8000)
	if b.Phase() != PhaseRest {
		t.Fatalf("after 19s: phase = %v, want rest", b.Phase())
	}
}

func TestBreathCycle_WrapsAt21Seconds(t *testing.T) {
	b := NewBreathCycle()

	wrapped := false
	ticks := 0
	for i := 0; i < 210; i++ { // 21000ms at 100ms resolution
		ticks++
		if b.Tick() {
			wrapped = true
			break
		}
	}
	if !wrapped {
		t.Fatal("cycle never wrapped within 21s")
	}
	if ticks != 210 {
		t.Fatalf("wrapped after %d ticks, want 210", ticks)
	}
	if b.Phase() != PhaseInhale {
		t.Fatalf("phase after wrap = %v, want inhale", b.Phase())
	}
	if b.Breaths() != 1 {
		t.Fatalf("breaths = %d, want 1", b.Breaths())
	}
}

func TestBreathCycle_Reset(t *testing.T) {
	b := NewBreathCycle()
	for i := 0; i < 250; i++ {
		b.Tick()
	}
	b.Reset()

	if b.Phase() != PhaseInhale || b.Breaths() != 0 {
		t.Fatalf("after reset: phase=%v breaths=%d, want inhale/0", b.Phase(), b.Breaths())
	}
	if b.PhaseRemainingMs() != 4000 {
		t.Fatalf("phase remaining = %d, want 4000", b.PhaseRemainingMs())
	}
}
