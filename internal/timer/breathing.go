package timer

// Phase is one of the four fixed breathing phases.
type Phase int

const (
	PhaseInhale Phase = iota
	PhaseHold
	PhaseExhale
	PhaseRest
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInhale:
		return "inhale"
	case PhaseHold:
		return "hold"
	case PhaseExhale:
		return "exhale"
	case PhaseRest:
		return "rest"
	default:
		return "unknown"
	}
}

// Fixed phase durations in milliseconds: inhale 4s, hold 7s, exhale 8s, rest 2s.
var phaseDurationsMs = [4]int{4000, 7000, 8000, 2000}

// breathTickMs is the resolution the cycle advances at.
const breathTickMs = 100

// BreathCycle advances the four breathing phases in round-robin on 100ms
// ticks. It runs independently of the exercise countdown and only while the
// owning timer is running. Completing a full rest→inhale wrap increments the
// breath counter.
type BreathCycle struct {
	phase     Phase
	elapsedMs int
	breaths   int
}

// NewBreathCycle starts a cycle at the inhale phase.
func NewBreathCycle() *BreathCycle {
	return &BreathCycle{phase: PhaseInhale}
}

// Phase returns the active breathing phase.
func (b *BreathCycle) Phase() Phase { return b.phase }

// Breaths returns how many full cycles have completed.
func (b *BreathCycle) Breaths() int { return b.breaths }

// PhaseRemainingMs returns the milliseconds left in the active phase.
func (b *BreathCycle) PhaseRemainingMs() int {
	return phaseDurationsMs[b.phase] - b.elapsedMs
}

// Tick advances the cycle by 100ms, moving to the next phase when the
// current one is exhausted. It returns true when the tick wrapped the cycle
// from rest back to inhale (one complete breath).
func (b *BreathCycle) Tick() (wrapped bool) {
	b.elapsedMs += breathTickMs
	if b.elapsedMs < phaseDurationsMs[b.phase] {
		return false
	}

	b.elapsedMs = 0
	switch b.phase {
	case PhaseInhale:
		b.phase = PhaseHold
	case PhaseHold:
		b.phase = PhaseExhale
	case PhaseExhale:
		b.phase = PhaseRest
	case PhaseRest:
		b.phase = PhaseInhale
		b.breaths++
		return true
	}
	return false
}

// Reset restores the cycle to inhale with a zeroed breath counter.
func (b *BreathCycle) Reset() {
	b.phase = PhaseInhale
	b.elapsedMs = 0
	b.breaths = 0
}
