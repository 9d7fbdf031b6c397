// Package timer implements the exercise countdown state machine and the
// breathing phase cycle. The machines are pure and tick-driven: callers
// (or the Manager in this package) decide when ticks happen, which keeps
// the transition logic testable without real timers.
package timer

import "errors"

// State is the lifecycle state of an exercise timer.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// CueKind identifies an audio cue emitted by the timer.
type CueKind int

const (
	// CueStep fires once when the active step index changes.
	CueStep CueKind = iota
	// CueComplete fires when the countdown reaches zero. It is emitted
	// twice: immediately and once more after DelayMs.
	CueComplete
)

// Cue is a one-shot audio cue. DelayMs > 0 means the cue should be played
// that many milliseconds after the tick that produced it.
type Cue struct {
	Kind    CueKind
	DelayMs int
}

// completionEchoDelayMs is the gap before the completion cue replays.
const completionEchoDelayMs = 1500

var (
	// ErrNotRunning is returned by Tick when the timer is not running.
	ErrNotRunning = errors.New("timer is not running")
	// ErrBadTransition is returned for transitions the state machine
	// does not allow (e.g. pausing an idle timer).
	ErrBadTransition = errors.New("invalid timer transition")
)

// Timer is the countdown state machine for one exercise run.
//
// Transitions: idle → running → {paused ⇄ running} → completed, plus Reset
// back to idle from any state. While running, each Tick represents one
// elapsed second.
type Timer struct {
	total     int   // total seconds
	steps     []int // per-step seconds
	bounds    []int // cumulative step bounds
	remaining int
	stepIndex int
	state     State
}

// New builds a Timer over per-step timings. The countdown total is the sum
// of stepSeconds; steps must be non-empty with positive timings.
func New(stepSeconds []int) (*Timer, error) {
	if len(stepSeconds) == 0 {
		return nil, errors.New("timer requires at least one step")
	}
	total := 0
	bounds := make([]int, len(stepSeconds))
	for i, s := range stepSeconds {
		if s <= 0 {
			return nil, errors.New("step timings must be positive")
		}
		total += s
		bounds[i] = total
	}
	return &Timer{
		total:     total,
		steps:     append([]int(nil), stepSeconds...),
		bounds:    bounds,
		remaining: total,
		state:     StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (t *Timer) State() State { return t.state }

// Remaining returns the remaining seconds.
func (t *Timer) Remaining() int { return t.remaining }

// StepIndex returns the index of the active step.
func (t *Timer) StepIndex() int { return t.stepIndex }

// Progress returns completion as a 0 to 100 percentage.
func (t *Timer) Progress() int {
	if t.total == 0 {
		return 0
	}
	return (t.total - t.remaining) * 100 / t.total
}

// Start moves idle → running.
func (t *Timer) Start() error {
	if t.state != StateIdle {
		return ErrBadTransition
	}
	t.state = StateRunning
	return nil
}

// Pause moves running → paused.
func (t *Timer) Pause() error {
	if t.state != StateRunning {
		return ErrBadTransition
	}
	t.state = StatePaused
	return nil
}

// Resume moves paused → running.
func (t *Timer) Resume() error {
	if t.state != StatePaused {
		return ErrBadTransition
	}
	t.state = StateRunning
	return nil
}

// Reset returns to idle from any state, restoring the full countdown.
func (t *Timer) Reset() {
	t.state = StateIdle
	t.remaining = t.total
	t.stepIndex = 0
}

// stepIndexAt walks the cumulative bounds and returns the step whose bound
// is first >= elapsed (ties resolved toward the earlier step).
func (t *Timer) stepIndexAt(elapsed int) int {
	for i, b := range t.bounds {
		if elapsed <= b {
			return i
		}
	}
	return len(t.bounds) - 1
}

// Tick advances the countdown by one second and returns the cues produced
// by the transition. Crossing into a new step yields a one-shot CueStep;
// reaching zero transitions to completed and yields CueComplete twice (the
// second delayed by a fixed echo interval).
func (t *Timer) Tick() ([]Cue, error) {
	if t.state != StateRunning {
		return nil, ErrNotRunning
	}

	t.remaining--
	if t.remaining < 0 {
		t.remaining = 0
	}
	elapsed := t.total - t.remaining

	var cues []Cue
	if idx := t.stepIndexAt(elapsed); idx != t.stepIndex {
		t.stepIndex = idx
		cues = append(cues, Cue{Kind: CueStep})
	}

	if t.remaining == 0 {
		t.state = StateCompleted
		cues = append(cues,
			Cue{Kind: CueComplete},
			Cue{Kind: CueComplete, DelayMs: completionEchoDelayMs},
		)
	}
	return cues, nil
}
