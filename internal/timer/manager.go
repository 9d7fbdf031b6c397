package timer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrSessionNotFound is returned when a timer session id is unknown.
var ErrSessionNotFound = errors.New("timer session not found")

// Snapshot is a read-only view of a timer session, safe to serialize.
type Snapshot struct {
	ID          string `json:"id"`
	ExerciseID  string `json:"exercise_id"`
	State       string `json:"state"`
	Remaining   int    `json:"remaining_seconds"`
	Progress    int    `json:"progress"`
	StepIndex   int    `json:"step_index"`
	BreathPhase string `json:"breath_phase,omitempty"`
	Breaths     int    `json:"breaths,omitempty"`
}

// CompletionFunc is invoked once when a session's countdown reaches zero.
// It runs outside the manager lock.
type CompletionFunc func(userID, exerciseID string)

// session couples one Timer (and optional BreathCycle) with its tickers.
// Tickers exist only while the session is running; every state exit stops
// them so no callback outlives its session.
type session struct {
	id         string
	userID     string
	exerciseID string

	mu      sync.Mutex
	machine *Timer
	breath  *BreathCycle
	stop    chan struct{}
}

// defaultCompletedRetention is how long a completed session's snapshot
// stays readable before eviction, long enough for a final status poll.
const defaultCompletedRetention = time.Minute

// Manager owns the live timer sessions for the process. Sessions are
// in-memory: a restart forgets running timers, which matches the product's
// "timer is per visit" behavior.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	tickInterval       time.Duration // countdown resolution, 1s in production
	breathInterval     time.Duration // breathing resolution, 100ms in production
	completedRetention time.Duration
	onComplete         CompletionFunc
}

// NewManager constructs a Manager with production tick intervals.
func NewManager(onComplete CompletionFunc) *Manager {
	return &Manager{
		sessions:           make(map[string]*session),
		tickInterval:       time.Second,
		breathInterval:     100 * time.Millisecond,
		completedRetention: defaultCompletedRetention,
		onComplete:         onComplete,
	}
}

// SetIntervals overrides tick resolutions; used by tests to avoid real-time
// waits. Must be called before Start.
func (m *Manager) SetIntervals(tick, breath time.Duration) {
	m.tickInterval = tick
	m.breathInterval = breath
}

// Start creates a session for exerciseID with the given per-step timings
// and begins ticking. breathing enables the independent phase cycle.
func (m *Manager) Start(userID, exerciseID string, stepSeconds []int, breathing bool) (Snapshot, error) {
	machine, err := New(stepSeconds)
	if err != nil {
		return Snapshot{}, err
	}
	if err := machine.Start(); err != nil {
		return Snapshot{}, err
	}

	s := &session{
		id:         uuid.NewString(),
		userID:     userID,
		exerciseID: exerciseID,
		machine:    machine,
		stop:       make(chan struct{}),
	}
	if breathing {
		s.breath = NewBreathCycle()
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	go m.run(s)
	return m.snapshot(s), nil
}

// run drives a session's tickers until stopped or completed.
func (m *Manager) run(s *session) {
	tick := time.NewTicker(m.tickInterval)
	defer tick.Stop()

	var breathC <-chan time.Time
	if s.breath != nil {
		breath := time.NewTicker(m.breathInterval)
		defer breath.Stop()
		breathC = breath.C
	}

	for {
		select {
		case <-s.stop:
			return
		case <-tick.C:
			if done := m.tickOnce(s); done {
				return
			}
		case <-breathC:
			s.mu.Lock()
			if s.machine.State() == StateRunning {
				s.breath.Tick()
			}
			s.mu.Unlock()
		}
	}
}

// tickOnce advances the countdown one second and reports completion.
func (m *Manager) tickOnce(s *session) (done bool) {
	s.mu.Lock()
	if s.machine.State() != StateRunning {
		s.mu.Unlock()
		return false
	}
	_, err := s.machine.Tick()
	completed := s.machine.State() == StateCompleted
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("timer tick failed")
		return false
	}
	if completed {
		// Keep the completed snapshot readable for a grace period, then
		// evict so finished sessions do not accumulate.
		time.AfterFunc(m.completedRetention, func() { m.evict(s.id) })
		if m.onComplete != nil {
			m.onComplete(s.userID, s.exerciseID)
		}
		return true
	}
	return false
}

func (m *Manager) evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Pause suspends a running session. The tickers keep firing but ignore
// paused sessions; the countdown does not advance.
func (m *Manager) Pause(id, userID string) (Snapshot, error) {
	s, err := m.get(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	err = s.machine.Pause()
	s.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(s), nil
}

// Resume continues a paused session.
func (m *Manager) Resume(id, userID string) (Snapshot, error) {
	s, err := m.get(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	err = s.machine.Resume()
	s.mu.Unlock()
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(s), nil
}

// Reset tears the session down entirely: tickers stopped, state discarded.
func (m *Manager) Reset(id, userID string) error {
	s, err := m.get(id, userID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	close(s.stop)

	s.mu.Lock()
	s.machine.Reset()
	if s.breath != nil {
		s.breath.Reset()
	}
	s.mu.Unlock()
	return nil
}

// Status returns the session snapshot.
func (m *Manager) Status(id, userID string) (Snapshot, error) {
	s, err := m.get(id, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(s), nil
}

// Shutdown stops every live session. Called on server exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		close(s.stop)
		delete(m.sessions, id)
	}
}

func (m *Manager) get(id, userID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) snapshot(s *session) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		ExerciseID: s.exerciseID,
		State:      s.machine.State().String(),
		Remaining:  s.machine.Remaining(),
		Progress:   s.machine.Progress(),
		StepIndex:  s.machine.StepIndex(),
	}
	if s.breath != nil {
		snap.BreathPhase = s.breath.Phase().String()
		snap.Breaths = s.breath.Breaths()
	}
	return snap
}
