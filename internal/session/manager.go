// Package session owns the authoritative in-memory state of the single
// classroom poll session: the participant registry, the one active question
// with its answer ledger and countdown, and the history of closed questions.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// Events emitted by the manager through its Broadcaster.
const (
	EventQuestionUpdated     = "question_updated"
	EventResultsUpdated      = "results_updated"
	EventTimerTick           = "timer_tick"
	EventQuestionClosed      = "question_closed"
	EventParticipantsUpdated = "participants_updated"
)

// Broadcaster delivers an event to every connected client. Sends are
// fire-and-forget; session state never depends on delivery succeeding.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Manager serializes every mutation of session state behind one mutex so that
// check-then-act sequences (already-active, already-answered, close-once) are
// atomic with respect to each other and to timer callbacks.
type Manager struct {
	mu sync.Mutex

	broadcaster      Broadcaster
	logger           *zap.Logger
	now              func() time.Time
	tickInterval     time.Duration
	defaultTimeLimit time.Duration

	students map[string]*models.Student
	order    []string // student ids in join order, drives roster iteration

	active    *models.PollQuestion
	stopTimer chan struct{} // non-nil exactly while a countdown is running

	history []*models.PollQuestion // closed questions in closing order
}

// NewManager creates a session manager with a real clock and one-second ticks.
func NewManager(b Broadcaster, logger *zap.Logger, defaultTimeLimit time.Duration) *Manager {
	return NewManagerWithClock(b, logger, defaultTimeLimit, time.Now, time.Second)
}

// NewManagerWithClock allows deterministic timestamps and fast ticks in tests.
func NewManagerWithClock(b Broadcaster, logger *zap.Logger, defaultTimeLimit time.Duration, now func() time.Time, tickInterval time.Duration) *Manager {
	return &Manager{
		broadcaster:      b,
		logger:           logger,
		now:              now,
		tickInterval:     tickInterval,
		defaultTimeLimit: defaultTimeLimit,
		students:         make(map[string]*models.Student),
	}
}

// Join registers a student, or resurrects an existing record when the supplied
// id is still known (reconnection: no new record, joinedAt untouched). Returns
// the effective student id and whether this was a reconnection.
func (m *Manager) Join(name, existingID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID != "" {
		if s, ok := m.students[existingID]; ok {
			m.logger.Info("student reconnected", zap.String("student_id", s.ID), zap.String("name", s.Name))
			return s.ID, true
		}
	}

	id := uuid.New().String()
	m.students[id] = &models.Student{ID: id, Name: name, JoinedAt: m.now()}
	m.order = append(m.order, id)
	m.broadcaster.Broadcast(EventParticipantsUpdated, m.rosterLocked())
	m.logger.Info("student joined", zap.String("student_id", id), zap.String("name", name))
	return id, false
}

// Remove deletes a student record if present. Idempotent; the roster broadcast
// is sent either way. Recorded answers are never retracted.
func (m *Manager) Remove(studentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.students[studentID]
	if existed {
		delete(m.students, studentID)
		for i, id := range m.order {
			if id == studentID {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		m.logger.Info("student removed", zap.String("student_id", studentID))
	}
	m.broadcaster.Broadcast(EventParticipantsUpdated, m.rosterLocked())
	return existed
}

// Exists reports whether a student id is currently registered.
func (m *Manager) Exists(studentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.students[studentID]
	return ok
}

// StudentName returns the display name for a registered student.
func (m *Manager) StudentName(studentID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok {
		return "", false
	}
	return s.Name, true
}

// Roster returns the joined students in insertion order.
func (m *Manager) Roster() []models.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rosterLocked()
}

func (m *Manager) rosterLocked() []models.Participant {
	roster := make([]models.Participant, 0, len(m.order))
	for _, id := range m.order {
		if s, ok := m.students[id]; ok {
			roster = append(roster, models.Participant{ID: s.ID, Name: s.Name})
		}
	}
	return roster
}

// Open starts a new question. Fails with ErrQuestionActive while one is
// active, and with ErrInvalidOptions unless there are at least two distinct
// non-blank options and any designated correct answer is among them. A
// non-positive time limit falls back to the configured default.
func (m *Manager) Open(question string, options []string, correctAnswer *string, timeLimitSeconds int) (models.SerializedQuestion, error) {
	if err := validateOptions(options, correctAnswer); err != nil {
		return models.SerializedQuestion{}, err
	}

	timeLimit := time.Duration(timeLimitSeconds) * time.Second
	if timeLimitSeconds <= 0 {
		timeLimit = m.defaultTimeLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return models.SerializedQuestion{}, ErrQuestionActive
	}

	q := models.NewPollQuestion(uuid.New().String(), question, options, correctAnswer, m.now(), timeLimit)
	m.active = q
	m.stopTimer = make(chan struct{})
	go m.runCountdown(q.ID, m.stopTimer)

	serialized := q.Serialize()
	m.broadcaster.Broadcast(EventQuestionUpdated, serialized)
	m.logger.Info("question opened",
		zap.String("question_id", q.ID),
		zap.String("question", q.Question),
		zap.Duration("time_limit", timeLimit),
	)
	return serialized, nil
}

// Close ends the active question: freezes a copy into history, clears the
// active slot, stops the countdown and broadcasts the close. Both the timer
// and the teacher go through here; the second of two racing callers observes
// ErrNoActiveQuestion.
func (m *Manager) Close() (models.SerializedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *Manager) closeLocked() (models.SerializedQuestion, error) {
	if m.active == nil {
		return models.SerializedQuestion{}, ErrNoActiveQuestion
	}

	m.active.Status = models.PollClosed
	closed := m.active.Clone()
	m.history = append(m.history, closed)
	m.active = nil

	if m.stopTimer != nil {
		close(m.stopTimer)
		m.stopTimer = nil
	}

	m.broadcaster.Broadcast(EventQuestionClosed, nil)
	m.logger.Info("question closed",
		zap.String("question_id", closed.ID),
		zap.Int("answers", len(closed.AnsweredBy)),
	)
	return closed.Serialize(), nil
}

// Current returns the active question and its clamped remaining seconds, for
// replaying state to a newly attached connection.
func (m *Manager) Current() (models.SerializedQuestion, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return models.SerializedQuestion{}, 0, false
	}
	return m.active.Serialize(), remainingSeconds(m.active.ExpiresAt, m.now()), true
}

// Submit records a student's answer against the active question. Validation
// short-circuits in a fixed order: joined, active question, matching question
// id, not already answered, valid option. On success the tally, the answered
// set and the per-student answer are updated atomically and the new tally is
// broadcast. Submitting never closes the question.
func (m *Manager) Submit(studentID, questionID, option string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[studentID]; !ok {
		return nil, ErrNotJoined
	}
	if m.active == nil {
		return nil, ErrNoActiveQuestion
	}
	if m.active.ID != questionID {
		return nil, ErrStaleQuestion
	}
	if _, answered := m.active.AnsweredBy[studentID]; answered {
		return nil, ErrAlreadyAnswered
	}
	if _, valid := m.active.Results[option]; !valid {
		return nil, ErrInvalidOption
	}

	m.active.AnsweredBy[studentID] = struct{}{}
	m.active.StudentAnswers[studentID] = option
	m.active.Results[option]++

	tally := make(map[string]int, len(m.active.Results))
	for opt, n := range m.active.Results {
		tally[opt] = n
	}
	m.broadcaster.Broadcast(EventResultsUpdated, tally)
	m.logger.Debug("answer recorded",
		zap.String("student_id", studentID),
		zap.String("question_id", questionID),
		zap.String("option", option),
	)
	return tally, nil
}

// History returns every closed question in closing order, serialized.
func (m *Manager) History() []models.SerializedQuestion {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.SerializedQuestion, 0, len(m.history))
	for _, q := range m.history {
		out = append(out, q.Serialize())
	}
	return out
}

// PerformanceFor returns the closed questions the given student answered,
// each annotated with the option they chose.
func (m *Manager) PerformanceFor(studentID string) []models.PerformanceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.PerformanceEntry, 0)
	for _, q := range m.history {
		if _, answered := q.AnsweredBy[studentID]; !answered {
			continue
		}
		out = append(out, models.PerformanceEntry{
			SerializedQuestion: q.Serialize(),
			StudentAnswer:      q.StudentAnswers[studentID],
		})
	}
	return out
}

// runCountdown ticks the active question once per interval, starting
// immediately, and triggers the close path when time runs out. It exits when
// the question it was started for is no longer active.
func (m *Manager) runCountdown(questionID string, stop chan struct{}) {
	if m.tick(questionID) {
		return
	}
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if m.tick(questionID) {
				return
			}
		}
	}
}

// tick emits one timer_tick and closes the question when it expires. Runs
// under the manager mutex so a tick can never interleave with a manual close
// or outlive the question_closed broadcast.
func (m *Manager) tick(questionID string) (done bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.active.ID != questionID {
		return true
	}
	remaining := remainingSeconds(m.active.ExpiresAt, m.now())
	m.broadcaster.Broadcast(EventTimerTick, remaining)
	if remaining == 0 {
		_, _ = m.closeLocked()
		return true
	}
	return false
}

func remainingSeconds(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func validateOptions(options []string, correctAnswer *string) error {
	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return ErrInvalidOptions
		}
		if _, dup := seen[opt]; dup {
			return ErrInvalidOptions
		}
		seen[opt] = struct{}{}
	}
	if len(seen) < 2 {
		return ErrInvalidOptions
	}
	if correctAnswer != nil {
		if _, ok := seen[*correctAnswer]; !ok {
			return ErrInvalidOptions
		}
	}
	return nil
}
