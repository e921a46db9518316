package models

import "time"

// PollStatus is the lifecycle state of a poll question.
type PollStatus string

const (
	PollActive PollStatus = "active"
	PollClosed PollStatus = "closed"
)

// PollQuestion is a single poll with its answer bookkeeping. Internal
// representation uses real set/map types; SerializedQuestion is the wire form.
//
// Invariants maintained by the session manager: AnsweredBy and StudentAnswers
// always have identical key sets, the tally values sum to len(AnsweredBy),
// every recorded answer is one of Options, and status only moves active->closed.
type PollQuestion struct {
	ID             string
	Question       string
	Options        []string
	CorrectAnswer  *string // nil when the teacher did not designate one
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Status         PollStatus
	Results        map[string]int      // option -> count, every option present
	AnsweredBy     map[string]struct{} // student ids
	StudentAnswers map[string]string   // student id -> chosen option
}

// NewPollQuestion builds an active question with a zeroed tally for every option.
func NewPollQuestion(id, question string, options []string, correctAnswer *string, now time.Time, timeLimit time.Duration) *PollQuestion {
	results := make(map[string]int, len(options))
	for _, opt := range options {
		results[opt] = 0
	}
	return &PollQuestion{
		ID:             id,
		Question:       question,
		Options:        options,
		CorrectAnswer:  correctAnswer,
		CreatedAt:      now,
		ExpiresAt:      now.Add(timeLimit),
		Status:         PollActive,
		Results:        results,
		AnsweredBy:     make(map[string]struct{}),
		StudentAnswers: make(map[string]string),
	}
}

// Clone returns a deep copy, used to freeze a question into history so later
// mutation of the active slot can never reach archived entries.
func (q *PollQuestion) Clone() *PollQuestion {
	c := &PollQuestion{
		ID:             q.ID,
		Question:       q.Question,
		Options:        append([]string(nil), q.Options...),
		CorrectAnswer:  q.CorrectAnswer,
		CreatedAt:      q.CreatedAt,
		ExpiresAt:      q.ExpiresAt,
		Status:         q.Status,
		Results:        make(map[string]int, len(q.Results)),
		AnsweredBy:     make(map[string]struct{}, len(q.AnsweredBy)),
		StudentAnswers: make(map[string]string, len(q.StudentAnswers)),
	}
	for opt, n := range q.Results {
		c.Results[opt] = n
	}
	for id := range q.AnsweredBy {
		c.AnsweredBy[id] = struct{}{}
	}
	for id, opt := range q.StudentAnswers {
		c.StudentAnswers[id] = opt
	}
	return c
}

// SerializedQuestion is the wire form of PollQuestion: the answered-by set
// becomes a list and the answer map a plain object, since the transport has no
// native set/map types. Timestamps are unix milliseconds.
type SerializedQuestion struct {
	ID             string            `json:"id"`
	Question       string            `json:"question"`
	Options        []string          `json:"options"`
	CorrectAnswer  *string           `json:"correctAnswer,omitempty"`
	CreatedAt      int64             `json:"createdAt"`
	ExpiresAt      int64             `json:"expiresAt"`
	Status         PollStatus        `json:"status"`
	Results        map[string]int    `json:"results"`
	AnsweredBy     []string          `json:"answeredBy"`
	StudentAnswers map[string]string `json:"studentAnswers"`
}

// Serialize converts a question to its wire form.
func (q *PollQuestion) Serialize() SerializedQuestion {
	answeredBy := make([]string, 0, len(q.AnsweredBy))
	for id := range q.AnsweredBy {
		answeredBy = append(answeredBy, id)
	}
	results := make(map[string]int, len(q.Results))
	for opt, n := range q.Results {
		results[opt] = n
	}
	answers := make(map[string]string, len(q.StudentAnswers))
	for id, opt := range q.StudentAnswers {
		answers[id] = opt
	}
	return SerializedQuestion{
		ID:             q.ID,
		Question:       q.Question,
		Options:        append([]string(nil), q.Options...),
		CorrectAnswer:  q.CorrectAnswer,
		CreatedAt:      q.CreatedAt.UnixMilli(),
		ExpiresAt:      q.ExpiresAt.UnixMilli(),
		Status:         q.Status,
		Results:        results,
		AnsweredBy:     answeredBy,
		StudentAnswers: answers,
	}
}

// PerformanceEntry is a closed question annotated with what one student chose.
type PerformanceEntry struct {
	SerializedQuestion
	StudentAnswer string `json:"studentAnswer"`
}
