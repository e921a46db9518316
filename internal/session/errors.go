package session

import "errors"

var (
	// ErrQuestionActive is returned when opening a question while one is active.
	ErrQuestionActive = errors.New("a question is already active")
	// ErrNoActiveQuestion is returned by close/submit when no question is active.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrInvalidOptions is returned when a question has fewer than two distinct
	// non-blank options, or a correct answer outside the option list.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrNotJoined is returned when an unknown student acts on the session.
	ErrNotJoined = errors.New("you must join first")
	// ErrStaleQuestion is returned when an answer targets a question that is no
	// longer the active one.
	ErrStaleQuestion = errors.New("question id mismatch")
	// ErrAlreadyAnswered is returned when a student answers the same question twice.
	ErrAlreadyAnswered = errors.New("you have already answered this question")
	// ErrInvalidOption is returned when the chosen option is not on the question.
	ErrInvalidOption = errors.New("invalid option")
	// ErrParticipantNotFound is returned when kicking an unknown student.
	ErrParticipantNotFound = errors.New("participant not found")
)
