package models

import "time"

// Student is a joined participant. Owned by the session registry: created on
// join, resurrected on reconnect, destroyed on disconnect or kick.
type Student struct {
	ID       string
	Name     string
	JoinedAt time.Time
}

// Participant is the roster view of a student sent to clients.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
