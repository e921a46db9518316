package models

import (
	"testing"
	"time"
)

func TestSerializeConvertsSetsAndMaps(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	q := NewPollQuestion("q1", "Color?", []string{"Red", "Blue"}, nil, now, 30*time.Second)
	q.AnsweredBy["s1"] = struct{}{}
	q.StudentAnswers["s1"] = "Red"
	q.Results["Red"] = 1

	s := q.Serialize()
	if len(s.AnsweredBy) != 1 || s.AnsweredBy[0] != "s1" {
		t.Fatalf("answered set not serialized as list: %v", s.AnsweredBy)
	}
	if s.StudentAnswers["s1"] != "Red" {
		t.Fatalf("answer map not serialized: %v", s.StudentAnswers)
	}
	if s.CreatedAt != now.UnixMilli() || s.ExpiresAt != now.Add(30*time.Second).UnixMilli() {
		t.Fatalf("timestamps not unix millis: %d / %d", s.CreatedAt, s.ExpiresAt)
	}

	// The serialized form is a snapshot, not a view.
	s.Results["Red"] = 99
	if q.Results["Red"] != 1 {
		t.Fatalf("serialization aliased the internal tally")
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	q := NewPollQuestion("q1", "Color?", []string{"Red", "Blue"}, nil, now, time.Minute)
	q.AnsweredBy["s1"] = struct{}{}
	q.StudentAnswers["s1"] = "Blue"
	q.Results["Blue"] = 1

	c := q.Clone()
	q.AnsweredBy["s2"] = struct{}{}
	q.StudentAnswers["s2"] = "Red"
	q.Results["Red"] = 1

	if len(c.AnsweredBy) != 1 || len(c.StudentAnswers) != 1 || c.Results["Red"] != 0 {
		t.Fatalf("clone shares state with the original")
	}
}
