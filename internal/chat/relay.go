// Package chat relays timestamped messages from the teacher and students to
// every connection. Messages are not stored; the broadcast is the only copy.
package chat

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// EventChatMessage is the broadcast event carrying a chat message.
const EventChatMessage = "chat_message"

// TeacherSenderID tags messages from the singleton teacher role.
const TeacherSenderID = "teacher"

// TeacherSenderName is the display name used for teacher messages.
const TeacherSenderName = "Teacher"

// Broadcaster fans an event out to every connection, sender included; clients
// recognize their own messages by id, not by a suppressed echo.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Roster resolves a sender id to a joined student's display name.
type Roster interface {
	StudentName(studentID string) (string, bool)
}

// Relay builds and broadcasts chat messages. Stateless apart from its
// collaborators.
type Relay struct {
	broadcaster Broadcaster
	roster      Roster
	logger      *zap.Logger
	now         func() time.Time
}

// NewRelay creates a chat relay.
func NewRelay(b Broadcaster, roster Roster, logger *zap.Logger) *Relay {
	return &Relay{broadcaster: b, roster: roster, logger: logger, now: time.Now}
}

// NewRelayWithClock is for deterministic timestamps in tests.
func NewRelayWithClock(b Broadcaster, roster Roster, logger *zap.Logger, now func() time.Time) *Relay {
	return &Relay{broadcaster: b, roster: roster, logger: logger, now: now}
}

// SendFromStudent broadcasts a message from a joined student. Returns false
// when the sender id is not in the roster.
func (r *Relay) SendFromStudent(studentID, body string) (models.ChatMessage, bool) {
	name, ok := r.roster.StudentName(studentID)
	if !ok {
		return models.ChatMessage{}, false
	}
	msg := r.send(name, studentID, body, false)
	return msg, true
}

// SendFromTeacher broadcasts a message from the teacher role.
func (r *Relay) SendFromTeacher(body string) models.ChatMessage {
	return r.send(TeacherSenderName, TeacherSenderID, body, true)
}

func (r *Relay) send(sender, senderID, body string, isTeacher bool) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        uuid.New().String(),
		Sender:    sender,
		SenderID:  senderID,
		Message:   body,
		Timestamp: r.now().UnixMilli(),
		IsTeacher: isTeacher,
	}
	r.broadcaster.Broadcast(EventChatMessage, msg)
	r.logger.Debug("chat message", zap.String("sender_id", senderID), zap.Bool("is_teacher", isTeacher))
	return msg
}
