package realtime

import "encoding/json"

// Connection roles. Declared at upgrade time; the teacher role gates the
// question lifecycle, roster management and history events.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Server-to-client events owned by the transport layer. Session and chat
// events are defined next to the components that emit them.
const (
	// EventKicked is sent to a single connection before it is force-closed.
	EventKicked = "kicked"
	// EventAck carries the response to a client request (ackId echo).
	EventAck = "ack"
)

// Client-to-server events.
const (
	eventJoin            = "join"
	eventCreateQuestion  = "create_question"
	eventSubmitAnswer    = "submit_answer"
	eventEndQuestion     = "end_question"
	eventGetParticipants = "get_participants"
	eventGetHistory      = "get_history"
	eventGetPerformance  = "get_performance"
	eventSendMessage     = "send_message"
	eventKickParticipant = "kick_participant"
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID string          `json:"ackId,omitempty"`
}

// ackPayload is the body of an EventAck reply. AckID echoes the request so the
// client can match responses, standing in for socket.io-style callbacks.
type ackPayload struct {
	AckID   string      `json:"ackId,omitempty"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type joinRequest struct {
	Name      string `json:"name"`
	StudentID string `json:"studentId,omitempty"`
}

type joinResponse struct {
	StudentID string `json:"studentId"`
}

type createQuestionRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *string  `json:"correctAnswer,omitempty"`
	TimeLimit     int      `json:"timeLimit,omitempty"` // seconds; server default when omitted
}

type submitAnswerRequest struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type kickRequest struct {
	ParticipantID string `json:"participantId"`
}

type kickedNotice struct {
	Reason string `json:"reason"`
}
