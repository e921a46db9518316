package models

// ChatMessage is a single chat message fanned out to every connection.
// Immutable once created; the server keeps no chat history.
type ChatMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	SenderID  string `json:"senderId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	IsTeacher bool   `json:"isTeacher"`
}
