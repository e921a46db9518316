package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/session"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60

	writeWait    = 10 * time.Second
	maxFrameSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client represents a single WebSocket connection to the classroom session.
type Client struct {
	id          string
	role        string
	hub         *Hub
	manager     *session.Manager
	relay       *chat.Relay
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
	replayDelay time.Duration

	mu        sync.Mutex
	studentID string // set once the connection joins as a student
}

// ServeWS handles the WebSocket upgrade and runs the client loop. The role is
// declared in the query string; there is no authentication beyond the
// server-issued student identity.
func ServeWS(hub *Hub, manager *session.Manager, relay *chat.Relay, logger *zap.Logger, replayDelay time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.Query("role")
		if role != RoleTeacher {
			role = RoleStudent
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:          uuid.New().String(),
			role:        role,
			hub:         hub,
			manager:     manager,
			relay:       relay,
			conn:        conn,
			send:        make(chan WSMessage, 256),
			logger:      logger,
			replayDelay: replayDelay,
		}
		hub.register(client)
		go client.writePump()
		client.scheduleReplay()
		client.readPump()
	}
}

func (c *Client) boundStudentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.studentID
}

func (c *Client) bindStudent(id string) {
	c.mu.Lock()
	c.studentID = id
	c.mu.Unlock()
}

// scheduleReplay sends the active question and remaining time to this
// connection after a short delay, so the client's handlers are registered
// before the catch-up state arrives.
func (c *Client) scheduleReplay() {
	deliver := func() {
		q, remaining, ok := c.manager.Current()
		if !ok {
			return
		}
		c.hub.SendTo(c.id, session.EventQuestionUpdated, q)
		c.hub.SendTo(c.id, session.EventTimerTick, remaining)
	}
	if c.replayDelay <= 0 {
		deliver()
		return
	}
	time.AfterFunc(c.replayDelay, deliver)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
		if id := c.boundStudentID(); id != "" {
			// Disconnect evicts the student record; a later join with the old
			// id starts over as a fresh student.
			c.manager.Remove(id)
		}
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.dispatch(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(msg WSMessage) {
	switch msg.Event {
	case eventJoin:
		c.handleJoin(msg)
	case eventCreateQuestion:
		c.handleCreateQuestion(msg)
	case eventSubmitAnswer:
		c.handleSubmitAnswer(msg)
	case eventEndQuestion:
		c.handleEndQuestion(msg)
	case eventGetParticipants:
		c.ackData(msg, c.manager.Roster())
	case eventGetHistory:
		if !c.requireTeacher(msg) {
			return
		}
		c.ackData(msg, c.manager.History())
	case eventGetPerformance:
		c.handleGetPerformance(msg)
	case eventSendMessage:
		c.handleSendMessage(msg)
	case eventKickParticipant:
		c.handleKick(msg)
	default:
		c.ackError(msg, "unsupported event")
	}
}

func (c *Client) handleJoin(msg WSMessage) {
	var req joinRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Name == "" {
		c.ackError(msg, "invalid join payload")
		return
	}

	studentID, _ := c.manager.Join(req.Name, req.StudentID)
	c.bindStudent(studentID)
	c.ackData(msg, joinResponse{StudentID: studentID})

	// Replay current question immediately; the joiner's handlers are live.
	if q, remaining, ok := c.manager.Current(); ok {
		c.hub.SendTo(c.id, session.EventQuestionUpdated, q)
		c.hub.SendTo(c.id, session.EventTimerTick, remaining)
	}
}

func (c *Client) handleCreateQuestion(msg WSMessage) {
	if !c.requireTeacher(msg) {
		return
	}
	var req createQuestionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Question == "" {
		c.ackError(msg, "invalid question payload")
		return
	}

	q, err := c.manager.Open(req.Question, req.Options, req.CorrectAnswer, req.TimeLimit)
	if err != nil {
		c.ackError(msg, userMessage(err))
		return
	}
	c.ackData(msg, q)
}

func (c *Client) handleSubmitAnswer(msg WSMessage) {
	var req submitAnswerRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.ackError(msg, "invalid answer payload")
		return
	}

	studentID := c.boundStudentID()
	if studentID == "" {
		c.ackError(msg, userMessage(session.ErrNotJoined))
		return
	}
	if _, err := c.manager.Submit(studentID, req.QuestionID, req.Option); err != nil {
		c.ackError(msg, userMessage(err))
		return
	}
	c.ackOK(msg)
}

func (c *Client) handleEndQuestion(msg WSMessage) {
	if !c.requireTeacher(msg) {
		return
	}
	if _, err := c.manager.Close(); err != nil {
		c.ackError(msg, userMessage(err))
		return
	}
	c.ackOK(msg)
}

func (c *Client) handleGetPerformance(msg WSMessage) {
	studentID := c.boundStudentID()
	if studentID == "" {
		c.ackError(msg, userMessage(session.ErrNotJoined))
		return
	}
	c.ackData(msg, c.manager.PerformanceFor(studentID))
}

func (c *Client) handleSendMessage(msg WSMessage) {
	var req sendMessageRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Message == "" {
		c.ackError(msg, "invalid message payload")
		return
	}

	if c.role == RoleTeacher {
		c.relay.SendFromTeacher(req.Message)
		c.ackOK(msg)
		return
	}

	studentID := c.boundStudentID()
	if studentID == "" {
		c.ackError(msg, userMessage(session.ErrNotJoined))
		return
	}
	if _, ok := c.relay.SendFromStudent(studentID, req.Message); !ok {
		c.ackError(msg, userMessage(session.ErrNotJoined))
		return
	}
	c.ackOK(msg)
}

func (c *Client) handleKick(msg WSMessage) {
	if !c.requireTeacher(msg) {
		return
	}
	var req kickRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ParticipantID == "" {
		c.ackError(msg, "invalid kick payload")
		return
	}

	if !c.manager.Exists(req.ParticipantID) {
		c.ackError(msg, userMessage(session.ErrParticipantNotFound))
		return
	}

	// Notify and close the student's connection first, then drop the record;
	// Remove broadcasts the updated roster to everyone else.
	c.hub.Kick(req.ParticipantID, "You have been removed by the teacher")
	c.manager.Remove(req.ParticipantID)
	c.ackOK(msg)
}

func (c *Client) requireTeacher(msg WSMessage) bool {
	if c.role != RoleTeacher {
		c.ackError(msg, "teacher role required")
		return false
	}
	return true
}

func (c *Client) ackOK(req WSMessage) {
	c.ack(ackPayload{AckID: req.AckID, Success: true})
}

func (c *Client) ackData(req WSMessage, data interface{}) {
	c.ack(ackPayload{AckID: req.AckID, Success: true, Data: data})
}

func (c *Client) ackError(req WSMessage, errMsg string) {
	c.ack(ackPayload{AckID: req.AckID, Success: false, Error: errMsg})
}

func (c *Client) ack(payload ackPayload) {
	c.hub.SendTo(c.id, EventAck, payload)
}

// userMessage maps session errors to the strings clients display. Unknown
// errors collapse to a generic failure; they never take the session down.
func userMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrQuestionActive):
		return "A question is already active. Please end it first."
	case errors.Is(err, session.ErrNoActiveQuestion):
		return "No active question"
	case errors.Is(err, session.ErrInvalidOptions):
		return "Provide at least two distinct options"
	case errors.Is(err, session.ErrNotJoined):
		return "You must join first"
	case errors.Is(err, session.ErrStaleQuestion):
		return "Question ID mismatch"
	case errors.Is(err, session.ErrAlreadyAnswered):
		return "You have already answered this question"
	case errors.Is(err, session.ErrInvalidOption):
		return "Invalid option"
	case errors.Is(err, session.ErrParticipantNotFound):
		return "Participant not found"
	default:
		return "Request failed"
	}
}
