package models

import "time"

const (
	EventMembershipChanged = "membership-changed"
	EventReadyChanged      = "ready-changed"
	EventGameStarted       = "game-started"
	EventSessionUpdated    = "session-updated"
	EventSessionFinished   = "session-finished"
	EventChatMessage       = "chat-message"
	EventPlayerInactive    = "player-inactive"
	EventSquadClosed       = "squad-closed"
	EventAnswerResult      = "answer-result"
	EventHint              = "hint"
	EventSnapshot          = "snapshot"
	EventError             = "error"
)

// Event is what the realtime layer pushes to every connection in a room.
type Event struct {
	Type      string      `json:"type"`
	Room      string      `json:"room,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SessionUpdate struct {
	SessionID            string         `json:"session_id"`
	CurrentQuestionIndex int            `json:"current_question_index"`
	Scores               map[string]int `json:"scores"`
	TimeRemaining        int            `json:"time_remaining"`
	Status               SessionStatus  `json:"status"`
}

type GameStarted struct {
	SquadID   string `json:"squad_id"`
	SessionID string `json:"session_id"`
}

type PlayerInactive struct {
	PlayerID string `json:"player_id"`
}

func SquadRoom(id string) string {
	return "squad:" + id
}

func SessionRoom(id string) string {
	return "session:" + id
}

// SocketError is the payload of an error event sent back to one client.
// Request is the message type that failed; it is empty for undecodable frames.
type SocketError struct {
	Request string `json:"request"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
