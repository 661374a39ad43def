package models

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// StaleQuestionError means the client answered a question the session has
// already moved past. Clients resync instead of surfacing it.
type StaleQuestionError struct {
	Expected string
	Got      string
}

func (e *StaleQuestionError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("question %q is stale: no question is pending", e.Got)
	}
	return fmt.Sprintf("question %q is stale: current question is %q", e.Got, e.Expected)
}

type SquadFullError struct {
	SquadID    string
	MaxMembers int
}

func (e *SquadFullError) Error() string {
	return fmt.Sprintf("squad %q is full (%d members)", e.SquadID, e.MaxMembers)
}

type AlreadyMemberError struct {
	SquadID  string
	PlayerID string
}

func (e *AlreadyMemberError) Error() string {
	return fmt.Sprintf("player %q is already a member of squad %q", e.PlayerID, e.SquadID)
}

type EmptyPoolError struct {
	GameType   GameType
	Difficulty Difficulty
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("no questions available for game type %q at difficulty %q", e.GameType, e.Difficulty)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

type SessionFinishedError struct {
	SessionID string
}

func (e *SessionFinishedError) Error() string {
	return fmt.Sprintf("session %q is finished", e.SessionID)
}

// NotReadyError is returned when a squad cannot start yet.
type NotReadyError struct {
	SquadID string
	Reason  string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("squad %q cannot start: %s", e.SquadID, e.Reason)
}

// GameInProgressError is returned for lobby changes after a squad has started.
type GameInProgressError struct {
	SquadID   string
	SessionID string
}

func (e *GameInProgressError) Error() string {
	return fmt.Sprintf("squad %q already started session %q", e.SquadID, e.SessionID)
}
