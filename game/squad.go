package game

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/google/uuid"
)

const (
	DefaultMaxMembers = 6
	DefaultChatLimit  = 50
	MaxChatLength     = 500
)

type SquadConfig struct {
	ID         string
	GameID     string
	Name       string
	LeaderID   string
	LeaderName string
	GameType   models.GameType
	MaxMembers int
	Settings   models.SessionSettings
	ChatLimit  int
	Now        func() time.Time
}

// Launcher starts the game session for a squad. It runs while the squad is
// locked, so membership cannot change between the readiness check and the
// session being created.
type Launcher func(req LaunchRequest) (sessionID string, err error)

type LaunchRequest struct {
	SquadID  string
	GameID   string
	GameType models.GameType
	Players  []string
	Settings models.SessionSettings
}

// Squad is a pre-game lobby. Members are kept in join order; the first member
// is the oldest and inherits leadership when the leader leaves.
type Squad struct {
	mu sync.Mutex

	id         string
	gameID     string
	name       string
	gameType   models.GameType
	maxMembers int
	settings   models.SessionSettings
	chatLimit  int
	createdAt  time.Time
	now        func() time.Time

	leaderID  string
	members   []models.SquadMember
	chat      []models.ChatMessage
	sessionID string
	closed    bool
}

func NewSquad(cfg SquadConfig) (*Squad, error) {
	name := strings.TrimSpace(cfg.Name)
	switch {
	case cfg.ID == "":
		return nil, &models.ValidationError{Field: "id", Message: "is required"}
	case cfg.LeaderID == "":
		return nil, &models.ValidationError{Field: "leader_id", Message: "is required"}
	case name == "":
		return nil, &models.ValidationError{Field: "name", Message: "is required"}
	case !cfg.GameType.Valid():
		return nil, &models.ValidationError{Field: "game_type", Message: fmt.Sprintf("unknown game type %q", cfg.GameType)}
	case !cfg.Settings.Difficulty.Valid():
		return nil, &models.ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", cfg.Settings.Difficulty)}
	case cfg.Settings.TimeLimitSeconds <= 0:
		return nil, &models.ValidationError{Field: "time_limit_seconds", Message: "must be positive"}
	}

	maxMembers := cfg.MaxMembers
	if maxMembers == 0 {
		maxMembers = DefaultMaxMembers
	}
	if maxMembers < models.MinSquadSize || maxMembers > models.MaxSquadSize {
		return nil, &models.ValidationError{
			Field:   "max_members",
			Message: fmt.Sprintf("must be between %d and %d", models.MinSquadSize, models.MaxSquadSize),
		}
	}
	chatLimit := cfg.ChatLimit
	if chatLimit <= 0 {
		chatLimit = DefaultChatLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	created := now()
	return &Squad{
		id:         cfg.ID,
		gameID:     cfg.GameID,
		name:       name,
		gameType:   cfg.GameType,
		maxMembers: maxMembers,
		settings:   cfg.Settings,
		chatLimit:  chatLimit,
		createdAt:  created,
		now:        now,
		leaderID:   cfg.LeaderID,
		members: []models.SquadMember{{
			PlayerID: cfg.LeaderID,
			Name:     cfg.LeaderName,
			IsLeader: true,
			JoinedAt: created,
		}},
	}, nil
}

func (sq *Squad) ID() string {
	return sq.id
}

func (sq *Squad) Join(playerID, name string) (models.SquadView, error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if err := sq.checkOpen(); err != nil {
		return models.SquadView{}, err
	}
	if sq.indexOf(playerID) >= 0 {
		return models.SquadView{}, &models.AlreadyMemberError{SquadID: sq.id, PlayerID: playerID}
	}
	if len(sq.members) >= sq.maxMembers {
		return models.SquadView{}, &models.SquadFullError{SquadID: sq.id, MaxMembers: sq.maxMembers}
	}
	sq.members = append(sq.members, models.SquadMember{
		PlayerID: playerID,
		Name:     name,
		JoinedAt: sq.now(),
	})
	sq.assertInvariants()
	return sq.view(), nil
}

// Leave removes playerID. When the leader leaves, the oldest remaining member
// takes over. The returned empty flag means the squad is now closed.
func (sq *Squad) Leave(playerID string) (view models.SquadView, empty bool, err error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if sq.closed {
		return models.SquadView{}, false, &models.NotFoundError{Kind: "squad", ID: sq.id}
	}
	i := sq.indexOf(playerID)
	if i < 0 {
		return models.SquadView{}, false, &models.NotFoundError{Kind: "member", ID: playerID}
	}
	sq.members = append(sq.members[:i], sq.members[i+1:]...)

	if len(sq.members) == 0 {
		sq.closed = true
		sq.leaderID = ""
		return sq.view(), true, nil
	}
	if playerID == sq.leaderID {
		sq.members[0].IsLeader = true
		sq.leaderID = sq.members[0].PlayerID
	}
	sq.assertInvariants()
	return sq.view(), false, nil
}

func (sq *Squad) SetReady(playerID string, ready bool) (models.SquadView, error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if err := sq.checkOpen(); err != nil {
		return models.SquadView{}, err
	}
	i := sq.indexOf(playerID)
	if i < 0 {
		return models.SquadView{}, &models.AuthorizationError{Reason: fmt.Sprintf("player %q is not in squad %q", playerID, sq.id)}
	}
	sq.members[i].IsReady = ready
	return sq.view(), nil
}

// Start checks the leader and readiness gates and, holding the squad lock,
// runs launch to create the session.
func (sq *Squad) Start(requesterID string, launch Launcher) (models.SquadView, error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if err := sq.checkOpen(); err != nil {
		return models.SquadView{}, err
	}
	if requesterID != sq.leaderID {
		return models.SquadView{}, &models.AuthorizationError{Reason: "only the squad leader can start the game"}
	}
	if sq.gameType.Multiplayer() && len(sq.members) < models.MinSquadSize {
		return models.SquadView{}, &models.NotReadyError{
			SquadID: sq.id,
			Reason:  fmt.Sprintf("%s needs at least %d members", sq.gameType, models.MinSquadSize),
		}
	}
	for _, m := range sq.members {
		if !m.IsReady {
			return models.SquadView{}, &models.NotReadyError{SquadID: sq.id, Reason: fmt.Sprintf("player %q is not ready", m.PlayerID)}
		}
	}

	sessionID, err := launch(LaunchRequest{
		SquadID:  sq.id,
		GameID:   sq.gameID,
		GameType: sq.gameType,
		Players:  sq.memberIDs(),
		Settings: sq.settings,
	})
	if err != nil {
		return models.SquadView{}, err
	}
	sq.sessionID = sessionID
	return sq.view(), nil
}

func (sq *Squad) PostChat(senderID, text string) (models.ChatMessage, error) {
	sq.mu.Lock()
	defer sq.mu.Unlock()

	if sq.closed {
		return models.ChatMessage{}, &models.NotFoundError{Kind: "squad", ID: sq.id}
	}
	i := sq.indexOf(senderID)
	if i < 0 {
		return models.ChatMessage{}, &models.AuthorizationError{Reason: fmt.Sprintf("player %q is not in squad %q", senderID, sq.id)}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, &models.ValidationError{Field: "text", Message: "is required"}
	}
	if utf8.RuneCountInString(text) > MaxChatLength {
		return models.ChatMessage{}, &models.ValidationError{Field: "text", Message: fmt.Sprintf("must be at most %d characters", MaxChatLength)}
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		SquadID:    sq.id,
		SenderID:   senderID,
		SenderName: sq.members[i].Name,
		Text:       text,
		Timestamp:  sq.now(),
	}
	// timestamps stay ordered even if the clock steps back
	if n := len(sq.chat); n > 0 && msg.Timestamp.Before(sq.chat[n-1].Timestamp) {
		msg.Timestamp = sq.chat[n-1].Timestamp
	}
	sq.chat = append(sq.chat, msg)
	if len(sq.chat) > sq.chatLimit {
		sq.chat = append([]models.ChatMessage(nil), sq.chat[len(sq.chat)-sq.chatLimit:]...)
	}
	return msg, nil
}

func (sq *Squad) Chat() []models.ChatMessage {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return append([]models.ChatMessage{}, sq.chat...)
}

// Close marks the squad destroyed; later operations report it as not found.
func (sq *Squad) Close() {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	sq.closed = true
}

func (sq *Squad) Closed() bool {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.closed
}

func (sq *Squad) HasMember(playerID string) bool {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.indexOf(playerID) >= 0
}

func (sq *Squad) LeaderID() string {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.leaderID
}

func (sq *Squad) View() models.SquadView {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.view()
}

func (sq *Squad) view() models.SquadView {
	return models.SquadView{
		ID:         sq.id,
		GameID:     sq.gameID,
		Name:       sq.name,
		LeaderID:   sq.leaderID,
		GameType:   sq.gameType,
		MaxMembers: sq.maxMembers,
		Members:    append([]models.SquadMember(nil), sq.members...),
		Settings:   sq.settings,
		Status:     sq.status(),
		SessionID:  sq.sessionID,
		CreatedAt:  sq.createdAt,
	}
}

func (sq *Squad) status() models.SquadStatus {
	if sq.sessionID != "" {
		return models.SquadStatusPlaying
	}
	if len(sq.members) == 0 {
		return models.SquadStatusWaiting
	}
	if sq.gameType.Multiplayer() && len(sq.members) < models.MinSquadSize {
		return models.SquadStatusWaiting
	}
	for _, m := range sq.members {
		if !m.IsReady {
			return models.SquadStatusWaiting
		}
	}
	return models.SquadStatusReady
}

func (sq *Squad) checkOpen() error {
	if sq.closed {
		return &models.NotFoundError{Kind: "squad", ID: sq.id}
	}
	if sq.sessionID != "" {
		return &models.GameInProgressError{SquadID: sq.id, SessionID: sq.sessionID}
	}
	return nil
}

func (sq *Squad) indexOf(playerID string) int {
	for i, m := range sq.members {
		if m.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (sq *Squad) memberIDs() []string {
	ids := make([]string, len(sq.members))
	for i, m := range sq.members {
		ids[i] = m.PlayerID
	}
	return ids
}

func (sq *Squad) assertInvariants() {
	if len(sq.members) > sq.maxMembers {
		panic(fmt.Sprintf("squad %s: %d members exceeds max %d", sq.id, len(sq.members), sq.maxMembers))
	}
	leaders := 0
	for _, m := range sq.members {
		if m.IsLeader {
			leaders++
			if m.PlayerID != sq.leaderID {
				panic(fmt.Sprintf("squad %s: member %s flagged leader but leader is %s", sq.id, m.PlayerID, sq.leaderID))
			}
		}
	}
	if len(sq.members) > 0 && leaders != 1 {
		panic(fmt.Sprintf("squad %s: %d leaders", sq.id, leaders))
	}
}
