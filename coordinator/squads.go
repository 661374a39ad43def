package coordinator

import (
	"context"
	"log"
	"sort"

	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
)

type CreateSquadRequest struct {
	Name       string                 `json:"name"`
	GameID     string                 `json:"game_id"`
	GameType   models.GameType        `json:"game_type"`
	MaxMembers int                    `json:"max_members"`
	Settings   models.SessionSettings `json:"settings"`
}

func (c *Coordinator) CreateSquad(ctx context.Context, leaderID, leaderName string, req CreateSquadRequest) (models.SquadView, error) {
	settings, err := c.normalizeSettings(req.GameType, req.Settings)
	if err != nil {
		return models.SquadView{}, err
	}
	sq, err := game.NewSquad(game.SquadConfig{
		ID:         c.opts.NewID(),
		GameID:     req.GameID,
		Name:       req.Name,
		LeaderID:   leaderID,
		LeaderName: leaderName,
		GameType:   req.GameType,
		MaxMembers: req.MaxMembers,
		Settings:   settings,
		ChatLimit:  c.opts.ChatLimit,
		Now:        c.opts.Now,
	})
	if err != nil {
		return models.SquadView{}, err
	}
	c.reg.AddSquad(sq)
	log.Printf("coordinator: squad %s created by %s for %s", sq.ID(), leaderID, req.GameType)
	return sq.View(), nil
}

func (c *Coordinator) GetSquad(ctx context.Context, squadID string) (models.SquadView, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.SquadView{}, err
	}
	return sq.View(), nil
}

// ListSquads returns lobbies that have not started yet, oldest first.
func (c *Coordinator) ListSquads(ctx context.Context) []models.SquadView {
	views := []models.SquadView{}
	for _, sq := range c.reg.Squads() {
		v := sq.View()
		if v.Status == models.SquadStatusPlaying || len(v.Members) == 0 {
			continue
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

func (c *Coordinator) JoinSquad(ctx context.Context, squadID, playerID, playerName string) (models.SquadView, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.SquadView{}, err
	}
	view, err := sq.Join(playerID, playerName)
	if err != nil {
		return models.SquadView{}, err
	}
	c.broadcaster.Publish(models.SquadRoom(squadID), models.EventMembershipChanged, view)
	return view, nil
}

// LeaveSquad removes playerID; an emptied squad is destroyed.
func (c *Coordinator) LeaveSquad(ctx context.Context, squadID, playerID string) (models.SquadView, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.SquadView{}, err
	}
	view, empty, err := sq.Leave(playerID)
	if err != nil {
		return models.SquadView{}, err
	}
	if empty {
		c.reg.RemoveSquad(squadID)
		c.broadcaster.Publish(models.SquadRoom(squadID), models.EventSquadClosed, view)
		log.Printf("coordinator: squad %s destroyed, last member %s left", squadID, playerID)
		return view, nil
	}
	c.broadcaster.Publish(models.SquadRoom(squadID), models.EventMembershipChanged, view)
	return view, nil
}

func (c *Coordinator) SetReady(ctx context.Context, squadID, playerID string, ready bool) (models.SquadView, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.SquadView{}, err
	}
	view, err := sq.SetReady(playerID, ready)
	if err != nil {
		return models.SquadView{}, err
	}
	c.broadcaster.Publish(models.SquadRoom(squadID), models.EventReadyChanged, view)
	return view, nil
}

// StartGame launches the squad's session. Question drawing happens under the
// squad's lock so no member can join or unready in between.
func (c *Coordinator) StartGame(ctx context.Context, squadID, requesterID string) (models.GameStarted, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.GameStarted{}, err
	}
	view, err := sq.Start(requesterID, func(req game.LaunchRequest) (string, error) {
		s, err := c.newSession(ctx, req)
		if err != nil {
			return "", err
		}
		return s.ID(), nil
	})
	if err != nil {
		return models.GameStarted{}, err
	}

	started := models.GameStarted{SquadID: squadID, SessionID: view.SessionID}
	c.broadcaster.Publish(models.SquadRoom(squadID), models.EventGameStarted, started)
	log.Printf("coordinator: squad %s started session %s", squadID, view.SessionID)
	return started, nil
}

func (c *Coordinator) PostChatMessage(ctx context.Context, squadID, senderID, text string) (models.ChatMessage, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	msg, err := sq.PostChat(senderID, text)
	if err != nil {
		return models.ChatMessage{}, err
	}
	c.broadcaster.Publish(models.SquadRoom(squadID), models.EventChatMessage, msg)
	return msg, nil
}

func (c *Coordinator) ChatHistory(ctx context.Context, squadID, playerID string) ([]models.ChatMessage, error) {
	sq, err := c.reg.Squad(squadID)
	if err != nil {
		return nil, err
	}
	if !sq.HasMember(playerID) {
		return nil, &models.AuthorizationError{Reason: "only squad members can read the chat"}
	}
	return sq.Chat(), nil
}

// PlayerDisconnected tells the player's rooms they went inactive. Sessions
// are kept for reconnection; a leader who drops before the game starts
// leaves the squad so leadership moves on.
func (c *Coordinator) PlayerDisconnected(ctx context.Context, playerID string) {
	inactive := models.PlayerInactive{PlayerID: playerID}

	for _, s := range c.reg.Sessions() {
		if s.HasPlayer(playerID) && s.Status() != models.SessionStatusFinished {
			c.broadcaster.Publish(models.SessionRoom(s.ID()), models.EventPlayerInactive, inactive)
		}
	}

	for _, sq := range c.reg.Squads() {
		if !sq.HasMember(playerID) {
			continue
		}
		view := sq.View()
		c.broadcaster.Publish(models.SquadRoom(view.ID), models.EventPlayerInactive, inactive)
		if view.LeaderID == playerID && view.Status != models.SquadStatusPlaying {
			if _, err := c.LeaveSquad(ctx, view.ID, playerID); err != nil && !isNotFound(err) {
				log.Printf("coordinator: removing disconnected leader %s from squad %s: %v", playerID, view.ID, err)
			}
		}
	}
}
