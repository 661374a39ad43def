package coordinator

import (
	"context"
	"fmt"
	"log"

	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
)

type CreateSessionRequest struct {
	GameID   string                 `json:"game_id"`
	GameType models.GameType        `json:"game_type"`
	Settings models.SessionSettings `json:"settings"`
}

// CreateGameSession starts a single-player session for playerID.
func (c *Coordinator) CreateGameSession(ctx context.Context, playerID string, req CreateSessionRequest) (models.SessionView, error) {
	settings, err := c.normalizeSettings(req.GameType, req.Settings)
	if err != nil {
		return models.SessionView{}, err
	}
	s, err := c.newSession(ctx, game.LaunchRequest{
		GameID:   req.GameID,
		GameType: req.GameType,
		Players:  []string{playerID},
		Settings: settings,
	})
	if err != nil {
		return models.SessionView{}, err
	}
	return s.View(), nil
}

func (c *Coordinator) newSession(ctx context.Context, req game.LaunchRequest) (*game.Session, error) {
	questions, err := c.supply.Draw(ctx, req.GameType, req.Settings.Difficulty, c.opts.QuestionsPerSession)
	if err != nil {
		return nil, err
	}
	s, err := game.NewSession(game.SessionConfig{
		ID:        c.opts.NewID(),
		GameID:    req.GameID,
		GameType:  req.GameType,
		SquadID:   req.SquadID,
		Players:   req.Players,
		Questions: questions,
		Settings:  req.Settings,
		Now:       c.opts.Now,
	})
	if err != nil {
		return nil, err
	}
	c.reg.AddSession(s)
	log.Printf("coordinator: session %s created for %s (%d players, %d questions)", s.ID(), req.GameType, len(req.Players), len(questions))
	return s, nil
}

func (c *Coordinator) normalizeSettings(gameType models.GameType, settings models.SessionSettings) (models.SessionSettings, error) {
	if !gameType.Valid() {
		return settings, &models.ValidationError{Field: "game_type", Message: fmt.Sprintf("unknown game type %q", gameType)}
	}
	if settings.Difficulty == "" {
		settings.Difficulty = models.DifficultyMedium
	}
	if !settings.Difficulty.Valid() {
		return settings, &models.ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", settings.Difficulty)}
	}
	if settings.TimeLimitSeconds == 0 {
		settings.TimeLimitSeconds = c.opts.DefaultTimeLimit
	}
	if settings.TimeLimitSeconds < 0 {
		return settings, &models.ValidationError{Field: "time_limit_seconds", Message: "must be positive"}
	}
	return settings, nil
}

// GetSession returns the live snapshot of a session.
func (c *Coordinator) GetSession(ctx context.Context, sessionID string) (models.SessionView, error) {
	s, err := c.reg.Session(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	return s.View(), nil
}

// SessionSummary returns final (or, while playing, partial) results. Evicted
// sessions are served from the summary store.
func (c *Coordinator) SessionSummary(ctx context.Context, sessionID string) (models.SessionSummary, error) {
	s, err := c.reg.Session(sessionID)
	if err == nil {
		return s.Summary(), nil
	}
	if !isNotFound(err) || c.summaries == nil {
		return models.SessionSummary{}, err
	}
	summary, loadErr := c.summaries.LoadSummary(ctx, sessionID)
	if loadErr != nil {
		return models.SessionSummary{}, loadErr
	}
	return *summary, nil
}

func (c *Coordinator) StartSession(ctx context.Context, sessionID, playerID string) (models.SessionView, error) {
	s, err := c.reg.Session(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	started, err := s.Start(playerID)
	if err != nil {
		return models.SessionView{}, err
	}
	if started {
		c.broadcaster.Publish(models.SessionRoom(sessionID), models.EventSessionUpdated, s.Update())
	}
	return s.View(), nil
}

// SubmitAnswer grades playerID's answer to questionID. The session lock is
// released before anything is broadcast.
func (c *Coordinator) SubmitAnswer(ctx context.Context, sessionID, playerID, questionID string, answer models.AnswerValue) (models.SubmitResult, error) {
	s, err := c.reg.Session(sessionID)
	if err != nil {
		return models.SubmitResult{}, err
	}
	result, err := s.Submit(playerID, questionID, answer)
	if err != nil {
		return models.SubmitResult{}, err
	}

	c.broadcaster.Publish(models.SessionRoom(sessionID), models.EventSessionUpdated, s.Update())
	if result.SessionFinished {
		c.sessionFinished(s)
	}
	return result, nil
}

func (c *Coordinator) UseHint(ctx context.Context, sessionID, playerID string) (models.HintResult, error) {
	s, err := c.reg.Session(sessionID)
	if err != nil {
		return models.HintResult{}, err
	}
	return s.UseHint(playerID)
}

// PlayerSessions lists the unfinished sessions playerID belongs to.
func (c *Coordinator) PlayerSessions(ctx context.Context, playerID string) []models.SessionView {
	var views []models.SessionView
	for _, s := range c.reg.Sessions() {
		if !s.HasPlayer(playerID) || s.Status() == models.SessionStatusFinished {
			continue
		}
		views = append(views, s.View())
	}
	return views
}
