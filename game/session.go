package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FiveEightyEight/scripturequest/models"
)

type SessionConfig struct {
	ID        string
	GameID    string
	GameType  models.GameType
	SquadID   string
	Players   []string
	Questions []models.QuestionRecord
	Settings  models.SessionSettings
	Now       func() time.Time
}

// Session is one game session's state machine. Every method takes the
// session's own lock, so submissions for one session are serialized while
// other sessions proceed independently.
type Session struct {
	mu sync.Mutex

	id       string
	gameID   string
	gameType models.GameType
	squadID  string
	settings models.SessionSettings
	now      func() time.Time

	players   []string
	members   map[string]struct{}
	questions []models.QuestionRecord
	cursor    int
	scores    map[string]int
	correct   map[string]int
	hintsUsed map[string]int // current question only

	timeRemaining int
	status        models.SessionStatus
	startedAt     time.Time
	finishedAt    time.Time
	lastActivity  time.Time
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.ID == "" {
		return nil, &models.ValidationError{Field: "id", Message: "is required"}
	}
	if len(cfg.Players) == 0 {
		return nil, &models.ValidationError{Field: "players", Message: "at least one player is required"}
	}
	if len(cfg.Questions) == 0 {
		return nil, &models.ValidationError{Field: "questions", Message: "at least one question is required"}
	}
	if cfg.Settings.TimeLimitSeconds <= 0 {
		return nil, &models.ValidationError{Field: "time_limit_seconds", Message: "must be positive"}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		id:            cfg.ID,
		gameID:        cfg.GameID,
		gameType:      cfg.GameType,
		squadID:       cfg.SquadID,
		settings:      cfg.Settings,
		now:           now,
		members:       make(map[string]struct{}, len(cfg.Players)),
		questions:     make([]models.QuestionRecord, len(cfg.Questions)),
		scores:        make(map[string]int, len(cfg.Players)),
		correct:       make(map[string]int, len(cfg.Players)),
		hintsUsed:     make(map[string]int),
		timeRemaining: cfg.Settings.TimeLimitSeconds,
		status:        models.SessionStatusWaiting,
		lastActivity:  now(),
	}
	copy(s.questions, cfg.Questions)
	for _, p := range cfg.Players {
		if _, dup := s.members[p]; dup {
			continue
		}
		s.members[p] = struct{}{}
		s.players = append(s.players, p)
		s.scores[p] = 0
	}
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) SquadID() string {
	return s.squadID
}

// Start moves a waiting session to playing. Starting a session that is
// already playing is a no-op.
func (s *Session) Start(playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayable(playerID); err != nil {
		return false, err
	}
	if s.status == models.SessionStatusPlaying {
		return false, nil
	}
	s.begin()
	return true, nil
}

// Submit grades an answer to the question under the cursor and advances it.
// Any questionID other than the current question's yields a
// StaleQuestionError without touching state.
func (s *Session) Submit(playerID, questionID string, answer models.AnswerValue) (models.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayable(playerID); err != nil {
		return models.SubmitResult{}, err
	}
	current := s.questions[s.cursor]
	if current.ID != questionID {
		return models.SubmitResult{}, &models.StaleQuestionError{Expected: current.ID, Got: questionID}
	}

	if s.status == models.SessionStatusWaiting {
		s.begin()
	}

	difficulty := current.Difficulty
	if !difficulty.Valid() {
		difficulty = s.settings.Difficulty
	}
	ok := CheckAnswer(current.Answer, answer)
	points := Points(ok, s.timeRemaining, s.settings.TimeLimitSeconds, difficulty, s.hintsUsed[playerID])

	s.scores[playerID] += points
	if ok {
		s.correct[playerID]++
	}
	s.cursor++
	s.hintsUsed = make(map[string]int)
	s.lastActivity = s.now()

	result := models.SubmitResult{
		Correct:       ok,
		PointsAwarded: points,
		TotalScore:    s.scores[playerID],
	}
	if s.cursor == len(s.questions) {
		s.finish()
		result.SessionFinished = true
	} else {
		next := s.questions[s.cursor].View()
		result.NextQuestion = &next
	}
	s.assertInvariants()
	return result, nil
}

// UseHint reveals the next hint of the current question to playerID.
func (s *Session) UseHint(playerID string) (models.HintResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPlayable(playerID); err != nil {
		return models.HintResult{}, err
	}
	if !s.settings.AllowHints {
		return models.HintResult{}, &models.AuthorizationError{Reason: "hints are disabled for this session"}
	}
	current := s.questions[s.cursor]
	used := s.hintsUsed[playerID]
	if used >= len(current.Hints) {
		return models.HintResult{}, &models.NotFoundError{Kind: "hint", ID: fmt.Sprintf("%s#%d", current.ID, used+1)}
	}
	s.hintsUsed[playerID] = used + 1
	s.lastActivity = s.now()
	return models.HintResult{Hint: current.Hints[used], HintsUsed: used + 1}, nil
}

// Tick charges elapsed seconds against the time budget of a playing session.
// It reports whether anything changed and whether this call finished the
// session. A session idle for idleTimeout (when positive) also finishes.
func (s *Session) Tick(elapsed int, idleTimeout time.Duration) (changed, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != models.SessionStatusPlaying {
		return false, false
	}
	if elapsed > 0 {
		s.timeRemaining = max(s.timeRemaining-elapsed, 0)
		changed = true
	}
	if s.timeRemaining == 0 {
		s.finish()
		finished = true
	} else if idleTimeout > 0 && s.now().Sub(s.lastActivity) >= idleTimeout {
		// an idle session forfeits what is left of its budget
		s.timeRemaining = 0
		s.finish()
		finished = true
	}
	s.assertInvariants()
	return changed || finished, finished
}

func (s *Session) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[playerID]
	return ok
}

func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// FinishedAt is zero until the session finishes.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := models.SessionView{
		ID:                   s.id,
		GameID:               s.gameID,
		GameType:             s.gameType,
		SquadID:              s.squadID,
		Players:              append([]string(nil), s.players...),
		CurrentQuestionIndex: s.cursor,
		TotalQuestions:       len(s.questions),
		Scores:               s.copyScores(),
		TimeRemaining:        s.timeRemaining,
		Status:               s.status,
		Settings:             s.settings,
	}
	if s.status != models.SessionStatusFinished {
		q := s.questions[s.cursor].View()
		v.CurrentQuestion = &q
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		v.StartedAt = &t
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		v.FinishedAt = &t
	}
	return v
}

func (s *Session) Update() models.SessionUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionUpdate{
		SessionID:            s.id,
		CurrentQuestionIndex: s.cursor,
		Scores:               s.copyScores(),
		TimeRemaining:        s.timeRemaining,
		Status:               s.status,
	}
}

// Summary ranks players by score. Tied players share a rank.
func (s *Session) Summary() models.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranking := make([]models.PlayerResult, 0, len(s.players))
	for _, p := range s.players {
		ranking = append(ranking, models.PlayerResult{
			PlayerID:       p,
			FinalScore:     s.scores[p],
			CorrectAnswers: s.correct[p],
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].FinalScore > ranking[j].FinalScore
	})
	for i := range ranking {
		if i > 0 && ranking[i].FinalScore == ranking[i-1].FinalScore {
			ranking[i].Rank = ranking[i-1].Rank
		} else {
			ranking[i].Rank = i + 1
		}
	}

	return models.SessionSummary{
		SessionID:      s.id,
		GameID:         s.gameID,
		SquadID:        s.squadID,
		TotalQuestions: len(s.questions),
		Scores:         s.copyScores(),
		Ranking:        ranking,
		FinishedAt:     s.finishedAt,
	}
}

func (s *Session) ProgressReports() []models.ProgressReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]models.ProgressReport, 0, len(s.players))
	for _, p := range s.players {
		reports = append(reports, models.ProgressReport{
			PlayerID:       p,
			SessionID:      s.id,
			FinalScore:     s.scores[p],
			CorrectAnswers: s.correct[p],
			TotalQuestions: len(s.questions),
		})
	}
	return reports
}

func (s *Session) checkPlayable(playerID string) error {
	if s.status == models.SessionStatusFinished {
		return &models.SessionFinishedError{SessionID: s.id}
	}
	if _, ok := s.members[playerID]; !ok {
		return &models.AuthorizationError{Reason: fmt.Sprintf("player %q is not in session %q", playerID, s.id)}
	}
	return nil
}

func (s *Session) begin() {
	s.status = models.SessionStatusPlaying
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
}

func (s *Session) finish() {
	s.status = models.SessionStatusFinished
	s.finishedAt = s.now()
}

func (s *Session) copyScores() map[string]int {
	scores := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		scores[k] = v
	}
	return scores
}

// assertInvariants panics on states the locking discipline should make
// impossible.
func (s *Session) assertInvariants() {
	if s.cursor < 0 || s.cursor > len(s.questions) {
		panic(fmt.Sprintf("session %s: cursor %d out of range [0,%d]", s.id, s.cursor, len(s.questions)))
	}
	if s.timeRemaining < 0 {
		panic(fmt.Sprintf("session %s: negative time remaining %d", s.id, s.timeRemaining))
	}
	exhausted := s.cursor == len(s.questions) || s.timeRemaining == 0
	if exhausted != (s.status == models.SessionStatusFinished) {
		panic(fmt.Sprintf("session %s: status %s inconsistent with cursor %d/%d and time %d",
			s.id, s.status, s.cursor, len(s.questions), s.timeRemaining))
	}
}
