package models

import (
	"encoding/json"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type GameType string

const (
	GameTypeRescue       GameType = "rescue"
	GameTypeQuiz         GameType = "quiz"
	GameTypePictionary   GameType = "pictionary"
	GameTypeMemory       GameType = "memory"
	GameTypeScavenger    GameType = "scavenger"
	GameTypeVerse        GameType = "verse"
	GameTypeTimeline     GameType = "timeline"
	GameTypeBeatitudes   GameType = "beatitudes"
	GameTypeWordSearch   GameType = "wordsearch"
	GameTypeParable      GameType = "parable"
	GameTypeAudio        GameType = "audio"
	GameTypeFourPictures GameType = "fourpictures"
)

var multiplayerGameTypes = map[GameType]bool{
	GameTypeRescue:     true,
	GameTypeQuiz:       true,
	GameTypePictionary: true,
	GameTypeScavenger:  true,
}

var knownGameTypes = map[GameType]bool{
	GameTypeRescue: true, GameTypeQuiz: true, GameTypePictionary: true,
	GameTypeMemory: true, GameTypeScavenger: true, GameTypeVerse: true,
	GameTypeTimeline: true, GameTypeBeatitudes: true, GameTypeWordSearch: true,
	GameTypeParable: true, GameTypeAudio: true, GameTypeFourPictures: true,
}

func (g GameType) Valid() bool {
	return knownGameTypes[g]
}

// Multiplayer reports whether a squad playing this game type needs at least
// MinSquadSize members before it can start.
func (g GameType) Multiplayer() bool {
	return multiplayerGameTypes[g]
}

const (
	MinSquadSize = 2
	MaxSquadSize = 8
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeFillIn         QuestionType = "fill-in"
	QuestionTypeOpenEnded      QuestionType = "open-ended"
	QuestionTypeOrdering       QuestionType = "ordering"
	QuestionTypeMatching       QuestionType = "matching"
	QuestionTypeAudio          QuestionType = "audio"
	QuestionTypeTrueFalse      QuestionType = "true-false"
)

// AnswerValue holds a scalar or multi-valued answer. It decodes from either a
// JSON string or a JSON array of strings.
type AnswerValue []string

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AnswerValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*a = AnswerValue(many)
	return nil
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// QuestionRecord is the internal question held by a session. Answer never
// leaves the process; outward copies go through View.
type QuestionRecord struct {
	ID         string
	Text       string
	Type       QuestionType
	Options    []string
	Hints      []string
	Reference  string
	Difficulty Difficulty
	Answer     AnswerValue `json:"-"`
}

type QuestionView struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Options    []string     `json:"options,omitempty"`
	HintCount  int          `json:"hint_count"`
	Reference  string       `json:"reference,omitempty"`
	Difficulty Difficulty   `json:"difficulty"`
}

// View is the only conversion from a QuestionRecord to anything that may be
// sent to a client.
func (q QuestionRecord) View() QuestionView {
	var options []string
	if len(q.Options) > 0 {
		options = append([]string(nil), q.Options...)
	}
	return QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Options:    options,
		HintCount:  len(q.Hints),
		Reference:  q.Reference,
		Difficulty: q.Difficulty,
	}
}

type SessionStatus string

const (
	SessionStatusWaiting  SessionStatus = "waiting"
	SessionStatusPlaying  SessionStatus = "playing"
	SessionStatusFinished SessionStatus = "finished"
)

type SessionSettings struct {
	Difficulty       Difficulty `json:"difficulty"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	AllowHints       bool       `json:"allow_hints"`
}

type SessionView struct {
	ID                   string          `json:"id"`
	GameID               string          `json:"game_id"`
	GameType             GameType        `json:"game_type"`
	SquadID              string          `json:"squad_id,omitempty"`
	Players              []string        `json:"players"`
	CurrentQuestionIndex int             `json:"current_question_index"`
	TotalQuestions       int             `json:"total_questions"`
	CurrentQuestion      *QuestionView   `json:"current_question,omitempty"`
	Scores               map[string]int  `json:"scores"`
	TimeRemaining        int             `json:"time_remaining"`
	Status               SessionStatus   `json:"status"`
	Settings             SessionSettings `json:"settings"`
	StartedAt            *time.Time      `json:"started_at,omitempty"`
	FinishedAt           *time.Time      `json:"finished_at,omitempty"`
}

type SubmitResult struct {
	Correct         bool          `json:"correct"`
	PointsAwarded   int           `json:"points_awarded"`
	TotalScore      int           `json:"total_score"`
	NextQuestion    *QuestionView `json:"next_question"`
	SessionFinished bool          `json:"session_finished"`
}

type HintResult struct {
	Hint      string `json:"hint"`
	HintsUsed int    `json:"hints_used"`
}

type PlayerResult struct {
	PlayerID       string `json:"player_id"`
	FinalScore     int    `json:"final_score"`
	CorrectAnswers int    `json:"correct_answers"`
	Rank           int    `json:"rank"`
}

type SessionSummary struct {
	SessionID      string         `json:"session_id"`
	GameID         string         `json:"game_id"`
	SquadID        string         `json:"squad_id,omitempty"`
	TotalQuestions int            `json:"total_questions"`
	Scores         map[string]int `json:"scores"`
	Ranking        []PlayerResult `json:"ranking"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// ProgressReport is sent once per player when a session finishes.
type ProgressReport struct {
	PlayerID       string `json:"player_id"`
	SessionID      string `json:"session_id"`
	FinalScore     int    `json:"final_score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
}

type SquadStatus string

const (
	SquadStatusWaiting SquadStatus = "waiting"
	SquadStatusReady   SquadStatus = "ready"
	SquadStatusPlaying SquadStatus = "playing"
)

type SquadMember struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name,omitempty"`
	IsReady  bool      `json:"is_ready"`
	IsLeader bool      `json:"is_leader"`
	JoinedAt time.Time `json:"joined_at"`
}

type SquadView struct {
	ID         string          `json:"id"`
	GameID     string          `json:"game_id,omitempty"`
	Name       string          `json:"name"`
	LeaderID   string          `json:"leader_id"`
	GameType   GameType        `json:"game_type"`
	MaxMembers int             `json:"max_members"`
	Members    []SquadMember   `json:"members"`
	Settings   SessionSettings `json:"settings"`
	Status     SquadStatus     `json:"status"`
	SessionID  string          `json:"session_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	SquadID    string    `json:"squad_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

type SocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}
