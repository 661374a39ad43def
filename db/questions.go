package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Question is the stored form of a question. GameTypes is kept as a
// comma-wrapped list (",quiz,rescue,") so membership is a LIKE match on any
// SQL backend.
type Question struct {
	ID         string             `gorm:"primaryKey;size:64"`
	Text       string             `gorm:"not null"`
	Type       string             `gorm:"size:32;not null"`
	Answer     models.AnswerValue `gorm:"serializer:json;not null"`
	Options    []string           `gorm:"serializer:json"`
	Hints      []string           `gorm:"serializer:json"`
	Reference  string             `gorm:"size:100"`
	Difficulty string             `gorm:"size:16;index"`
	GameTypes  string             `gorm:"not null"`
	IsActive   bool               `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SeedQuestion is the JSON shape accepted by Seed.
type SeedQuestion struct {
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	Type       models.QuestionType `json:"type"`
	Answer     models.AnswerValue  `json:"answer"`
	Options    []string            `json:"options"`
	Hints      []string            `json:"hints"`
	Reference  string              `json:"reference"`
	Difficulty models.Difficulty   `json:"difficulty"`
	GameTypes  []models.GameType   `json:"game_types"`
	Inactive   bool                `json:"inactive"`
}

type QuestionStore struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

func NewQuestionStore(db *gorm.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Question{})
}

// Find implements game.QuestionRepository. Rows come back in id order; the
// caller does the sampling.
func (s *QuestionStore) Find(ctx context.Context, filter game.QuestionFilter) ([]models.QuestionRecord, error) {
	query := s.db.WithContext(ctx).Model(&Question{})
	if filter.GameType != "" {
		query = query.Where("game_types LIKE ?", "%,"+string(filter.GameType)+",%")
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", string(filter.Difficulty))
	}
	if filter.Active {
		query = query.Where("is_active = ?", true)
	}

	var rows []Question
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}

	records := make([]models.QuestionRecord, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

// Upsert stores q, replacing any question with the same id.
func (s *QuestionStore) Upsert(ctx context.Context, q SeedQuestion) error {
	if q.ID == "" || q.Text == "" || len(q.Answer) == 0 {
		return &models.ValidationError{Field: "question", Message: "id, text and answer are required"}
	}
	if !q.Difficulty.Valid() {
		return &models.ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", q.Difficulty)}
	}
	if len(q.GameTypes) == 0 {
		return &models.ValidationError{Field: "game_types", Message: "at least one game type is required"}
	}
	types := make([]string, len(q.GameTypes))
	for i, gt := range q.GameTypes {
		if !gt.Valid() {
			return &models.ValidationError{Field: "game_types", Message: fmt.Sprintf("unknown game type %q", gt)}
		}
		types[i] = string(gt)
	}

	row := Question{
		ID:         q.ID,
		Text:       q.Text,
		Type:       string(q.Type),
		Answer:     q.Answer,
		Options:    q.Options,
		Hints:      q.Hints,
		Reference:  q.Reference,
		Difficulty: string(q.Difficulty),
		GameTypes:  "," + strings.Join(types, ",") + ",",
		IsActive:   !q.Inactive,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// Seed upserts every question in a JSON array and returns how many it stored.
func (s *QuestionStore) Seed(ctx context.Context, r io.Reader) (int, error) {
	var questions []SeedQuestion
	if err := json.NewDecoder(r).Decode(&questions); err != nil {
		return 0, fmt.Errorf("decode seed questions: %w", err)
	}
	for i, q := range questions {
		if err := s.Upsert(ctx, q); err != nil {
			return i, fmt.Errorf("seed question %q: %w", q.ID, err)
		}
	}
	return len(questions), nil
}

func (q Question) record() models.QuestionRecord {
	return models.QuestionRecord{
		ID:         q.ID,
		Text:       q.Text,
		Type:       models.QuestionType(q.Type),
		Options:    q.Options,
		Hints:      q.Hints,
		Reference:  q.Reference,
		Difficulty: models.Difficulty(q.Difficulty),
		Answer:     q.Answer,
	}
}
