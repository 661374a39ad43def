package game

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/FiveEightyEight/scripturequest/models"
)

type QuestionFilter struct {
	GameType   models.GameType
	Difficulty models.Difficulty
	Active     bool
}

// QuestionRepository is the external question store.
type QuestionRepository interface {
	Find(ctx context.Context, filter QuestionFilter) ([]models.QuestionRecord, error)
}

// QuestionSupply samples session questions from a repository.
type QuestionSupply struct {
	repo QuestionRepository

	mu     sync.Mutex
	random *rand.Rand
}

func NewQuestionSupply(repo QuestionRepository, seed int64) *QuestionSupply {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &QuestionSupply{
		repo:   repo,
		random: rand.New(rand.NewSource(seed)),
	}
}

// Draw samples up to count questions without replacement. Fewer eligible
// questions than count is not an error; none at all is an EmptyPoolError.
func (qs *QuestionSupply) Draw(ctx context.Context, gameType models.GameType, difficulty models.Difficulty, count int) ([]models.QuestionRecord, error) {
	if count <= 0 {
		return nil, &models.ValidationError{Field: "count", Message: "must be positive"}
	}

	pool, err := qs.repo.Find(ctx, QuestionFilter{GameType: gameType, Difficulty: difficulty, Active: true})
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	if len(pool) == 0 {
		return nil, &models.EmptyPoolError{GameType: gameType, Difficulty: difficulty}
	}

	qs.mu.Lock()
	order := qs.random.Perm(len(pool))
	qs.mu.Unlock()

	if count > len(pool) {
		count = len(pool)
	}
	drawn := make([]models.QuestionRecord, count)
	for i := 0; i < count; i++ {
		drawn[i] = cloneQuestion(pool[order[i]])
	}
	return drawn, nil
}

func cloneQuestion(q models.QuestionRecord) models.QuestionRecord {
	q.Options = append([]string(nil), q.Options...)
	q.Hints = append([]string(nil), q.Hints...)
	q.Answer = append(models.AnswerValue(nil), q.Answer...)
	return q
}
