package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/FiveEightyEight/scripturequest/registry"
	"github.com/google/uuid"
)

// Broadcaster delivers an event to every connection in a room. It must not
// block on slow connections.
type Broadcaster interface {
	Publish(room, eventType string, payload interface{}) int
}

// ProgressNotifier receives one report per player when a session finishes.
// Calls are fire-and-forget; errors are only logged.
type ProgressNotifier interface {
	NotifyProgress(ctx context.Context, report models.ProgressReport) error
}

// SummaryStore keeps final scores readable after a session is evicted.
type SummaryStore interface {
	SaveSummary(ctx context.Context, summary models.SessionSummary) error
	LoadSummary(ctx context.Context, sessionID string) (*models.SessionSummary, error)
}

type Options struct {
	QuestionsPerSession int
	DefaultTimeLimit    int
	ChatLimit           int
	TickInterval        time.Duration
	GracePeriod         time.Duration
	IdleTimeout         time.Duration
	NotifyTimeout       time.Duration
	Now                 func() time.Time
	NewID               func() string
}

func (o *Options) setDefaults() {
	if o.QuestionsPerSession <= 0 {
		o.QuestionsPerSession = 10
	}
	if o.DefaultTimeLimit <= 0 {
		o.DefaultTimeLimit = 600
	}
	if o.ChatLimit <= 0 {
		o.ChatLimit = game.DefaultChatLimit
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 5 * time.Minute
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 5 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Coordinator is the request/response surface of the session and lobby
// subsystem. Errors it returns are the typed errors from models.
type Coordinator struct {
	reg         *registry.Registry
	supply      *game.QuestionSupply
	broadcaster Broadcaster
	progress    ProgressNotifier
	summaries   SummaryStore
	opts        Options

	tickMu    sync.Mutex
	tickCarry time.Duration

	pending sync.WaitGroup
}

// New wires a coordinator. progress and summaries may be nil.
func New(reg *registry.Registry, supply *game.QuestionSupply, broadcaster Broadcaster, progress ProgressNotifier, summaries SummaryStore, opts Options) *Coordinator {
	opts.setDefaults()
	return &Coordinator{
		reg:         reg,
		supply:      supply,
		broadcaster: broadcaster,
		progress:    progress,
		summaries:   summaries,
		opts:        opts,
	}
}

// Run drives the time budget countdown and eviction until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	log.Printf("coordinator: ticking every %s, grace period %s", c.opts.TickInterval, c.opts.GracePeriod)
	for {
		select {
		case <-ctx.Done():
			log.Println("coordinator: stopped")
			return
		case <-ticker.C:
			c.advanceClock(c.opts.TickInterval)
			c.Sweep()
		}
	}
}

// Wait blocks until background progress and summary writes have completed.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

// advanceClock converts wall time into whole seconds for Tick, carrying the
// remainder so sub-second intervals still add up.
func (c *Coordinator) advanceClock(d time.Duration) {
	c.tickMu.Lock()
	c.tickCarry += d
	seconds := int(c.tickCarry / time.Second)
	c.tickCarry -= time.Duration(seconds) * time.Second
	c.tickMu.Unlock()

	c.Tick(seconds)
}

// Tick charges elapsed seconds to every playing session and finishes those
// whose budget or idle allowance ran out.
func (c *Coordinator) Tick(elapsed int) {
	for _, s := range c.reg.Sessions() {
		changed, finished := s.Tick(elapsed, c.opts.IdleTimeout)
		if !changed {
			continue
		}
		c.broadcaster.Publish(models.SessionRoom(s.ID()), models.EventSessionUpdated, s.Update())
		if finished {
			c.sessionFinished(s)
		}
	}
}

// Sweep evicts sessions that finished more than GracePeriod ago.
func (c *Coordinator) Sweep() int {
	cutoff := c.opts.Now().Add(-c.opts.GracePeriod)
	evicted := 0
	for _, s := range c.reg.Sessions() {
		finishedAt := s.FinishedAt()
		if finishedAt.IsZero() || finishedAt.After(cutoff) {
			continue
		}
		if c.reg.RemoveSession(s.ID()) {
			evicted++
			log.Printf("coordinator: evicted session %s", s.ID())
		}
	}
	return evicted
}

// sessionFinished runs exactly once per session, by whichever submission or
// tick performed the finish transition.
func (c *Coordinator) sessionFinished(s *game.Session) {
	summary := s.Summary()
	reports := s.ProgressReports()
	log.Printf("coordinator: session %s finished (%d questions, %d players)", s.ID(), summary.TotalQuestions, len(reports))

	c.broadcaster.Publish(models.SessionRoom(s.ID()), models.EventSessionFinished, summary)

	if squadID := s.SquadID(); squadID != "" {
		if sq, err := c.reg.Squad(squadID); err == nil {
			sq.Close()
			c.reg.RemoveSquad(squadID)
			c.broadcaster.Publish(models.SquadRoom(squadID), models.EventSquadClosed, sq.View())
			log.Printf("coordinator: squad %s closed with its session", squadID)
		}
	}

	if c.summaries == nil && c.progress == nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.NotifyTimeout)
		defer cancel()

		if c.summaries != nil {
			if err := c.summaries.SaveSummary(ctx, summary); err != nil {
				log.Printf("coordinator: failed to save summary for session %s: %v", summary.SessionID, err)
			}
		}
		if c.progress != nil {
			for _, r := range reports {
				if err := c.progress.NotifyProgress(ctx, r); err != nil {
					log.Printf("coordinator: progress notification for player %s failed: %v", r.PlayerID, err)
				}
			}
		}
	}()
}

func isNotFound(err error) bool {
	var nf *models.NotFoundError
	return errors.As(err, &nf)
}
