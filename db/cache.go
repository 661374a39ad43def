package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/redis/go-redis/v9"
)

const ProgressChannel = "progress:session_finished"

type RedisClient struct {
	client     *redis.Client
	summaryTTL time.Duration
}

func NewRedisClient(opts *redis.Options, summaryTTL time.Duration) *RedisClient {
	client := redis.NewClient(opts)
	return &RedisClient{client: client, summaryTTL: summaryTTL}
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}

func summaryKey(sessionID string) string {
	return fmt.Sprintf("session_summary:%s", sessionID)
}

// Session summaries

func (rc *RedisClient) SaveSummary(ctx context.Context, summary models.SessionSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, summaryKey(summary.SessionID), summaryJSON, rc.summaryTTL).Err()
}

func (rc *RedisClient) LoadSummary(ctx context.Context, sessionID string) (*models.SessionSummary, error) {
	summaryJSON, err := rc.client.Get(ctx, summaryKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &models.NotFoundError{Kind: "session", ID: sessionID}
	}
	if err != nil {
		return nil, err
	}
	var summary models.SessionSummary
	err = json.Unmarshal(summaryJSON, &summary)
	return &summary, err
}

// Progress notifications

func (rc *RedisClient) NotifyProgress(ctx context.Context, report models.ProgressReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return rc.client.Publish(ctx, ProgressChannel, reportJSON).Err()
}

// SubscribeProgress streams reports published by NotifyProgress until ctx is
// cancelled, then closes the channel.
func (rc *RedisClient) SubscribeProgress(ctx context.Context) (<-chan models.ProgressReport, error) {
	pubsub := rc.client.Subscribe(ctx, ProgressChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	ch := make(chan models.ProgressReport)
	messages := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		defer close(ch)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				var report models.ProgressReport
				if err := json.Unmarshal([]byte(msg.Payload), &report); err != nil {
					continue
				}

				select {
				case ch <- report:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
