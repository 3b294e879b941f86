// Package queue moves scraped postings from the aggregator to the
// indexing worker over a Redis list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// Publisher pushes postings onto the ingest queue.
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a queue publisher.
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = "postings:ingest"
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// Publish pushes a single posting onto the queue.
func (p *Publisher) Publish(ctx context.Context, posting *domain.JobPosting) error {
	data, err := json.Marshal(posting)
	if err != nil {
		return fmt.Errorf("marshal posting: %w", err)
	}

	if err := p.client.LPush(ctx, p.queueName, data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}

	return nil
}

// PublishBatch pushes multiple postings in one pipeline round trip.
func (p *Publisher) PublishBatch(ctx context.Context, postings []domain.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for i := range postings {
		data, err := json.Marshal(&postings[i])
		if err != nil {
			return fmt.Errorf("marshal posting: %w", err)
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// QueueLength returns the current queue length.
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}
