package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// Consumer pops postings from the ingest queue.
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
}

// NewConsumer creates a queue consumer.
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration) *Consumer {
	if queueName == "" {
		queueName = "postings:ingest"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
	}
}

// Consume blocks for one posting. Returns nil, nil when the wait
// times out with the queue empty.
func (c *Consumer) Consume(ctx context.Context) (*domain.JobPosting, error) {
	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var posting domain.JobPosting
	if err := json.Unmarshal([]byte(result[1]), &posting); err != nil {
		return nil, fmt.Errorf("unmarshal posting: %w", err)
	}

	return &posting, nil
}

// ConsumeBatch pops up to maxBatch postings. It block-waits for the
// first item, then drains the rest non-blocking so a full batch never
// waits for a full queue.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.JobPosting, error) {
	postings := make([]*domain.JobPosting, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return postings, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) >= 2 {
		var posting domain.JobPosting
		if err := json.Unmarshal([]byte(result[1]), &posting); err == nil {
			postings = append(postings, &posting)
		}
	}

	for i := 1; i < maxBatch; i++ {
		result, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if err == redis.Nil {
				break
			}
			return postings, fmt.Errorf("rpop: %w", err)
		}

		var posting domain.JobPosting
		if err := json.Unmarshal([]byte(result), &posting); err != nil {
			continue
		}

		postings = append(postings, &posting)
	}

	return postings, nil
}
