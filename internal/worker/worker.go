// Package worker drains the ingest queue and bulk-indexes postings
// into the search index.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/queue"
	"github.com/matchpilot/go-aggregator/internal/store"
)

// Worker consumes posting batches and indexes them.
type Worker struct {
	consumer *queue.Consumer
	index    *store.ESIndex

	batchSize   int
	concurrency int
}

// Config holds worker configuration.
type Config struct {
	Concurrency int
	BatchSize   int
}

// NewWorker creates a worker.
func NewWorker(consumer *queue.Consumer, index *store.ESIndex, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Worker{
		consumer:    consumer,
		index:       index,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
}

// Run starts the worker pool and blocks until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("Starting worker pool with %d workers", w.concurrency)

	var wg sync.WaitGroup
	errChan := make(chan error, w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := w.runSingle(ctx, workerID); err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	case <-done:
		return nil
	}
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	log.Printf("Worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", workerID)
			return nil
		default:
		}

		// ConsumeBatch block-waits for the first item, so an empty
		// queue never spins.
		postings, err := w.consumer.ConsumeBatch(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Worker %d consume error: %v", workerID, err)
			continue
		}

		if len(postings) == 0 {
			continue
		}

		valid := make([]*domain.JobPosting, 0, len(postings))
		for _, posting := range postings {
			if posting.ExternalID == "" || posting.Title == "" {
				continue
			}
			valid = append(valid, posting)
		}

		if len(valid) > 0 {
			if err := w.index.BulkIndex(ctx, valid); err != nil {
				log.Printf("Worker %d index error: %v", workerID, err)
			} else {
				log.Printf("Worker %d indexed %d postings", workerID, len(valid))
			}
		}
	}
}
