package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matchpilot/go-aggregator/internal/aggregate"
	"github.com/matchpilot/go-aggregator/internal/cache"
	"github.com/matchpilot/go-aggregator/internal/common/cleaner"
	"github.com/matchpilot/go-aggregator/internal/common/fetch"
	"github.com/matchpilot/go-aggregator/internal/config"
	"github.com/matchpilot/go-aggregator/internal/domain"
	"github.com/matchpilot/go-aggregator/internal/queue"
	"github.com/matchpilot/go-aggregator/internal/source"
	"github.com/matchpilot/go-aggregator/internal/source/arbeitnow"
	"github.com/matchpilot/go-aggregator/internal/source/berlinstartupjobs"
	"github.com/matchpilot/go-aggregator/internal/source/indeed"
	"github.com/matchpilot/go-aggregator/internal/source/linkedin"
	"github.com/matchpilot/go-aggregator/internal/source/stepstone"
	"github.com/matchpilot/go-aggregator/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		keywords   = flag.String("keywords", "", "search keywords")
		location   = flag.String("location", "Berlin, Germany", "search location")
		sourcesCSV = flag.String("sources", "", "comma-separated sources (default: all)")
		resumePath = flag.String("resume", "", "path to a parsed resume profile JSON for match scoring")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall search timeout")
	)
	flag.Parse()

	if *keywords == "" {
		log.Fatal("-keywords is required")
	}

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	pgStore, err := store.NewPostgresStore(cfg.Postgres.ConnectionString, cfg.Postgres.TableName)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer pgStore.Close()

	orchestrator := aggregate.New(buildFetchers(cfg), pgStore, aggregate.Options{
		SourceTimeout: cfg.Scraper.SourceTimeout,
		MaxJobAge:     cfg.Search.MaxJobAge,
		NewestWindow:  cfg.Search.NewestWindow,
	}).
		WithCache(cache.NewRedisGateway(rdb, cfg.Search.CacheTTL)).
		WithPublisher(queue.NewPublisher(rdb, cfg.Redis.IngestQueue))

	// The search index is optional for a one-shot query.
	if esIndex, err := store.NewESIndex(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index); err != nil {
		log.Printf("Elasticsearch unavailable, fallback uses PostgreSQL: %v", err)
	} else {
		orchestrator.WithIndex(esIndex)
	}

	query := domain.SearchQuery{
		Keywords: *keywords,
		Location: *location,
		Sources:  parseSources(*sourcesCSV),
	}
	if *resumePath != "" {
		resume, err := loadResume(*resumePath)
		if err != nil {
			log.Fatalf("Load resume profile: %v", err)
		}
		query.Resume = resume
	}

	result, err := orchestrator.Search(ctx, query)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	log.Printf("Search %s: %d postings (cached=%v)", result.SearchID[:12], len(result.Postings), result.Cached)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("Encode result: %v", err)
	}
}

func buildFetchers(cfg *config.Config) []source.Fetcher {
	client := fetch.NewClient(fetch.Config{
		UserAgent:  cfg.Scraper.UserAgent,
		ProxyURL:   cfg.Scraper.ProxyURL,
		MaxRetries: cfg.Scraper.MaxRetries,
	})
	srcCfg := source.Config{
		MaxPages:     cfg.Scraper.MaxPages,
		MaxJobs:      cfg.Scraper.MaxJobsPerSource,
		RequestDelay: cfg.Scraper.RequestDelay,
		Client:       client,
		Cleaner:      cleaner.New(),
	}

	return []source.Fetcher{
		indeed.NewFetcher(srcCfg),
		stepstone.NewFetcher(srcCfg),
		linkedin.NewFetcher(srcCfg),
		arbeitnow.NewFetcher(srcCfg),
		berlinstartupjobs.NewFetcher(srcCfg),
	}
}

func parseSources(csv string) []domain.JobSource {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var sources []domain.JobSource
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			sources = append(sources, domain.JobSource(strings.ToLower(part)))
		}
	}
	return sources
}

func loadResume(path string) (*domain.ResumeProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var resume domain.ResumeProfile
	if err := json.Unmarshal(data, &resume); err != nil {
		return nil, err
	}
	return &resume, nil
}
