package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// ESIndex is the Elasticsearch secondary search index. The worker
// feeds it from the ingest queue; the aggregator queries it for the
// stored-posting fallback.
type ESIndex struct {
	client    *elasticsearch.Client
	indexName string
}

// NewESIndex creates an Elasticsearch index client and verifies the
// connection.
func NewESIndex(addresses []string, indexName string) (*ESIndex, error) {
	cfg := elasticsearch.Config{
		Addresses: addresses,
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ESIndex{
		client:    client,
		indexName: indexName,
	}, nil
}

func docID(posting *domain.JobPosting) string {
	return string(posting.Source) + ":" + posting.ExternalID
}

// Index indexes a single posting, replacing any previous version.
func (i *ESIndex) Index(ctx context.Context, posting *domain.JobPosting) error {
	data, err := json.Marshal(posting)
	if err != nil {
		return fmt.Errorf("marshal posting: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: docID(posting),
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}

	return nil
}

// BulkIndex indexes multiple postings at once.
func (i *ESIndex) BulkIndex(ctx context.Context, postings []*domain.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for _, posting := range postings {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    docID(posting),
			},
		}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')

		docBytes, err := json.Marshal(posting)
		if err != nil {
			log.Printf("marshal posting %s: %v", docID(posting), err)
			continue
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				log.Printf("bulk index error for %s: %s - %s",
					item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason)
			}
		}
	}

	return nil
}

// Search runs the stored-posting fallback query: recent postings,
// optionally restricted to sources and a city, ranked by how well
// their text matches the tokens.
func (i *ESIndex) Search(ctx context.Context, query RecentQuery) ([]domain.JobPosting, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	filters := []map[string]any{
		{"range": map[string]any{"scraped_at": map[string]any{"gt": query.Since}}},
	}
	if len(query.Sources) > 0 {
		sources := make([]string, 0, len(query.Sources))
		for _, source := range query.Sources {
			sources = append(sources, string(source))
		}
		filters = append(filters, map[string]any{"terms": map[string]any{"source": sources}})
	}
	if query.City != "" {
		filters = append(filters, map[string]any{"match": map[string]any{"location": query.City}})
	}

	boolQuery := map[string]any{"filter": filters}
	if len(query.Tokens) > 0 {
		should := make([]map[string]any, 0, len(query.Tokens))
		for _, token := range query.Tokens {
			should = append(should, map[string]any{
				"multi_match": map[string]any{
					"query":  token,
					"fields": []string{"title^2", "description", "requirements"},
				},
			})
		}
		boolQuery["should"] = should
		boolQuery["minimum_should_match"] = 1
	}

	body, err := json.Marshal(map[string]any{
		"size":  limit,
		"query": map[string]any{"bool": boolQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.indexName),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.Status())
	}

	var searchRes struct {
		Hits struct {
			Hits []struct {
				Source domain.JobPosting `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	postings := make([]domain.JobPosting, 0, len(searchRes.Hits.Hits))
	for _, hit := range searchRes.Hits.Hits {
		postings = append(postings, hit.Source)
	}
	return postings, nil
}

// EnsureIndex creates the index with its mapping if it doesn't exist.
func (i *ESIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"posting_analyzer": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"id": {"type": "long"},
				"source": {"type": "keyword"},
				"external_id": {"type": "keyword"},
				"title": {
					"type": "text",
					"analyzer": "posting_analyzer",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"company": {"type": "text", "analyzer": "posting_analyzer"},
				"location": {"type": "text", "analyzer": "posting_analyzer"},
				"description": {"type": "text", "analyzer": "posting_analyzer"},
				"requirements": {"type": "text", "analyzer": "posting_analyzer"},
				"url": {"type": "keyword"},
				"posted_date": {"type": "date"},
				"scraped_at": {"type": "date"},
				"salary_min": {"type": "integer"},
				"salary_max": {"type": "integer"},
				"job_type": {"type": "keyword"},
				"remote_type": {"type": "keyword"},
				"experience_level": {"type": "keyword"},
				"keywords": {"type": "keyword"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	return nil
}
