package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/matchpilot/go-aggregator/internal/domain"
)

// PostgresStore is the primary posting store.
type PostgresStore struct {
	db        *sql.DB
	tableName string
}

// NewPostgresStore opens a connection and ensures the table exists.
func NewPostgresStore(connStr string, tableName string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{
		db:        db,
		tableName: tableName,
	}

	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("ensure table: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) ensureTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			company TEXT,
			location TEXT,
			description TEXT,
			requirements TEXT,
			url TEXT,
			posted_date TIMESTAMP WITH TIME ZONE,
			scraped_at TIMESTAMP WITH TIME ZONE NOT NULL,
			salary_min INTEGER,
			salary_max INTEGER,
			job_type TEXT,
			remote_type TEXT,
			experience_level TEXT,
			keywords TEXT[],
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE (source, external_id)
		)
	`, s.tableName)

	_, err := s.db.Exec(query)
	return err
}

func (s *PostgresStore) upsertQuery() string {
	return fmt.Sprintf(`
		INSERT INTO %s (
			source, external_id, title, company, location,
			description, requirements, url, posted_date, scraped_at,
			salary_min, salary_max, job_type, remote_type, experience_level, keywords
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			url = EXCLUDED.url,
			posted_date = COALESCE(EXCLUDED.posted_date, %s.posted_date),
			scraped_at = EXCLUDED.scraped_at,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			job_type = EXCLUDED.job_type,
			remote_type = EXCLUDED.remote_type,
			experience_level = EXCLUDED.experience_level,
			keywords = EXCLUDED.keywords,
			updated_at = NOW()
		RETURNING id
	`, s.tableName, s.tableName)
}

// Upsert inserts or refreshes a posting keyed (source, external_id).
// A re-scrape updates the row; it never creates a duplicate.
func (s *PostgresStore) Upsert(ctx context.Context, posting *domain.JobPosting) error {
	row := s.db.QueryRowContext(ctx, s.upsertQuery(),
		string(posting.Source), posting.ExternalID, posting.Title, posting.Company, posting.Location,
		posting.Description, posting.Requirements, posting.URL, posting.PostedDate, posting.ScrapedAt,
		posting.SalaryMin, posting.SalaryMax, posting.JobType, posting.RemoteType, posting.ExperienceLevel,
		pq.Array(posting.Keywords),
	)
	if err := row.Scan(&posting.ID); err != nil {
		return fmt.Errorf("upsert posting %s/%s: %w", posting.Source, posting.ExternalID, err)
	}
	return nil
}

// UpsertBatch upserts postings in one transaction. A row that fails
// is logged and skipped so one bad posting never drops the batch.
func (s *PostgresStore) UpsertBatch(ctx context.Context, postings []domain.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range postings {
		posting := &postings[i]
		row := stmt.QueryRowContext(ctx,
			string(posting.Source), posting.ExternalID, posting.Title, posting.Company, posting.Location,
			posting.Description, posting.Requirements, posting.URL, posting.PostedDate, posting.ScrapedAt,
			posting.SalaryMin, posting.SalaryMax, posting.JobType, posting.RemoteType, posting.ExperienceLevel,
			pq.Array(posting.Keywords),
		)
		if err := row.Scan(&posting.ID); err != nil {
			log.Printf("[store] upsert %s/%s: %v", posting.Source, posting.ExternalID, err)
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const selectColumns = `id, source, external_id, title, company, location,
	description, requirements, url, posted_date, scraped_at,
	salary_min, salary_max, job_type, remote_type, experience_level, keywords`

// ByIDs loads postings in the requested ID order.
func (s *PostgresStore) ByIDs(ctx context.Context, ids []int64) ([]domain.JobPosting, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1)`, selectColumns, s.tableName)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.JobPosting, len(ids))
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		byID[posting.ID] = posting
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	ordered := make([]domain.JobPosting, 0, len(ids))
	for _, id := range ids {
		if posting, ok := byID[id]; ok {
			ordered = append(ordered, posting)
		}
	}
	return ordered, nil
}

// RecentMatching pulls a bounded candidate window from the database
// and ranks it by token hits in memory.
func (s *PostgresStore) RecentMatching(ctx context.Context, query RecentQuery) ([]domain.JobPosting, error) {
	stmt := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE scraped_at > $1
	`, selectColumns, s.tableName)
	args := []any{query.Since}

	if len(query.Sources) > 0 {
		sources := make([]string, 0, len(query.Sources))
		for _, source := range query.Sources {
			sources = append(sources, string(source))
		}
		args = append(args, pq.Array(sources))
		stmt += fmt.Sprintf(" AND source = ANY($%d)", len(args))
	}
	if query.City != "" {
		args = append(args, "%"+query.City+"%")
		stmt += fmt.Sprintf(" AND location ILIKE $%d", len(args))
	}
	stmt += " ORDER BY scraped_at DESC, id DESC LIMIT 400"

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select recent: %w", err)
	}
	defer rows.Close()

	var candidates []domain.JobPosting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, posting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return RankByTokenHits(candidates, query.Tokens, query.Limit), nil
}

func scanPosting(rows *sql.Rows) (domain.JobPosting, error) {
	var posting domain.JobPosting
	var source string
	if err := rows.Scan(
		&posting.ID, &source, &posting.ExternalID, &posting.Title, &posting.Company, &posting.Location,
		&posting.Description, &posting.Requirements, &posting.URL, &posting.PostedDate, &posting.ScrapedAt,
		&posting.SalaryMin, &posting.SalaryMax, &posting.JobType, &posting.RemoteType, &posting.ExperienceLevel,
		pq.Array(&posting.Keywords),
	); err != nil {
		return domain.JobPosting{}, fmt.Errorf("scan posting: %w", err)
	}
	posting.Source = domain.JobSource(source)
	return posting, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
