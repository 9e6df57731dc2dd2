package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dekimage/scraper-usa-platform/models"
	"github.com/dekimage/scraper-usa-platform/services"
	"github.com/dekimage/scraper-usa-platform/utils"

	_ "github.com/lib/pq"
)

// PostgresStore persists businesses, jobs and city summaries in
// PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens the connection, pings the DB and ensures the
// schema exists.
func NewPostgresStore(connStr string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		return nil, err
	}

	logger.Info("Connected to PostgreSQL successfully")
	return s, nil
}

func (s *PostgresStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS businesses (
		id             SERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		address        TEXT NOT NULL DEFAULT '',
		phone          TEXT,
		website        TEXT,
		website_status VARCHAR(10) NOT NULL DEFAULT 'none',
		rating         NUMERIC(3,1),
		review_count   INTEGER,
		image_url      TEXT,
		maps_link      TEXT NOT NULL,
		category       TEXT NOT NULL,
		city           TEXT NOT NULL,
		business_type  TEXT NOT NULL,
		scraped_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_businesses_name_address ON businesses (name, address);
	CREATE INDEX IF NOT EXISTS idx_businesses_city         ON businesses (city);
	CREATE INDEX IF NOT EXISTS idx_businesses_status       ON businesses (website_status);

	CREATE TABLE IF NOT EXISTS scraper_jobs (
		id            SERIAL PRIMARY KEY,
		city          TEXT NOT NULL,
		business_type TEXT NOT NULL,
		max_results   INTEGER NOT NULL,
		status        VARCHAR(10) NOT NULL DEFAULT 'running',
		results_count INTEGER,
		error         TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at  TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_scraper_jobs_status ON scraper_jobs (status);

	CREATE TABLE IF NOT EXISTS cities_summary (
		name         TEXT PRIMARY KEY,
		business_count INTEGER NOT NULL DEFAULT 0,
		last_scraped TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	s.logger.Info("Database schema is ready")
	return nil
}

// SaveBusiness checks for an existing (name, address) match and inserts
// the record when none exists.
func (s *PostgresStore) SaveBusiness(ctx context.Context, b *models.Business) (int64, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM businesses WHERE name = $1 AND address = $2 LIMIT 1`,
		b.Name, b.Address,
	).Scan(&existingID)
	if err == nil {
		return 0, ErrDuplicate
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to check duplicate: %w", err)
	}

	// Never trust a stale status; derive it from the website at write time.
	b.WebsiteStatus = services.ClassifyWebsite(b.Website)

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO businesses (
			name, address, phone, website, website_status, rating,
			review_count, image_url, maps_link, category, city,
			business_type, scraped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, b.Name, b.Address, nullableString(b.Phone), nullableString(b.Website),
		string(b.WebsiteStatus), nullableFloat(b.Rating), nullableInt(b.ReviewCount),
		nullableString(b.ImageURL), b.MapsLink, b.Category, b.City,
		b.BusinessType, b.ScrapedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert business: %w", err)
	}

	b.ID = id
	return id, nil
}

// CountBusinessesByCity runs a full count query for the city.
func (s *PostgresStore) CountBusinessesByCity(ctx context.Context, city string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM businesses WHERE city = $1`, strings.TrimSpace(city),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count businesses: %w", err)
	}
	return count, nil
}

// UpdateCitySummary recomputes the count from the businesses table and
// upserts the summary row. Recount instead of increment, so the figure
// stays truthful after partial failures in earlier runs.
func (s *PostgresStore) UpdateCitySummary(ctx context.Context, city string) error {
	trimmed := strings.TrimSpace(city)
	if trimmed == "" {
		return fmt.Errorf("empty city name")
	}

	count, err := s.CountBusinessesByCity(ctx, trimmed)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cities_summary (name, business_count, last_scraped)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			business_count = EXCLUDED.business_count,
			last_scraped = EXCLUDED.last_scraped
	`, trimmed, count)
	if err != nil {
		return fmt.Errorf("failed to upsert city summary: %w", err)
	}

	s.logger.Info("City summary updated: %s (%d businesses)", trimmed, count)
	return nil
}

// ListCitySummaries returns all city summaries ordered by count.
func (s *PostgresStore) ListCitySummaries(ctx context.Context) ([]*models.CitySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, business_count, last_scraped
		FROM cities_summary
		ORDER BY business_count DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list city summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*models.CitySummary
	for rows.Next() {
		var cs models.CitySummary
		if err := rows.Scan(&cs.Name, &cs.BusinessCount, &cs.LastScraped); err != nil {
			return nil, fmt.Errorf("failed to scan city summary: %w", err)
		}
		summaries = append(summaries, &cs)
	}
	return summaries, rows.Err()
}

// DistinctCities returns every city with at least one stored business.
func (s *PostgresStore) DistinctCities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT city FROM businesses ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	var cities []string
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

// CreateJob inserts a new job in the running state.
func (s *PostgresStore) CreateJob(ctx context.Context, params models.ScrapeParams) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scraper_jobs (city, business_type, max_results, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, params.City, params.BusinessType, params.MaxResults, string(models.JobRunning)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// GetJob returns the job with the given id, or nil when not found.
func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.ScrapeJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, city, business_type, max_results, status,
		       results_count, error, created_at, completed_at
		FROM scraper_jobs WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListJobs returns the most recent jobs.
func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]*models.ScrapeJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, city, business_type, max_results, status,
		       results_count, error, created_at, completed_at
		FROM scraper_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ScrapeJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CompleteJob marks a running job completed. The status guard in the
// WHERE clause makes the terminal transition happen at most once.
func (s *PostgresStore) CompleteJob(ctx context.Context, id int64, resultsCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scraper_jobs
		SET status = $1, results_count = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`, string(models.JobCompleted), resultsCount, id, string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return ensureTransitioned(res, id)
}

// FailJob marks a running job failed with the captured error message.
func (s *PostgresStore) FailJob(ctx context.Context, id int64, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE scraper_jobs
		SET status = $1, error = $2, completed_at = NOW()
		WHERE id = $3 AND status = $4
	`, string(models.JobFailed), message, id, string(models.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return ensureTransitioned(res, id)
}

func ensureTransitioned(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not running", id)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.ScrapeJob, error) {
	var job models.ScrapeJob
	var status string
	var resultsCount sql.NullInt64
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&job.ID, &job.City, &job.BusinessType, &job.MaxResults,
		&status, &resultsCount, &errMsg, &job.Timestamp, &completedAt)
	if err != nil {
		return nil, err
	}

	job.Status = models.JobStatus(status)
	if resultsCount.Valid {
		n := int(resultsCount.Int64)
		job.ResultsCount = &n
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
