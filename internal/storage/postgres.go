/**
 * PostgreSQL Client for the OCR worker
 *
 * Persists one row per OCR job: its status, the recognized text and, for
 * failed jobs, the structured error.
 */

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Job statuses shared by the database row and the Redis status sets
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db     *sql.DB
	schema string
}

// JobUpdate represents a job status update
type JobUpdate struct {
	JobID            string
	Status           string
	UserID           string
	ImagePath        string
	Text             string
	WordCount        int
	CharCount        int
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	OCRKind          string
	Metadata         map[string]interface{}
}

// Job is a stored OCR job row
type Job struct {
	ID               string
	UserID           string
	ImagePath        string
	Status           string
	Text             string
	WordCount        int
	CharCount        int
	ProcessingTimeMs int64
	ErrorCode        string
	ErrorMessage     string
	OCRKind          string
	Metadata         map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewPostgresClient creates a new PostgreSQL client and checks connectivity
func NewPostgresClient(databaseURL, schema string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if schema == "" {
		schema = "public"
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db, schema: schema}, nil
}

// EnsureSchema creates the schema and the jobs table when missing
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pq.QuoteIdentifier(p.schema)),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id                 UUID PRIMARY KEY,
				user_id            TEXT NOT NULL DEFAULT 'anonymous',
				image_path         TEXT NOT NULL DEFAULT '',
				status             TEXT NOT NULL,
				text               TEXT,
				word_count         INTEGER,
				char_count         INTEGER,
				processing_time_ms BIGINT,
				error_code         TEXT,
				error_message      TEXT,
				ocr_kind           TEXT,
				metadata           JSONB NOT NULL DEFAULT '{}'::jsonb,
				created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, p.jobsTable()),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema %s: %w", p.schema, err)
		}
	}
	return nil
}

// UpdateJobStatus upserts the job row. Fields left empty keep their stored
// value, except the error columns which always follow the latest update.
func (p *PostgresClient) UpdateJobStatus(ctx context.Context, update *JobUpdate) error {
	if err := validateJobID(update.JobID); err != nil {
		return err
	}

	if update.Status == "" {
		return fmt.Errorf("status is required")
	}

	metadataJSON := []byte("{}")
	if update.Metadata != nil {
		raw, err := json.Marshal(update.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON, err = sanitizeJSONForPostgres(raw)
		if err != nil {
			return fmt.Errorf("failed to sanitize metadata: %w", err)
		}
	}

	table := p.jobsTable()
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (
			id, user_id, image_path, status, text, word_count, char_count,
			processing_time_ms, error_code, error_message, ocr_kind, metadata,
			created_at, updated_at
		) VALUES (
			$1::uuid, COALESCE(NULLIF($2, ''), 'anonymous'), $3, $4,
			NULLIF($5, ''), NULLIF($6, 0), NULLIF($7, 0), NULLIF($8, 0),
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''),
			$12::jsonb, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			user_id = CASE WHEN $2 = '' THEN %[1]s.user_id ELSE EXCLUDED.user_id END,
			image_path = COALESCE(NULLIF(EXCLUDED.image_path, ''), %[1]s.image_path),
			text = COALESCE(EXCLUDED.text, %[1]s.text),
			word_count = COALESCE(EXCLUDED.word_count, %[1]s.word_count),
			char_count = COALESCE(EXCLUDED.char_count, %[1]s.char_count),
			processing_time_ms = COALESCE(EXCLUDED.processing_time_ms, %[1]s.processing_time_ms),
			error_code = EXCLUDED.error_code,
			error_message = EXCLUDED.error_message,
			ocr_kind = EXCLUDED.ocr_kind,
			metadata = %[1]s.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING id
	`, table)

	var returnedID string
	err := p.db.QueryRowContext(
		ctx,
		query,
		update.JobID,                      // $1
		update.UserID,                     // $2
		update.ImagePath,                  // $3
		update.Status,                     // $4
		sanitizeText(update.Text),         // $5
		update.WordCount,                  // $6
		update.CharCount,                  // $7
		update.ProcessingTimeMs,           // $8
		update.ErrorCode,                  // $9
		sanitizeText(update.ErrorMessage), // $10
		update.OCRKind,                    // $11
		metadataJSON,                      // $12
	).Scan(&returnedID)

	if err == sql.ErrNoRows {
		return fmt.Errorf("job not found: %s", update.JobID)
	}

	if err != nil {
		return fmt.Errorf("failed to update job status (job=%s, status=%s): %w",
			update.JobID, update.Status, err)
	}

	return nil
}

// GetJobByID retrieves a job by ID
func (p *PostgresClient) GetJobByID(ctx context.Context, jobID string) (*Job, error) {
	if err := validateJobID(jobID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT
			id, user_id, image_path, status, text, word_count, char_count,
			processing_time_ms, error_code, error_message, ocr_kind, metadata,
			created_at, updated_at
		FROM %s
		WHERE id = $1::uuid
	`, p.jobsTable())

	var (
		job                              Job
		text, errorCode, errorMsg, kind  sql.NullString
		wordCount, charCount, processing sql.NullInt64
		metadataJSON                     []byte
	)

	err := p.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID, &job.UserID, &job.ImagePath, &job.Status, &text,
		&wordCount, &charCount, &processing, &errorCode, &errorMsg, &kind,
		&metadataJSON, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &job.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	job.Text = text.String
	job.WordCount = int(wordCount.Int64)
	job.CharCount = int(charCount.Int64)
	job.ProcessingTimeMs = processing.Int64
	job.ErrorCode = errorCode.String
	job.ErrorMessage = errorMsg.String
	job.OCRKind = kind.String

	return &job, nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}

func (p *PostgresClient) jobsTable() string {
	return jobsTable(p.schema)
}

func jobsTable(schema string) string {
	return pq.QuoteIdentifier(schema) + ".ocr_jobs"
}

func validateJobID(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if _, err := uuid.Parse(jobID); err != nil {
		return fmt.Errorf("job ID %q is not a UUID: %w", jobID, err)
	}
	return nil
}

// sanitizeText drops NUL bytes, which PostgreSQL TEXT columns reject.
// Recognized text can contain them when the engine misreads noise.
func sanitizeText(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// sanitizeJSONForPostgres rewrites a JSON document so JSONB accepts it:
// NUL characters are dropped from keys and strings and other control
// characters, except tab and line breaks, become a space. Numbers keep their
// original text.
func sanitizeJSONForPostgres(jsonBytes []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(sanitizeJSONValue(v))
}

func sanitizeJSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return sanitizeJSONString(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[sanitizeJSONString(k)] = sanitizeJSONValue(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = sanitizeJSONValue(item)
		}
		return val
	default:
		return v
	}
}

func sanitizeJSONString(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0:
			return -1
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return ' '
		}
		return r
	}, s)
}
