package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Postgres persists documents and the call journal to PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// Open connects to PostgreSQL at connStr, retrying the first ping while the
// database comes up, and applies pending migrations.
func Open(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("store open: %w", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	err = backoff.Retry(func() error {
		pingErr := db.PingContext(ctx)
		if pingErr != nil {
			slog.Warn("store ping failed", "error", pingErr)
		}
		return pingErr
	}, b)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store ping: %w", err)
	}

	if err = migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.ExecContext(ctx, string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
		slog.Info("store migration applied", "version", i, "file", entries[i].Name())
	}
	return nil
}

// Close closes the database.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const interviewColumns = `id, user_id, role, type, level, techstack, questions,
	resume_improvements, raw_ai_response, finalized, cover_image, created_at`

func (p *Postgres) CreateInterview(ctx context.Context, iv *Interview) error {
	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO interviews (`+interviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8::jsonb, $9, $10, $11, $12)`,
		iv.ID, iv.UserID, iv.Role, iv.Type, iv.Level,
		jsonList(iv.TechStack), jsonList(iv.Questions), jsonList(iv.ResumeImprovements),
		iv.RawAIResponse, iv.Finalized, iv.CoverImage, iv.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

func (p *Postgres) Interview(ctx context.Context, id string) (*Interview, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

func (p *Postgres) InterviewsByUser(ctx context.Context, userID string) ([]Interview, error) {
	return p.queryInterviews(ctx, `
		SELECT `+interviewColumns+` FROM interviews
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
}

func (p *Postgres) LatestInterviews(ctx context.Context, excludeUserID string, limit int) ([]Interview, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	return p.queryInterviews(ctx, `
		SELECT `+interviewColumns+` FROM interviews
		WHERE finalized = TRUE AND user_id <> $1
		ORDER BY created_at DESC
		LIMIT $2`, excludeUserID, limit)
}

func (p *Postgres) queryInterviews(ctx context.Context, query string, args ...any) ([]Interview, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	out := []Interview{}
	for rows.Next() {
		iv, scanErr := scanInterview(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan interview: %w", scanErr)
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInterview(row scanner) (*Interview, error) {
	var iv Interview
	var techstack, questions, improvements []byte
	err := row.Scan(&iv.ID, &iv.UserID, &iv.Role, &iv.Type, &iv.Level,
		&techstack, &questions, &improvements,
		&iv.RawAIResponse, &iv.Finalized, &iv.CoverImage, &iv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err = decodeLists(
		listField{techstack, &iv.TechStack},
		listField{questions, &iv.Questions},
		listField{improvements, &iv.ResumeImprovements},
	); err != nil {
		return nil, err
	}
	return &iv, nil
}

func (p *Postgres) SaveFeedback(ctx context.Context, fb *Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	scores, err := json.Marshal(nonNil(fb.CategoryScores))
	if err != nil {
		return fmt.Errorf("encode category scores: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO feedback (id, interview_id, user_id, total_score, category_scores,
			strengths, areas_for_improvement, final_assessment, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			interview_id = EXCLUDED.interview_id,
			user_id = EXCLUDED.user_id,
			total_score = EXCLUDED.total_score,
			category_scores = EXCLUDED.category_scores,
			strengths = EXCLUDED.strengths,
			areas_for_improvement = EXCLUDED.areas_for_improvement,
			final_assessment = EXCLUDED.final_assessment,
			created_at = EXCLUDED.created_at`,
		fb.ID, fb.InterviewID, fb.UserID, fb.TotalScore, string(scores),
		jsonList(fb.Strengths), jsonList(fb.AreasForImprovement), fb.FinalAssessment, fb.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

func (p *Postgres) FeedbackByInterview(ctx context.Context, interviewID, userID string) (*Feedback, error) {
	var fb Feedback
	var scores, strengths, areas []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT id, interview_id, user_id, total_score, category_scores, strengths,
			areas_for_improvement, final_assessment, created_at
		FROM feedback
		WHERE interview_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT 1`, interviewID, userID,
	).Scan(&fb.ID, &fb.InterviewID, &fb.UserID, &fb.TotalScore, &scores, &strengths,
		&areas, &fb.FinalAssessment, &fb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	if err = json.Unmarshal(scores, &fb.CategoryScores); err != nil {
		return nil, fmt.Errorf("decode category scores: %w", err)
	}
	if err = decodeLists(listField{strengths, &fb.Strengths}, listField{areas, &fb.AreasForImprovement}); err != nil {
		return nil, err
	}
	return &fb, nil
}

// CreateCall inserts a call and prunes the oldest beyond maxCalls.
func (p *Postgres) CreateCall(ctx context.Context, c Call) error {
	if c.StartedAt.IsZero() {
		c.StartedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO calls (id, user_id, mode, interview_id, started_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Mode, c.InterviewID, c.StartedAt.UTC(),
	)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`DELETE FROM calls WHERE id NOT IN (SELECT id FROM calls ORDER BY started_at DESC LIMIT $1)`,
		maxCalls,
	)
	return err
}

// EndCall sets ended_at and, when known, the interview the call produced.
func (p *Postgres) EndCall(ctx context.Context, id, interviewID string) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE calls SET ended_at = $1,
			interview_id = CASE WHEN $2 = '' THEN interview_id ELSE $2 END
		WHERE id = $3`,
		time.Now().UTC(), interviewID, id,
	)
	return err
}

func (p *Postgres) RecordEvent(ctx context.Context, ev CallEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.RecordedAt.IsZero() {
		ev.RecordedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO call_events (id, call_id, kind, detail, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.CallID, ev.Kind, ev.Detail, ev.RecordedAt.UTC(),
	)
	return err
}

// ListCalls returns calls newest first, with event counts.
func (p *Postgres) ListCalls(ctx context.Context, limit, offset int) ([]Call, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.mode, c.interview_id, c.started_at, c.ended_at, COUNT(e.id)
		FROM calls c
		LEFT JOIN call_events e ON e.call_id = c.id
		GROUP BY c.id
		ORDER BY c.started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		var c Call
		var endedAt sql.NullTime
		if err = rows.Scan(&c.ID, &c.UserID, &c.Mode, &c.InterviewID, &c.StartedAt, &endedAt, &c.EventCount); err != nil {
			return nil, 0, err
		}
		if endedAt.Valid {
			c.EndedAt = &endedAt.Time
		}
		calls = append(calls, c)
	}
	return calls, total, rows.Err()
}

func (p *Postgres) CallEvents(ctx context.Context, callID string) ([]CallEvent, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, call_id, kind, detail, recorded_at FROM call_events WHERE call_id = $1 ORDER BY recorded_at ASC`,
		callID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CallEvent
	for rows.Next() {
		var ev CallEvent
		if err = rows.Scan(&ev.ID, &ev.CallID, &ev.Kind, &ev.Detail, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type listField struct {
	raw []byte
	dst *[]string
}

func decodeLists(fields ...listField) error {
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
	}
	return nil
}

func jsonList(items []string) string {
	data, _ := json.Marshal(nonNil(items))
	return string(data)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
