// Package postgres provides PostgreSQL database adapters.
//
// Résumés and interviews are stored as one JSONB document per row; updates
// merge only the patched top-level fields into the stored document.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

//go:embed schema.sql
var schema string

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("op=postgres.Migrate: %w", err)
	}
	return nil
}

// table runs the document queries for one record type.
type table[T any] struct {
	pool PgxPool
	name string
	now  func() time.Time
}

func (t table[T]) span(ctx context.Context, op string) (context.Context, func()) {
	ctx, span := otel.Tracer("repo."+t.name).Start(ctx, t.name+"."+op)
	span.SetAttributes(attribute.String("db.table", t.name))
	return ctx, func() { span.End() }
}

func (t table[T]) decode(id string, raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: decode %s: %v", domain.ErrInternal, id, err)
	}
	return v, nil
}

func (t table[T]) list(ctx context.Context) ([]T, error) {
	ctx, end := t.span(ctx, "List")
	defer end()
	q := fmt.Sprintf(`SELECT COALESCE(jsonb_agg(data ORDER BY id), '[]'::jsonb) FROM %s`, t.name)
	var raw []byte
	if err := t.pool.QueryRow(ctx, q).Scan(&raw); err != nil {
		return nil, fmt.Errorf("op=%s.list: %w", t.name, err)
	}
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInternal, t.name, err)
	}
	return out, nil
}

func (t table[T]) get(ctx context.Context, id string) (T, error) {
	ctx, end := t.span(ctx, "Get")
	defer end()
	q := fmt.Sprintf(`SELECT data FROM %s WHERE id=$1`, t.name)
	var raw []byte
	if err := t.pool.QueryRow(ctx, q, id).Scan(&raw); err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("op=%s.get: %w: %s", t.name, domain.ErrNotFound, id)
		}
		return zero, fmt.Errorf("op=%s.get: %w", t.name, err)
	}
	return t.decode(id, raw)
}

func (t table[T]) create(ctx context.Context, id string, createdAt time.Time, v T) (T, error) {
	ctx, end := t.span(ctx, "Create")
	defer end()
	b, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("%w: encode %s: %v", domain.ErrInternal, id, err)
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, data, created_at) VALUES ($1, $2::jsonb, $3)`, t.name)
	if _, err := t.pool.Exec(ctx, q, id, string(b), createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return v, fmt.Errorf("op=%s.create: %w: %s exists", t.name, domain.ErrConflict, id)
		}
		return v, fmt.Errorf("op=%s.create: %w", t.name, err)
	}
	return t.decode(id, b)
}

// update merges fields into the stored document in a single statement.
func (t table[T]) update(ctx context.Context, id string, fields map[string]any) (T, error) {
	ctx, end := t.span(ctx, "Update")
	defer end()
	var zero T
	b, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("%w: encode patch %s: %v", domain.ErrInternal, id, err)
	}
	q := fmt.Sprintf(`UPDATE %s SET data = data || $2::jsonb WHERE id=$1 RETURNING data`, t.name)
	var raw []byte
	if err := t.pool.QueryRow(ctx, q, id, string(b)).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, fmt.Errorf("op=%s.update: %w: %s", t.name, domain.ErrNotFound, id)
		}
		return zero, fmt.Errorf("op=%s.update: %w", t.name, err)
	}
	return t.decode(id, raw)
}

func (t table[T]) remove(ctx context.Context, id string) error {
	ctx, end := t.span(ctx, "Delete")
	defer end()
	tag, err := t.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1`, t.name), id)
	if err != nil {
		return fmt.Errorf("op=%s.delete: %w", t.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=%s.delete: %w: %s", t.name, domain.ErrNotFound, id)
	}
	return nil
}

// ResumeRepo implements domain.ResumeRepository.
type ResumeRepo struct{ t table[domain.Resume] }

// NewResumeRepo constructs a ResumeRepo with the given pool.
func NewResumeRepo(p PgxPool) *ResumeRepo {
	return &ResumeRepo{t: table[domain.Resume]{pool: p, name: "resumes", now: time.Now}}
}

func (r *ResumeRepo) List(ctx domain.Context) ([]domain.Resume, error) { return r.t.list(ctx) }

func (r *ResumeRepo) Get(ctx domain.Context, id string) (domain.Resume, error) {
	return r.t.get(ctx, id)
}

func (r *ResumeRepo) Create(ctx domain.Context, v domain.Resume) (domain.Resume, error) {
	v = domain.InitResume(v, r.t.now())
	return r.t.create(ctx, v.ID, v.CreatedAt, v)
}

func (r *ResumeRepo) Update(ctx domain.Context, id string, p domain.ResumePatch) (domain.Resume, error) {
	return r.t.update(ctx, id, p.Fields())
}

func (r *ResumeRepo) Delete(ctx domain.Context, id string) error { return r.t.remove(ctx, id) }

// InterviewRepo implements domain.InterviewRepository.
type InterviewRepo struct{ t table[domain.Interview] }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo {
	return &InterviewRepo{t: table[domain.Interview]{pool: p, name: "interviews", now: time.Now}}
}

func (r *InterviewRepo) List(ctx domain.Context) ([]domain.Interview, error) { return r.t.list(ctx) }

func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	return r.t.get(ctx, id)
}

func (r *InterviewRepo) Create(ctx domain.Context, v domain.Interview) (domain.Interview, error) {
	v = domain.InitInterview(v, r.t.now())
	return r.t.create(ctx, v.ID, v.CreatedAt, v)
}

func (r *InterviewRepo) Update(ctx domain.Context, id string, p domain.InterviewPatch) (domain.Interview, error) {
	return r.t.update(ctx, id, p.Fields())
}

func (r *InterviewRepo) Delete(ctx domain.Context, id string) error { return r.t.remove(ctx, id) }

// SettingsRepo implements domain.SettingsRepository.
type SettingsRepo struct{ Pool PgxPool }

// NewSettingsRepo constructs a SettingsRepo with the given pool.
func NewSettingsRepo(p PgxPool) *SettingsRepo { return &SettingsRepo{Pool: p} }

func (r *SettingsRepo) GetSetting(ctx domain.Context, key string) (string, error) {
	var v string
	if err := r.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("op=settings.get: %w: setting %s", domain.ErrNotFound, key)
		}
		return "", fmt.Errorf("op=settings.get: %w", err)
	}
	return v, nil
}

func (r *SettingsRepo) PutSetting(ctx domain.Context, key, value string) error {
	q := `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
	 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.Pool.Exec(ctx, q, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("op=settings.put: %w", err)
	}
	return nil
}
