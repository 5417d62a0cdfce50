// Package redisstore implements the persistence ports on Redis. Each
// record type lives in one hash keyed by ID, with JSON values; updates are
// optimistic read-modify-write transactions on that hash.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// maxTxRetries bounds optimistic retries when a watched hash changes.
const maxTxRetries = 10

// Store is a Redis-backed store. The client is shared and owned by the
// caller.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New wraps rdb; keys are namespaced under prefix.
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "coach"
	}
	return &Store{rdb: rdb, prefix: prefix, now: time.Now}
}

// Open parses a redis:// URL and returns a store over a new client.
func Open(url, prefix string) (*Store, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("op=redisstore.Open: %w", err)
	}
	rdb := redis.NewClient(opts)
	return New(rdb, prefix), rdb, nil
}

func (s *Store) key(kind string) string { return s.prefix + ":" + kind }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

// Resumes returns the résumé repository view of the store.
func (s *Store) Resumes() *ResumeRepo { return &ResumeRepo{s: s, key: s.key("resumes")} }

// Interviews returns the interview repository view of the store.
func (s *Store) Interviews() *InterviewRepo {
	return &InterviewRepo{s: s, key: s.key("interviews")}
}

// Settings returns the settings repository view of the store.
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s, key: s.key("settings")} }

func decode[T any](id, raw string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("%w: decode %s: %v", domain.ErrInternal, id, err)
	}
	return v, nil
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func get[T any](ctx context.Context, c hashGetter, key, id string) (T, error) {
	raw, err := c.HGet(ctx, key, id).Result()
	if errors.Is(err, redis.Nil) {
		var zero T
		return zero, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("op=redisstore.get: %w", err)
	}
	return decode[T](id, raw)
}

func list[T any](ctx context.Context, c redis.Cmdable, key string) ([]T, error) {
	rows, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("op=redisstore.list: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := decode[T](id, rows[id])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func create[T any](ctx context.Context, c redis.Cmdable, key, id string, v T) (T, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("%w: encode %s: %v", domain.ErrInternal, id, err)
	}
	ok, err := c.HSetNX(ctx, key, id, b).Result()
	if err != nil {
		return v, fmt.Errorf("op=redisstore.create: %w", err)
	}
	if !ok {
		return v, fmt.Errorf("%w: %s exists", domain.ErrConflict, id)
	}
	return decode[T](id, string(b))
}

// update reads, modifies and writes one record inside WATCH/MULTI so that
// concurrent writers to the same hash never lose each other's changes.
func update[T any](ctx context.Context, rdb redis.UniversalClient, key, id string, apply func(*T)) (T, error) {
	var out T
	txf := func(tx *redis.Tx) error {
		v, err := get[T](ctx, tx, key, id)
		if err != nil {
			return err
		}
		apply(&v)
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %v", domain.ErrInternal, id, err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, b)
			return nil
		}); err != nil {
			return err
		}
		out, err = decode[T](id, string(b))
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var zero T
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInternal) {
				return zero, err
			}
			return zero, fmt.Errorf("op=redisstore.update: %w", err)
		}
		return out, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %s changed concurrently", domain.ErrConflict, id)
}

func remove(ctx context.Context, c redis.Cmdable, key, id string) error {
	n, err := c.HDel(ctx, key, id).Result()
	if err != nil {
		return fmt.Errorf("op=redisstore.remove: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return nil
}

// ResumeRepo implements domain.ResumeRepository.
type ResumeRepo struct {
	s   *Store
	key string
}

func (r *ResumeRepo) List(ctx context.Context) ([]domain.Resume, error) {
	return list[domain.Resume](ctx, r.s.rdb, r.key)
}

func (r *ResumeRepo) Get(ctx context.Context, id string) (domain.Resume, error) {
	return get[domain.Resume](ctx, r.s.rdb, r.key, id)
}

func (r *ResumeRepo) Create(ctx context.Context, v domain.Resume) (domain.Resume, error) {
	v = domain.InitResume(v, r.s.now())
	return create(ctx, r.s.rdb, r.key, v.ID, v)
}

func (r *ResumeRepo) Update(ctx context.Context, id string, p domain.ResumePatch) (domain.Resume, error) {
	return update(ctx, r.s.rdb, r.key, id, p.Apply)
}

func (r *ResumeRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.s.rdb, r.key, id)
}

// InterviewRepo implements domain.InterviewRepository.
type InterviewRepo struct {
	s   *Store
	key string
}

func (r *InterviewRepo) List(ctx context.Context) ([]domain.Interview, error) {
	return list[domain.Interview](ctx, r.s.rdb, r.key)
}

func (r *InterviewRepo) Get(ctx context.Context, id string) (domain.Interview, error) {
	return get[domain.Interview](ctx, r.s.rdb, r.key, id)
}

func (r *InterviewRepo) Create(ctx context.Context, v domain.Interview) (domain.Interview, error) {
	v = domain.InitInterview(v, r.s.now())
	return create(ctx, r.s.rdb, r.key, v.ID, v)
}

func (r *InterviewRepo) Update(ctx context.Context, id string, p domain.InterviewPatch) (domain.Interview, error) {
	return update(ctx, r.s.rdb, r.key, id, p.Apply)
}

func (r *InterviewRepo) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.s.rdb, r.key, id)
}

// SettingsRepo implements domain.SettingsRepository.
type SettingsRepo struct {
	s   *Store
	key string
}

func (r *SettingsRepo) GetSetting(ctx context.Context, key string) (string, error) {
	v, err := r.s.rdb.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: setting %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("op=redisstore.GetSetting: %w", err)
	}
	return v, nil
}

func (r *SettingsRepo) PutSetting(ctx context.Context, key, value string) error {
	if err := r.s.rdb.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("op=redisstore.PutSetting: %w", err)
	}
	return nil
}
