// Package memory provides an in-process Persistence Gateway. Records are
// stored JSON-encoded, so callers never share mutable state with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Store holds résumés, interviews and settings in memory.
type Store struct {
	mu         sync.RWMutex
	resumes    map[string][]byte
	interviews map[string][]byte
	settings   map[string]string
	now        func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		resumes:    map[string][]byte{},
		interviews: map[string][]byte{},
		settings:   map[string]string{},
		now:        time.Now,
	}
}

// Resumes returns the résumé repository view of the store.
func (s *Store) Resumes() *ResumeRepo { return &ResumeRepo{s: s} }

// Interviews returns the interview repository view of the store.
func (s *Store) Interviews() *InterviewRepo { return &InterviewRepo{s: s} }

// Settings returns the settings repository view of the store.
func (s *Store) Settings() *SettingsRepo { return &SettingsRepo{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func load[T any](rows map[string][]byte, id string) (T, error) {
	var v T
	b, ok := rows[id]
	if !ok {
		return v, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("%w: decode %s: %v", domain.ErrInternal, id, err)
	}
	return v, nil
}

func list[T any](rows map[string][]byte) ([]T, error) {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := load[T](rows, id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func save(rows map[string][]byte, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrInternal, id, err)
	}
	rows[id] = b
	return nil
}

func remove(rows map[string][]byte, id string) error {
	if _, ok := rows[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	delete(rows, id)
	return nil
}

// ResumeRepo implements domain.ResumeRepository.
type ResumeRepo struct{ s *Store }

func (r *ResumeRepo) List(context.Context) ([]domain.Resume, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return list[domain.Resume](r.s.resumes)
}

func (r *ResumeRepo) Get(_ context.Context, id string) (domain.Resume, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return load[domain.Resume](r.s.resumes, id)
}

func (r *ResumeRepo) Create(_ context.Context, v domain.Resume) (domain.Resume, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v = domain.InitResume(v, r.s.now())
	if err := save(r.s.resumes, v.ID, v); err != nil {
		return domain.Resume{}, err
	}
	return load[domain.Resume](r.s.resumes, v.ID)
}

func (r *ResumeRepo) Update(_ context.Context, id string, p domain.ResumePatch) (domain.Resume, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, err := load[domain.Resume](r.s.resumes, id)
	if err != nil {
		return domain.Resume{}, err
	}
	p.Apply(&v)
	if err := save(r.s.resumes, id, v); err != nil {
		return domain.Resume{}, err
	}
	return load[domain.Resume](r.s.resumes, id)
}

func (r *ResumeRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return remove(r.s.resumes, id)
}

// InterviewRepo implements domain.InterviewRepository.
type InterviewRepo struct{ s *Store }

func (r *InterviewRepo) List(context.Context) ([]domain.Interview, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return list[domain.Interview](r.s.interviews)
}

func (r *InterviewRepo) Get(_ context.Context, id string) (domain.Interview, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return load[domain.Interview](r.s.interviews, id)
}

func (r *InterviewRepo) Create(_ context.Context, v domain.Interview) (domain.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v = domain.InitInterview(v, r.s.now())
	if err := save(r.s.interviews, v.ID, v); err != nil {
		return domain.Interview{}, err
	}
	return load[domain.Interview](r.s.interviews, v.ID)
}

func (r *InterviewRepo) Update(_ context.Context, id string, p domain.InterviewPatch) (domain.Interview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, err := load[domain.Interview](r.s.interviews, id)
	if err != nil {
		return domain.Interview{}, err
	}
	p.Apply(&v)
	if err := save(r.s.interviews, id, v); err != nil {
		return domain.Interview{}, err
	}
	return load[domain.Interview](r.s.interviews, id)
}

func (r *InterviewRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return remove(r.s.interviews, id)
}

// SettingsRepo implements domain.SettingsRepository.
type SettingsRepo struct{ s *Store }

func (r *SettingsRepo) GetSetting(_ context.Context, key string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.settings[key]
	if !ok {
		return "", fmt.Errorf("%w: setting %s", domain.ErrNotFound, key)
	}
	return v, nil
}

func (r *SettingsRepo) PutSetting(_ context.Context, key, value string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.settings[key] = value
	return nil
}
