package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "test"), mr
}

func TestResumeRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)
	repo := st.Resumes()

	r, err := repo.Create(ctx, domain.Resume{Filename: "cv.txt", Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(5), r.Size)
	assert.True(t, mr.Exists("test:resumes"))
	assert.NotEmpty(t, mr.HGet("test:resumes", r.ID))

	up, err := repo.Update(ctx, r.ID, domain.ResumePatch{Analysis: &domain.ResumeAnalysis{Summary: "ok"}})
	require.NoError(t, err)
	require.NotNil(t, up.Analysis)
	assert.Equal(t, "ok", up.Analysis.Summary)

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, up, got)

	require.NoError(t, repo.Delete(ctx, r.ID))
	_, err = repo.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, r.ID), domain.ErrNotFound))
	_, err = repo.Update(ctx, r.ID, domain.ResumePatch{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestInterviewRepo_ListInCreationOrder(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	repo := st.Interviews()

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	var ids []string
	for i := 0; i < 4; i++ {
		iv, err := repo.Create(ctx, domain.Interview{Position: "p"})
		require.NoError(t, err)
		assert.Len(t, iv.Questions, domain.StageCount)
		ids = append(ids, iv.ID)
	}
	all, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, iv := range all {
		assert.Equal(t, ids[i], iv.ID)
	}
}

func TestInterviewRepo_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	repo := st.Interviews()
	iv, err := repo.Create(ctx, domain.Interview{Position: "p", CompanyName: "Acme"})
	require.NoError(t, err)

	pf := &domain.PendingFollowUp{AnswerKey: "stage_1_0", FollowUp: domain.FollowUp{Type: domain.FollowUpHint, Question: "why?"}}
	up, err := repo.Update(ctx, iv.ID, domain.InterviewPatch{
		Answers:         map[string]string{"stage_1_0": "a"},
		PendingFollowUp: pf,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", up.CompanyName)
	require.NotNil(t, up.PendingFollowUp)

	up, err = repo.Update(ctx, iv.ID, domain.InterviewPatch{ClearFollowUp: true})
	require.NoError(t, err)
	assert.Nil(t, up.PendingFollowUp)
	assert.Equal(t, "a", up.Answers["stage_1_0"])
}

func TestInterviewRepo_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)
	repo := st.Interviews()
	a, err := repo.Create(ctx, domain.Interview{Position: "a"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, domain.Interview{Position: "b"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(stage int, id string) {
			defer wg.Done()
			_, err := repo.Update(ctx, id, domain.InterviewPatch{CurrentStage: &stage})
			assert.NoError(t, err)
		}(i+2, id)
	}
	wg.Wait()

	gotA, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotA.CurrentStage)
	assert.Equal(t, 3, gotB.CurrentStage)
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)
	mr.HSet("test:interviews", "bad", "{not json")
	_, err := st.Interviews().Get(ctx, "bad")
	assert.True(t, errors.Is(err, domain.ErrInternal))
	_, err = st.Interviews().List(ctx)
	assert.True(t, errors.Is(err, domain.ErrInternal))
}

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)
	repo := st.Settings()
	_, err := repo.GetSetting(ctx, domain.SettingAPIKey)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.PutSetting(ctx, domain.SettingAPIKey, "k1"))
	require.NoError(t, repo.PutSetting(ctx, domain.SettingAPIKey, "k2"))
	v, err := repo.GetSetting(ctx, domain.SettingAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "k2", v)
	assert.Equal(t, "k2", mr.HGet("test:settings", domain.SettingAPIKey))
}

func TestPingAndOpen(t *testing.T) {
	st, mr := newTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
	mr.Close()
	assert.Error(t, st.Ping(context.Background()))

	_, _, err := Open("not a url", "x")
	assert.Error(t, err)
}
