package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestResumeRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Resumes()

	r, err := repo.Create(ctx, domain.Resume{Filename: "cv.txt", Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(5), r.Size)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	up, err := repo.Update(ctx, r.ID, domain.ResumePatch{Analysis: &domain.ResumeAnalysis{Summary: "ok"}})
	require.NoError(t, err)
	require.NotNil(t, up.Analysis)
	assert.Equal(t, "cv.txt", up.Filename)

	require.NoError(t, repo.Delete(ctx, r.ID))
	_, err = repo.Get(ctx, r.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, r.ID), domain.ErrNotFound))
}

func TestInterviewRepo_CreateInitializesAndListsInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Interviews()

	var ids []string
	for i := 0; i < 5; i++ {
		iv, err := repo.Create(ctx, domain.Interview{Position: "Backend Engineer", Status: domain.InterviewCompleted})
		require.NoError(t, err)
		assert.Equal(t, domain.InterviewPending, iv.Status)
		assert.Equal(t, 1, iv.CurrentStage)
		ids = append(ids, iv.ID)
	}
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, iv := range all {
		assert.Equal(t, ids[i], iv.ID)
	}
}

func TestInterviewRepo_UpdateMergesAndIsolates(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Interviews()
	iv, err := repo.Create(ctx, domain.Interview{Position: "p"})
	require.NoError(t, err)

	answers := map[string]string{"stage_1_0": "a"}
	up, err := repo.Update(ctx, iv.ID, domain.InterviewPatch{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, "p", up.Position)

	// Mutating the caller's map must not leak into the store.
	answers["stage_1_1"] = "b"
	up.Answers["stage_1_2"] = "c"
	got, err := repo.Get(ctx, iv.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"stage_1_0": "a"}, got.Answers)

	_, err = repo.Update(ctx, "missing", domain.InterviewPatch{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Settings()
	_, err := repo.GetSetting(ctx, domain.SettingAPIKey)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	require.NoError(t, repo.PutSetting(ctx, domain.SettingAPIKey, "k"))
	v, err := repo.GetSetting(ctx, domain.SettingAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "k", v)
}
