package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

const analysisJSON = `{"summary": "Backend developer", "skills": {"programming_languages": ["Go"]}}`

func newResumeService(llm *stub.Completer, x domain.TextExtractor) (ResumeService, *memory.Store) {
	st := memory.NewStore()
	svc := NewResumeService(st.Resumes(), x, NewAssistant(llm, fixedPositions{}))
	svc.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func TestUpload_Text(t *testing.T) {
	llm := stub.New().EnqueueText(analysisJSON)
	x := &fakeExtractor{}
	svc, _ := newResumeService(llm, x)

	res, err := svc.Upload(context.Background(), "dir/cv.TXT", []byte("  Jane Doe\nGo developer\n  "))
	require.NoError(t, err)
	assert.Empty(t, res.AnalysisError)
	assert.Equal(t, "cv.TXT", res.Resume.Filename)
	assert.Equal(t, "Jane Doe\nGo developer", res.Resume.Content)
	require.NotNil(t, res.Resume.Analysis)
	assert.Equal(t, "Backend developer", res.Resume.Analysis.Summary)
	assert.Zero(t, x.calls)
	assert.Contains(t, llm.LastUserMessage(), "Jane Doe\nGo developer")
}

func TestUpload_PDFUsesExtractor(t *testing.T) {
	llm := stub.New().EnqueueText(analysisJSON)
	x := &fakeExtractor{text: "  extracted text  "}
	svc, _ := newResumeService(llm, x)

	res, err := svc.Upload(context.Background(), "cv.pdf", []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, x.calls)
	assert.Equal(t, "extracted text", res.Resume.Content)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		x        *fakeExtractor
	}{
		{"unsupported extension", "cv.png", []byte("text"), &fakeExtractor{}},
		{"empty file", "cv.txt", nil, &fakeExtractor{}},
		{"pdf named txt", "cv.txt", []byte("%PDF-1.4\n"), &fakeExtractor{}},
		{"text named pdf", "cv.pdf", []byte("plain words"), &fakeExtractor{}},
		{"whitespace only", "cv.txt", []byte(" \n\t "), &fakeExtractor{}},
		{"nothing extracted", "cv.pdf", []byte("%PDF-1.4\n"), &fakeExtractor{text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := stub.New()
			svc, st := newResumeService(llm, tt.x)
			_, err := svc.Upload(context.Background(), tt.filename, tt.data)
			assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "got %v", err)
			assert.Zero(t, llm.Calls())
			all, err := st.Resumes().List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestUpload_ExtractorFailure(t *testing.T) {
	boom := errors.New("tika down")
	svc, _ := newResumeService(stub.New(), &fakeExtractor{err: boom})
	_, err := svc.Upload(context.Background(), "cv.pdf", []byte("%PDF-1.4\n"))
	assert.True(t, errors.Is(err, boom))
}

func TestUpload_KeepsResumeWhenNotConfigured(t *testing.T) {
	llm := stub.New().Enqueue(stub.Reply{Err: domain.ErrNotConfigured})
	svc, st := newResumeService(llm, nil)

	res, err := svc.Upload(context.Background(), "cv.txt", []byte("Jane Doe, Go developer"))
	require.NoError(t, err)
	assert.Contains(t, res.AnalysisError, "not configured")
	assert.Nil(t, res.Resume.Analysis)

	stored, err := st.Resumes().Get(context.Background(), res.Resume.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Analysis)

	llm.EnqueueText(analysisJSON)
	analyzed, err := svc.Analyze(context.Background(), res.Resume.ID)
	require.NoError(t, err)
	require.NotNil(t, analyzed.Analysis)
	assert.Equal(t, domain.LooseList{"Go"}, analyzed.Analysis.Skills.ProgrammingLanguages)
}

func TestOptimize(t *testing.T) {
	llm := stub.New()
	svc, st := newResumeService(llm, nil)
	ctx := context.Background()

	r, err := st.Resumes().Create(ctx, domain.Resume{Filename: "cv.txt", Content: "x"})
	require.NoError(t, err)

	_, err = svc.Optimize(ctx, r.ID, "  ", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	_, err = svc.Optimize(ctx, r.ID, "SRE", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = svc.Optimize(ctx, "missing", "SRE", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Zero(t, llm.Calls())

	_, err = st.Resumes().Update(ctx, r.ID, domain.ResumePatch{Analysis: &domain.ResumeAnalysis{Summary: "dev"}})
	require.NoError(t, err)

	llm.EnqueueText(`{"match_score": 70, "action_items": ["quantify results"]}`, `{"match_score": 80}`)
	first, err := svc.Optimize(ctx, r.ID, "SRE", "")
	require.NoError(t, err)
	assert.Equal(t, "SRE", first.TargetPosition)
	assert.Equal(t, 70, first.Suggestions.MatchScore)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), first.CreatedAt)

	_, err = svc.Optimize(ctx, r.ID, "Platform Engineer", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.Optimizations, 2)
	assert.Equal(t, "SRE", got.Optimizations[0].TargetPosition)
	assert.Equal(t, 80, got.Optimizations[1].Suggestions.MatchScore)

	llm.Enqueue(stub.Reply{Err: &domain.APIError{StatusCode: 500, Message: "x"}})
	_, err = svc.Optimize(ctx, r.ID, "SRE", "")
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	got, err = svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Optimizations, 2, "failed rounds are not recorded")
}

func TestResumeDelete(t *testing.T) {
	svc, st := newResumeService(stub.New(), nil)
	ctx := context.Background()
	r, err := st.Resumes().Create(ctx, domain.Resume{Filename: "cv.txt", Content: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, r.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, r.ID), domain.ErrNotFound))
}
