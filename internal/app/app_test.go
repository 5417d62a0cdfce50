package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

var scoreInAnswer = regexp.MustCompile(`Candidate answer: score=(\d+)`)

// fakeModel answers each prompt kind the way a cooperative model would.
type fakeModel struct{ questions int32 }

func (m *fakeModel) reply(req domain.CompletionRequest) stub.Reply {
	user := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(user, "analyze the résumé below"):
		return stub.Reply{Text: `{"summary": "Backend engineer", "skills": {"programming_languages": ["Go", "SQL"], "frameworks": ["chi"]}, "projects": [{"name": "billing", "description": "payments"}]}`}
	case strings.Contains(user, "Evaluate this interview answer"):
		score := "60"
		if sm := scoreInAnswer.FindStringSubmatch(user); sm != nil {
			score = sm[1]
		}
		return stub.Reply{Text: fmt.Sprintf(`{"score": %s, "feedback": "noted", "strengths": ["clear"], "improvements": []}`, score)}
	case strings.Contains(user, "follow-up question"):
		return stub.Reply{Text: `{"followup_question": "What would you change?", "hint": "think about failure modes"}`}
	case strings.Contains(user, `"key_points"`):
		n := atomic.AddInt32(&m.questions, 1)
		return stub.Reply{Text: fmt.Sprintf(`{"question": "Question %d?", "type": "basic", "difficulty": "medium", "time_limit": 180, "key_points": ["point %d"]}`, n, n)}
	}
	return stub.Reply{Err: stub.ErrNoScript}
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) call(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	require.Equal(c.t, wantStatus, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func newTestApp(t *testing.T) (client, *stub.Completer) {
	t.Helper()
	cfg := config.Config{StoreDriver: config.StoreMemory, MinAnswerLength: 10, MaxUploadMB: 1}
	stores, err := OpenStores(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(stores.Close)
	llm := stub.New()
	llm.Func = (&fakeModel{}).reply
	a, err := Build(cfg, stores, llm)
	require.NoError(t, err)
	return client{t: t, h: a.Handler}, llm
}

func uploadResume(t *testing.T, h http.Handler) usecase.UploadResult {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "jane.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("Jane Doe\nBackend engineer. Go, SQL, chi.\nBuilt the billing platform.\n"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out usecase.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func score(n int) map[string]string {
	return map[string]string{"answer": fmt.Sprintf("score=%d and here is my reasoning", n)}
}

func TestInterviewFlowOverHTTP(t *testing.T) {
	c, _ := newTestApp(t)

	up := uploadResume(t, c.h)
	require.NotNil(t, up.Resume.Analysis)

	var iv domain.Interview
	c.call(http.MethodPost, "/v1/interviews", map[string]any{
		"resume_id": up.Resume.ID, "position": "Backend Engineer", "company_name": "Acme", "is_technical": true,
	}, http.StatusCreated, &iv)
	assert.Equal(t, []string{"Go", "SQL", "chi"}, iv.Skills)
	base := "/v1/interviews/" + iv.ID

	var started domain.Interview
	c.call(http.MethodPost, base+"/start", nil, http.StatusOK, &started)
	assert.Equal(t, domain.InterviewInProgress, started.Status)
	var cq usecase.CurrentQuestion
	c.call(http.MethodGet, base+"/question", nil, http.StatusOK, &cq)
	assert.Equal(t, "stage_1_0", cq.AnswerKey)
	assert.Equal(t, "Question 1?", cq.Question.Question)

	// Q1: a strong answer earns a deep dive; answering it adds a bonus.
	var ans usecase.AnswerOutcome
	c.call(http.MethodPost, base+"/answer", score(85), http.StatusOK, &ans)
	require.NotNil(t, ans.FollowUp)
	assert.Equal(t, domain.FollowUpDeepDive, ans.FollowUp.Type)
	assert.Equal(t, usecase.NextFollowUp, ans.Next)
	c.call(http.MethodPost, base+"/advance", nil, http.StatusConflict, nil)

	var fu usecase.FollowUpOutcome
	c.call(http.MethodPost, base+"/followup", score(95), http.StatusOK, &fu)
	assert.Equal(t, 19, fu.Bonus)
	assert.Equal(t, 100, fu.TotalScore)
	assert.Equal(t, usecase.NextQuestion, fu.Next)

	var adv usecase.AdvanceOutcome
	c.call(http.MethodPost, base+"/advance", nil, http.StatusOK, &adv)
	require.NotNil(t, adv.Question)
	assert.Equal(t, "stage_1_1", adv.Question.AnswerKey)

	// Q2: a middling answer gets a hint, which is skipped.
	var hinted usecase.AnswerOutcome
	c.call(http.MethodPost, base+"/answer", score(70), http.StatusOK, &hinted)
	require.NotNil(t, hinted.FollowUp)
	assert.Equal(t, domain.FollowUpHint, hinted.FollowUp.Type)
	var afterSkip domain.Interview
	c.call(http.MethodPost, base+"/followup/skip", nil, http.StatusOK, &afterSkip)
	assert.Nil(t, afterSkip.PendingFollowUp)
	var toQ3 usecase.AdvanceOutcome
	c.call(http.MethodPost, base+"/advance", nil, http.StatusOK, &toQ3)
	require.NotNil(t, toQ3.Question)
	assert.Equal(t, "stage_1_2", toQ3.Question.AnswerKey)

	// Q3 is skipped, which moves on to stage 2.
	var skipped usecase.AdvanceOutcome
	c.call(http.MethodPost, base+"/skip", nil, http.StatusOK, &skipped)
	require.NotNil(t, skipped.Question)
	assert.Equal(t, "stage_2_0", skipped.Question.AnswerKey)

	var last usecase.AdvanceOutcome
	for i := 0; i < 6; i++ {
		var strong usecase.AnswerOutcome
		c.call(http.MethodPost, base+"/answer", score(95), http.StatusOK, &strong)
		assert.Nil(t, strong.FollowUp, "answer %d", i)
		assert.NotEqual(t, usecase.NextFollowUp, strong.Next, "answer %d", i)
		last = usecase.AdvanceOutcome{}
		c.call(http.MethodPost, base+"/advance", nil, http.StatusOK, &last)
	}
	adv = last
	assert.True(t, adv.Completed)
	assert.Equal(t, domain.InterviewCompleted, adv.Interview.Status)
	require.NotNil(t, adv.Interview.Score)
	assert.Equal(t, 81, *adv.Interview.Score)

	var rep usecase.Report
	c.call(http.MethodGet, base+"/report", nil, http.StatusOK, &rep)
	assert.Equal(t, 81, rep.Score)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.FollowUps)
	assert.Equal(t, 19, rep.BonusTotal)

	c.call(http.MethodPost, base+"/start", nil, http.StatusConflict, nil)
	c.call(http.MethodPost, base+"/answer", score(95), http.StatusConflict, nil)

	var list struct {
		Interviews []domain.Interview `json:"interviews"`
	}
	c.call(http.MethodGet, "/v1/interviews", nil, http.StatusOK, &list)
	assert.Len(t, list.Interviews, 1)
	c.call(http.MethodDelete, base, nil, http.StatusNoContent, nil)
	c.call(http.MethodGet, base, nil, http.StatusNotFound, nil)
}

func TestLookupsOverHTTP(t *testing.T) {
	c, llm := newTestApp(t)

	llm.EnqueueText("You will meet two engineers from Acme.")
	var sc map[string]string
	c.call(http.MethodPost, "/v1/lookups/scenario", map[string]string{"position": "SRE", "company_name": "Acme"}, http.StatusOK, &sc)
	assert.Equal(t, "You will meet two engineers from Acme.", sc["scenario"])

	llm.EnqueueText("not json")
	var ex map[string]any
	c.call(http.MethodPost, "/v1/lookups/experience", map[string]string{"company_name": "Acme", "position": "SRE"}, http.StatusOK, &ex)
	assert.Nil(t, ex["experience"])

	c.call(http.MethodPost, "/v1/lookups/experience", map[string]string{"company_name": "Acme"}, http.StatusBadRequest, nil)
}

func TestSystemEndpoints(t *testing.T) {
	c, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var ready struct {
		Checks []struct {
			Name string `json:"name"`
			OK   bool   `json:"ok"`
		} `json:"checks"`
	}
	c.call(http.MethodGet, "/readyz", nil, http.StatusOK, &ready)
	require.Len(t, ready.Checks, 1)
	assert.Equal(t, "store", ready.Checks[0].Name)

	rec = httptest.NewRecorder()
	c.h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c.call(http.MethodGet, "/v1/nope", nil, http.StatusNotFound, nil)
}
