package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type fixedPositions struct{}

func (fixedPositions) Lookup(position string) domain.JDAnalysis {
	return domain.JDAnalysis{
		KeyRequirements: domain.LooseList{"default for " + position},
		ExperienceLevel: "any",
		Highlights:      domain.LooseList{},
	}
}

func userMessage(req domain.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}

var scoreInAnswer = regexp.MustCompile(`Candidate answer: score=(\d+)`)

// interviewer answers like a well-behaved model: numbered questions, a
// score read from the answer text ("score=NN ..."), and follow-ups.
type interviewer struct {
	questions     int32
	failQuestions atomic.Bool
}

func (iw *interviewer) reply(req domain.CompletionRequest) stub.Reply {
	user := userMessage(req)
	switch {
	case strings.Contains(user, "Evaluate this interview answer"):
		score := "70"
		if m := scoreInAnswer.FindStringSubmatch(user); m != nil {
			score = m[1]
		}
		return stub.Reply{Text: fmt.Sprintf("```json\n{\"score\": %s, \"feedback\": \"ok\", \"strengths\": [\"clear\"], \"improvements\": [\"depth\"]}\n```", score)}
	case strings.Contains(user, "follow-up question"):
		return stub.Reply{Text: `{"followup_question": "Can you go deeper?", "hint": "think about edge cases", "type": "something else"}`}
	case strings.Contains(user, `"key_points"`):
		if iw.failQuestions.Load() {
			return stub.Reply{Err: &domain.APIError{StatusCode: 500, Message: "down"}}
		}
		n := atomic.AddInt32(&iw.questions, 1)
		return stub.Reply{Text: fmt.Sprintf(`{"question": "Question %d", "key_points": ["k%d"]}`, n, n)}
	}
	return stub.Reply{Err: stub.ErrNoScript}
}

type fixture struct {
	store *memory.Store
	llm   *stub.Completer
	iw    *interviewer
	svc   InterviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.NewStore()
	iw := &interviewer{}
	llm := stub.New()
	llm.Func = iw.reply
	ai := NewAssistant(llm, fixedPositions{})
	return &fixture{
		store: st,
		llm:   llm,
		iw:    iw,
		svc:   NewInterviewService(st.Interviews(), st.Resumes(), ai, 10),
	}
}

func (f *fixture) resume(t *testing.T, analysis *domain.ResumeAnalysis) domain.Resume {
	t.Helper()
	r, err := f.store.Resumes().Create(context.Background(), domain.Resume{Filename: "cv.txt", Content: "text"})
	require.NoError(t, err)
	if analysis != nil {
		r, err = f.store.Resumes().Update(context.Background(), r.ID, domain.ResumePatch{Analysis: analysis})
		require.NoError(t, err)
	}
	return r
}

// started creates a technical interview, starts it and loads question 1.
func (f *fixture) started(t *testing.T) domain.Interview {
	t.Helper()
	ctx := context.Background()
	r := f.resume(t, &domain.ResumeAnalysis{Summary: "Go developer"})
	iv, err := f.svc.Create(ctx, CreateInterviewInput{ResumeID: r.ID, Position: "Backend Engineer", CompanyName: "Acme", IsTechnical: true})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, iv.ID)
	require.NoError(t, err)
	_, err = f.svc.LoadQuestion(ctx, iv.ID)
	require.NoError(t, err)
	return iv
}

func answerWithScore(score int) string {
	return fmt.Sprintf("score=%d because I explained it carefully", score)
}
