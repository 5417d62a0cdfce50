package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Fixed texts recorded for skipped questions.
const (
	SkippedAnswer         = "(skipped)"
	skippedFeedback       = "not answered"
	skippedImprovement    = "Answer the question fully"
	unansweredPlaceholder = "not answered"
	maxSkillSnapshot      = 10
)

// NextStep tells the client what follows an answer.
type NextStep string

const (
	NextFollowUp NextStep = "followup"
	NextQuestion NextStep = "next_question"
	NextStage    NextStep = "next_stage"
	NextComplete NextStep = "complete"
)

// CreateInterviewInput describes a new interview. CompanyInfo and
// JDAnalysis are usually the results of earlier lookups.
type CreateInterviewInput struct {
	ResumeID        string
	Position        string
	CompanyName     string
	JobRequirements string
	IsTechnical     bool
	CompanyInfo     *domain.CompanyInfo
	JDAnalysis      *domain.JDAnalysis
}

// CurrentQuestion is the question at the interview's current slot.
type CurrentQuestion struct {
	Stage     int             `json:"stage"`
	StageName string          `json:"stage_name"`
	Index     int             `json:"index"`
	AnswerKey string          `json:"answer_key"`
	Question  domain.Question `json:"question"`
}

// AnswerOutcome is the result of answering the current question.
type AnswerOutcome struct {
	AnswerKey  string            `json:"answer_key"`
	Evaluation domain.Evaluation `json:"evaluation"`
	FollowUp   *domain.FollowUp  `json:"followup,omitempty"`
	Next       NextStep          `json:"next"`
}

// FollowUpOutcome is the result of answering a follow-up.
type FollowUpOutcome struct {
	AnswerKey  string            `json:"answer_key"`
	Evaluation domain.Evaluation `json:"evaluation"`
	Bonus      int               `json:"bonus"`
	TotalScore int               `json:"total_score"`
	Next       NextStep          `json:"next"`
}

// AdvanceOutcome is the interview after moving on, with the next question
// unless the interview completed.
type AdvanceOutcome struct {
	Interview domain.Interview `json:"interview"`
	Question  *CurrentQuestion `json:"question,omitempty"`
	Completed bool             `json:"completed"`
}

// InterviewService runs the interview state machine. Actions on one
// interview are serialized: a second action while one is in flight fails
// with domain.ErrConflict.
type InterviewService struct {
	Interviews      domain.InterviewRepository
	Resumes         domain.ResumeRepository
	AI              Assistant
	MinAnswerLength int
	Now             func() time.Time
	locks           *inflight
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(iv domain.InterviewRepository, rs domain.ResumeRepository, ai Assistant, minAnswerLength int) InterviewService {
	return InterviewService{
		Interviews:      iv,
		Resumes:         rs,
		AI:              ai,
		MinAnswerLength: minAnswerLength,
		Now:             time.Now,
		locks:           &inflight{busy: map[string]struct{}{}},
	}
}

type inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func (f *inflight) acquire(id string) (func(), error) {
	if f == nil {
		return func() {}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.busy[id]; ok {
		return nil, fmt.Errorf("%w: another action on interview %s is in progress", domain.ErrConflict, id)
	}
	f.busy[id] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.busy, id)
		f.mu.Unlock()
	}, nil
}

func (s InterviewService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// begin locks the interview and loads it.
func (s InterviewService) begin(ctx context.Context, id string) (context.Context, domain.Interview, func(), error) {
	release, err := s.locks.acquire(id)
	if err != nil {
		return ctx, domain.Interview{}, nil, err
	}
	iv, err := s.Interviews.Get(ctx, id)
	if err != nil {
		release()
		return ctx, domain.Interview{}, nil, err
	}
	return obsctx.With(ctx, slog.String("interview_id", id)), iv, release, nil
}

// Create validates the input and stores a pending interview with a skill
// snapshot from the résumé analysis.
func (s InterviewService) Create(ctx context.Context, in CreateInterviewInput) (domain.Interview, error) {
	in.Position = strings.TrimSpace(in.Position)
	if in.Position == "" {
		return domain.Interview{}, fmt.Errorf("%w: position required", domain.ErrInvalidArgument)
	}
	r, err := s.Resumes.Get(ctx, in.ResumeID)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.Create: resume %q: %w", in.ResumeID, err)
	}
	iv := domain.Interview{
		ResumeID:        r.ID,
		Position:        in.Position,
		CompanyName:     strings.TrimSpace(in.CompanyName),
		JobRequirements: strings.TrimSpace(in.JobRequirements),
		IsTechnical:     in.IsTechnical,
		Skills:          SkillSnapshot(r.Analysis),
		CompanyInfo:     in.CompanyInfo,
		JDAnalysis:      in.JDAnalysis,
	}
	return s.Interviews.Create(ctx, iv)
}

// SkillSnapshot is languages, then frameworks, then databases, at most 10.
func SkillSnapshot(a *domain.ResumeAnalysis) []string {
	out := []string{}
	if a == nil {
		return out
	}
	for _, group := range [][]string{a.Skills.ProgrammingLanguages, a.Skills.Frameworks, a.Skills.Databases} {
		for _, sk := range group {
			if len(out) == maxSkillSnapshot {
				return out
			}
			out = append(out, sk)
		}
	}
	return out
}

// Start moves a pending interview to in_progress. Starting an interview
// already in progress is a no-op; completed interviews cannot restart.
func (s InterviewService) Start(ctx context.Context, id string) (domain.Interview, error) {
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return domain.Interview{}, err
	}
	defer release()
	switch iv.Status {
	case domain.InterviewInProgress:
		return iv, nil
	case domain.InterviewCompleted:
		return domain.Interview{}, fmt.Errorf("%w: interview already completed", domain.ErrInvalidState)
	}
	st := domain.InterviewInProgress
	out, err := s.Interviews.Update(ctx, id, domain.InterviewPatch{Status: &st})
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.Start: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("interview started")
	return out, nil
}

// LoadQuestion returns the question at the current slot, generating and
// persisting it first if needed. Generation failures are returned; calling
// again retries.
func (s InterviewService) LoadQuestion(ctx context.Context, id string) (CurrentQuestion, error) {
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return CurrentQuestion{}, err
	}
	defer release()
	if err := requireInProgress(iv); err != nil {
		return CurrentQuestion{}, err
	}
	cq, _, err := s.loadQuestion(ctx, iv)
	return cq, err
}

func requireInProgress(iv domain.Interview) error {
	switch iv.Status {
	case domain.InterviewPending:
		return fmt.Errorf("%w: interview not started", domain.ErrInvalidState)
	case domain.InterviewCompleted:
		return fmt.Errorf("%w: interview already completed", domain.ErrInvalidState)
	}
	return nil
}

func current(iv domain.Interview, q domain.Question) CurrentQuestion {
	return CurrentQuestion{
		Stage:     iv.CurrentStage,
		StageName: stageName(iv.CurrentStage, iv.IsTechnical),
		Index:     iv.QuestionIndex,
		AnswerKey: iv.CurrentAnswerKey(),
		Question:  q,
	}
}

func (s InterviewService) loadQuestion(ctx context.Context, iv domain.Interview) (CurrentQuestion, domain.Interview, error) {
	if q, ok := iv.CurrentQuestion(); ok {
		return current(iv, q), iv, nil
	}
	stage, index := iv.CurrentStage, iv.QuestionIndex
	key := domain.StageKey(stage)
	existing := iv.Questions[key]
	if len(existing) != index {
		return CurrentQuestion{}, iv, fmt.Errorf("%w: stage %d holds %d questions at index %d", domain.ErrInternal, stage, len(existing), index)
	}

	analysis, err := s.resumeAnalysis(ctx, iv.ResumeID)
	if err != nil {
		return CurrentQuestion{}, iv, err
	}
	previous := make([]QA, 0, index)
	for i, q := range existing {
		ans, ok := iv.Answers[domain.AnswerKey(stage, i)]
		if !ok {
			ans = unansweredPlaceholder
		}
		previous = append(previous, QA{Question: q.Question, Answer: ans})
	}

	q, err := s.AI.GenerateQuestion(ctx, iv, analysis, stage, index, previous)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("question generation failed",
			slog.Int("stage", stage), slog.Int("index", index), slog.Any("error", err))
		return CurrentQuestion{}, iv, err
	}
	questions := iv.CloneQuestions()
	questions[key] = append(questions[key], q)
	updated, err := s.Interviews.Update(ctx, iv.ID, domain.InterviewPatch{Questions: questions})
	if err != nil {
		return CurrentQuestion{}, iv, fmt.Errorf("op=interview.LoadQuestion: %w", err)
	}
	return current(updated, q), updated, nil
}

// resumeAnalysis tolerates a deleted résumé.
func (s InterviewService) resumeAnalysis(ctx context.Context, resumeID string) (*domain.ResumeAnalysis, error) {
	r, err := s.Resumes.Get(ctx, resumeID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("op=interview.resumeAnalysis: %w", err)
	}
	return r.Analysis, nil
}

// FollowUpKind decides whether a score earns a follow-up and of which type.
func FollowUpKind(score int) (domain.FollowUpType, bool) {
	switch {
	case score < 40 || score > 90:
		return "", false
	case score >= 80:
		return domain.FollowUpDeepDive, true
	default:
		return domain.FollowUpHint, true
	}
}

// FollowUpBonus is round(score × 15%) for hints, round(score × 20%) for
// deep dives, rounding halves up.
func FollowUpBonus(kind domain.FollowUpType, score int) int {
	pct := 15
	if kind == domain.FollowUpDeepDive {
		pct = 20
	}
	if score <= 0 {
		return 0
	}
	return (score*pct + 50) / 100
}

func nextStepAfter(iv domain.Interview) NextStep {
	switch {
	case iv.QuestionIndex < domain.QuestionsPerStage-1:
		return NextQuestion
	case iv.CurrentStage < domain.StageCount:
		return NextStage
	default:
		return NextComplete
	}
}

// SubmitAnswer evaluates the answer to the current question and may offer
// a follow-up.
func (s InterviewService) SubmitAnswer(ctx context.Context, id, answer string) (AnswerOutcome, error) {
	answer = strings.TrimSpace(answer)
	if textx.RuneLen(answer) < s.MinAnswerLength {
		return AnswerOutcome{}, fmt.Errorf("%w: answer must be at least %d characters", domain.ErrInvalidArgument, s.MinAnswerLength)
	}
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return AnswerOutcome{}, err
	}
	defer release()
	if err := requireInProgress(iv); err != nil {
		return AnswerOutcome{}, err
	}
	q, ok := iv.CurrentQuestion()
	if !ok {
		return AnswerOutcome{}, fmt.Errorf("%w: no question loaded", domain.ErrInvalidState)
	}
	key := iv.CurrentAnswerKey()
	if _, done := iv.Answers[key]; done {
		return AnswerOutcome{}, fmt.Errorf("%w: %s already answered", domain.ErrConflict, key)
	}
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("answer_key", key))

	ev, err := s.AI.EvaluateAnswer(ctx, q.Question, answer, q.KeyPoints)
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("op=interview.SubmitAnswer: %w", err)
	}

	var fu *domain.FollowUp
	if kind, offer := FollowUpKind(ev.Score); offer {
		fu, err = s.AI.GenerateFollowUp(ctx, q.Question, answer, ev.Score, ev.Feedback, kind)
		if err != nil {
			lg.Warn("follow-up skipped", slog.Any("error", err))
			fu = nil
		}
	}

	answers := iv.CloneAnswers()
	answers[key] = answer
	evaluations := iv.CloneEvaluations()
	evaluations[key] = ev
	patch := domain.InterviewPatch{Answers: answers, Evaluations: evaluations}
	if fu != nil {
		patch.PendingFollowUp = &domain.PendingFollowUp{AnswerKey: key, FollowUp: *fu}
	}
	updated, err := s.Interviews.Update(ctx, id, patch)
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("op=interview.SubmitAnswer: %w", err)
	}

	out := AnswerOutcome{AnswerKey: key, Evaluation: ev, Next: nextStepAfter(updated)}
	if fu != nil {
		observability.FollowUpOffered(string(fu.Type))
		out.FollowUp = fu
		out.Next = NextFollowUp
	}
	lg.Info("answer evaluated", slog.Int("score", ev.Score), slog.String("next", string(out.Next)))
	return out, nil
}

// SubmitFollowUp evaluates the answer to the pending follow-up and credits
// the bonus to the original answer.
func (s InterviewService) SubmitFollowUp(ctx context.Context, id, answer string) (FollowUpOutcome, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FollowUpOutcome{}, fmt.Errorf("%w: follow-up answer required", domain.ErrInvalidArgument)
	}
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return FollowUpOutcome{}, err
	}
	defer release()
	pf := iv.PendingFollowUp
	if pf == nil {
		return FollowUpOutcome{}, fmt.Errorf("%w: no follow-up pending", domain.ErrInvalidState)
	}

	ev, err := s.AI.EvaluateAnswer(ctx, pf.FollowUp.Question, answer, nil)
	if err != nil {
		return FollowUpOutcome{}, fmt.Errorf("op=interview.SubmitFollowUp: %w", err)
	}
	kind := pf.FollowUp.Type
	bonus := FollowUpBonus(kind, ev.Score)
	fk := domain.FollowUpKey(pf.AnswerKey)
	ev.BonusScore = &bonus
	ev.Type = kind

	evaluations := iv.CloneEvaluations()
	evaluations[fk] = ev
	orig := evaluations[pf.AnswerKey]
	total := orig.Score + bonus
	if total > 100 {
		total = 100
	}
	origBonus := bonus
	orig.BonusScore = &origBonus
	orig.TotalScore = &total
	evaluations[pf.AnswerKey] = orig

	answers := iv.CloneAnswers()
	answers[fk] = answer
	updated, err := s.Interviews.Update(ctx, id, domain.InterviewPatch{
		Answers:       answers,
		Evaluations:   evaluations,
		ClearFollowUp: true,
	})
	if err != nil {
		return FollowUpOutcome{}, fmt.Errorf("op=interview.SubmitFollowUp: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("follow-up evaluated",
		slog.String("answer_key", fk), slog.Int("score", ev.Score), slog.Int("bonus", bonus))
	return FollowUpOutcome{AnswerKey: fk, Evaluation: ev, Bonus: bonus, TotalScore: total, Next: nextStepAfter(updated)}, nil
}

// SkipFollowUp drops the pending follow-up without any score effect. It
// succeeds even when nothing is pending.
func (s InterviewService) SkipFollowUp(ctx context.Context, id string) (domain.Interview, error) {
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return domain.Interview{}, err
	}
	defer release()
	if iv.PendingFollowUp == nil {
		return iv, nil
	}
	return s.Interviews.Update(ctx, id, domain.InterviewPatch{ClearFollowUp: true})
}

// Advance moves to the next question, the next stage, or completes the
// interview. The current question must be answered and no follow-up may
// be pending. The new position is saved before the next question is
// generated, so a generation failure is retried through LoadQuestion.
func (s InterviewService) Advance(ctx context.Context, id string) (AdvanceOutcome, error) {
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	defer release()
	if err := requireInProgress(iv); err != nil {
		return AdvanceOutcome{}, err
	}
	if iv.PendingFollowUp != nil {
		return AdvanceOutcome{}, fmt.Errorf("%w: answer or skip the follow-up first", domain.ErrInvalidState)
	}
	if _, done := iv.Answers[iv.CurrentAnswerKey()]; !done {
		return AdvanceOutcome{}, fmt.Errorf("%w: current question not answered", domain.ErrInvalidState)
	}
	return s.advance(ctx, iv)
}

func (s InterviewService) advance(ctx context.Context, iv domain.Interview) (AdvanceOutcome, error) {
	var patch domain.InterviewPatch
	switch nextStepAfter(iv) {
	case NextQuestion:
		idx := iv.QuestionIndex + 1
		patch.QuestionIndex = &idx
	case NextStage:
		stage, idx := iv.CurrentStage+1, 0
		patch.CurrentStage = &stage
		patch.QuestionIndex = &idx
	default:
		return s.complete(ctx, iv)
	}
	moved, err := s.Interviews.Update(ctx, iv.ID, patch)
	if err != nil {
		return AdvanceOutcome{}, fmt.Errorf("op=interview.Advance: %w", err)
	}
	cq, loaded, err := s.loadQuestion(ctx, moved)
	if err != nil {
		return AdvanceOutcome{Interview: moved}, err
	}
	return AdvanceOutcome{Interview: loaded, Question: &cq}, nil
}

func (s InterviewService) complete(ctx context.Context, iv domain.Interview) (AdvanceOutcome, error) {
	st := domain.InterviewCompleted
	score := iv.FinalScore()
	at := s.now()
	done, err := s.Interviews.Update(ctx, iv.ID, domain.InterviewPatch{Status: &st, Score: &score, CompletedAt: &at})
	if err != nil {
		return AdvanceOutcome{}, fmt.Errorf("op=interview.complete: %w", err)
	}
	observability.InterviewCompleted(score)
	obsctx.LoggerFromContext(ctx).Info("interview completed", slog.Int("score", score))
	return AdvanceOutcome{Interview: done, Completed: true}, nil
}

// Skip records the current question as unanswered with a zero score, then
// advances.
func (s InterviewService) Skip(ctx context.Context, id string) (AdvanceOutcome, error) {
	ctx, iv, release, err := s.begin(ctx, id)
	if err != nil {
		return AdvanceOutcome{}, err
	}
	defer release()
	if err := requireInProgress(iv); err != nil {
		return AdvanceOutcome{}, err
	}
	if iv.PendingFollowUp != nil {
		return AdvanceOutcome{}, fmt.Errorf("%w: answer or skip the follow-up first", domain.ErrInvalidState)
	}
	if _, ok := iv.CurrentQuestion(); !ok {
		return AdvanceOutcome{}, fmt.Errorf("%w: no question loaded", domain.ErrInvalidState)
	}
	key := iv.CurrentAnswerKey()
	if _, done := iv.Answers[key]; done {
		return AdvanceOutcome{}, fmt.Errorf("%w: %s already answered", domain.ErrConflict, key)
	}
	answers := iv.CloneAnswers()
	answers[key] = SkippedAnswer
	evaluations := iv.CloneEvaluations()
	evaluations[key] = domain.Evaluation{
		Score:        0,
		Feedback:     skippedFeedback,
		Strengths:    []string{},
		Improvements: []string{skippedImprovement},
	}
	updated, err := s.Interviews.Update(ctx, id, domain.InterviewPatch{Answers: answers, Evaluations: evaluations})
	if err != nil {
		return AdvanceOutcome{}, fmt.Errorf("op=interview.Skip: %w", err)
	}
	obsctx.LoggerFromContext(ctx).Info("question skipped", slog.String("answer_key", key))
	return s.advance(ctx, updated)
}

// List returns all interviews.
func (s InterviewService) List(ctx context.Context) ([]domain.Interview, error) {
	return s.Interviews.List(ctx)
}

// Get returns one interview.
func (s InterviewService) Get(ctx context.Context, id string) (domain.Interview, error) {
	return s.Interviews.Get(ctx, id)
}

// Delete removes an interview.
func (s InterviewService) Delete(ctx context.Context, id string) error {
	release, err := s.locks.acquire(id)
	if err != nil {
		return err
	}
	defer release()
	return s.Interviews.Delete(ctx, id)
}
