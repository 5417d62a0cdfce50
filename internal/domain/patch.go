package domain

import (
	"time"
)

// ResumePatch names the résumé fields an update overwrites. Nil fields are
// left untouched.
type ResumePatch struct {
	Analysis      *ResumeAnalysis
	Optimizations []Optimization
}

// Apply merges the named fields into r.
func (p ResumePatch) Apply(r *Resume) {
	if p.Analysis != nil {
		a := *p.Analysis
		r.Analysis = &a
	}
	if p.Optimizations != nil {
		r.Optimizations = append([]Optimization(nil), p.Optimizations...)
	}
}

// Fields returns the named fields keyed by their JSON names.
func (p ResumePatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Analysis != nil {
		out["analysis"] = p.Analysis
	}
	if p.Optimizations != nil {
		out["optimizations"] = p.Optimizations
	}
	return out
}

// InterviewPatch names the interview fields an update overwrites. Map
// fields replace the stored map as a whole. ClearFollowUp drops any
// pending follow-up and wins over PendingFollowUp.
type InterviewPatch struct {
	Status          *InterviewStatus
	CurrentStage    *int
	QuestionIndex   *int
	Questions       map[string][]Question
	Answers         map[string]string
	Evaluations     map[string]Evaluation
	PendingFollowUp *PendingFollowUp
	ClearFollowUp   bool
	Score           *int
	CompletedAt     *time.Time
}

// Apply merges the named fields into iv.
func (p InterviewPatch) Apply(iv *Interview) {
	if p.Status != nil {
		iv.Status = *p.Status
	}
	if p.CurrentStage != nil {
		iv.CurrentStage = *p.CurrentStage
	}
	if p.QuestionIndex != nil {
		iv.QuestionIndex = *p.QuestionIndex
	}
	if p.Questions != nil {
		iv.Questions = p.Questions
	}
	if p.Answers != nil {
		iv.Answers = p.Answers
	}
	if p.Evaluations != nil {
		iv.Evaluations = p.Evaluations
	}
	if p.PendingFollowUp != nil {
		f := *p.PendingFollowUp
		iv.PendingFollowUp = &f
	}
	if p.ClearFollowUp {
		iv.PendingFollowUp = nil
	}
	if p.Score != nil {
		s := *p.Score
		iv.Score = &s
	}
	if p.CompletedAt != nil {
		t := p.CompletedAt.UTC()
		iv.CompletedAt = &t
	}
}

// Fields returns the named fields keyed by their JSON names. A cleared
// follow-up is reported as an explicit null.
func (p InterviewPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.CurrentStage != nil {
		out["current_stage"] = *p.CurrentStage
	}
	if p.QuestionIndex != nil {
		out["question_index"] = *p.QuestionIndex
	}
	if p.Questions != nil {
		out["questions"] = p.Questions
	}
	if p.Answers != nil {
		out["answers"] = p.Answers
	}
	if p.Evaluations != nil {
		out["evaluations"] = p.Evaluations
	}
	if p.PendingFollowUp != nil {
		out["pending_followup"] = p.PendingFollowUp
	}
	if p.ClearFollowUp {
		out["pending_followup"] = nil
	}
	if p.Score != nil {
		out["score"] = *p.Score
	}
	if p.CompletedAt != nil {
		out["completed_at"] = p.CompletedAt.UTC()
	}
	return out
}
