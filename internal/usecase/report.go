package usecase

import (
	"context"
	"math"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ReportItem is one question with its answer and evaluations.
type ReportItem struct {
	AnswerKey          string             `json:"answer_key"`
	Question           string             `json:"question"`
	Answer             string             `json:"answer,omitempty"`
	Skipped            bool               `json:"skipped"`
	Evaluation         *domain.Evaluation `json:"evaluation,omitempty"`
	FollowUpAnswer     string             `json:"followup_answer,omitempty"`
	FollowUpEvaluation *domain.Evaluation `json:"followup_evaluation,omitempty"`
}

// StageReport summarizes one stage.
type StageReport struct {
	Stage    int          `json:"stage"`
	Name     string       `json:"name"`
	Average  int          `json:"average"`
	Answered int          `json:"answered"`
	Skipped  int          `json:"skipped"`
	Items    []ReportItem `json:"items"`
}

// Report summarizes an interview. Score is the same aggregate stored at
// completion; follow-up bonuses are reported separately and never added.
type Report struct {
	InterviewID string                 `json:"interview_id"`
	Position    string                 `json:"position"`
	CompanyName string                 `json:"company_name,omitempty"`
	Status      domain.InterviewStatus `json:"status"`
	Score       int                    `json:"score"`
	Level       domain.ScoreLevel      `json:"level"`
	Answered    int                    `json:"answered"`
	Skipped     int                    `json:"skipped"`
	FollowUps   int                    `json:"followups_answered"`
	BonusTotal  int                    `json:"bonus_total"`
	Stages      []StageReport          `json:"stages"`
}

// Report builds the summary of an interview in any status.
func (s InterviewService) Report(ctx context.Context, id string) (Report, error) {
	iv, err := s.Interviews.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(iv), nil
}

// BuildReport summarizes iv.
func BuildReport(iv domain.Interview) Report {
	score := iv.FinalScore()
	if iv.Score != nil {
		score = *iv.Score
	}
	rep := Report{
		InterviewID: iv.ID,
		Position:    iv.Position,
		CompanyName: iv.CompanyName,
		Status:      iv.Status,
		Score:       score,
		Level:       domain.LevelFor(score),
		Stages:      make([]StageReport, 0, domain.StageCount),
	}
	for stage := 1; stage <= domain.StageCount; stage++ {
		sr := StageReport{Stage: stage, Name: stageName(stage, iv.IsTechnical), Items: []ReportItem{}}
		total, n := 0, 0
		for i, q := range iv.Questions[domain.StageKey(stage)] {
			key := domain.AnswerKey(stage, i)
			item := ReportItem{AnswerKey: key, Question: q.Question}
			if ans, ok := iv.Answers[key]; ok {
				item.Answer = ans
				if ans == SkippedAnswer {
					item.Skipped = true
					sr.Skipped++
				} else {
					sr.Answered++
				}
			}
			if ev, ok := iv.Evaluations[key]; ok {
				ev := ev
				item.Evaluation = &ev
				total += ev.Score
				n++
			}
			fk := domain.FollowUpKey(key)
			if ev, ok := iv.Evaluations[fk]; ok {
				ev := ev
				item.FollowUpEvaluation = &ev
				item.FollowUpAnswer = iv.Answers[fk]
				rep.FollowUps++
				if ev.BonusScore != nil {
					rep.BonusTotal += *ev.BonusScore
				}
			}
			sr.Items = append(sr.Items, item)
		}
		if n > 0 {
			sr.Average = int(math.Round(float64(total) / float64(n)))
		}
		rep.Answered += sr.Answered
		rep.Skipped += sr.Skipped
		rep.Stages = append(rep.Stages, sr)
	}
	return rep
}
