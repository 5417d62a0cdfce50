package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a creation-ordered, never reused identifier.
func NewID() string { return ulid.Make().String() }

// StageKey names the question list of a stage, e.g. "stage_2".
func StageKey(stage int) string { return fmt.Sprintf("stage_%d", stage) }

// AnswerKey names the answer slot of a question, e.g. "stage_2_1".
func AnswerKey(stage, index int) string { return fmt.Sprintf("stage_%d_%d", stage, index) }

// FollowUpKey names the follow-up slot attached to an answer key.
func FollowUpKey(answerKey string) string { return answerKey + "_followup" }

// IsFollowUpKey reports whether key holds a follow-up answer.
func IsFollowUpKey(key string) bool { return strings.HasSuffix(key, "_followup") }

// InitResume fills the fields a store assigns on save.
func InitResume(r Resume, now time.Time) Resume {
	r.ID = NewID()
	r.CreatedAt = now.UTC()
	if r.Size == 0 {
		r.Size = int64(len(r.Content))
	}
	return r
}

// InitInterview fills the fields a store assigns on save: id, createdAt,
// pending status at stage 1 and empty question/answer/evaluation maps.
func InitInterview(iv Interview, now time.Time) Interview {
	iv.ID = NewID()
	iv.CreatedAt = now.UTC()
	iv.Status = InterviewPending
	iv.CurrentStage = 1
	iv.QuestionIndex = 0
	iv.Questions = make(map[string][]Question, StageCount)
	for s := 1; s <= StageCount; s++ {
		iv.Questions[StageKey(s)] = []Question{}
	}
	iv.Answers = map[string]string{}
	iv.Evaluations = map[string]Evaluation{}
	iv.PendingFollowUp = nil
	iv.Score = nil
	iv.CompletedAt = nil
	if iv.Skills == nil {
		iv.Skills = []string{}
	}
	return iv
}

// CurrentQuestion returns the question at the current slot if generated.
func (iv Interview) CurrentQuestion() (Question, bool) {
	qs := iv.Questions[StageKey(iv.CurrentStage)]
	if iv.QuestionIndex < len(qs) {
		return qs[iv.QuestionIndex], true
	}
	return Question{}, false
}

// CurrentAnswerKey is the answer key of the current slot.
func (iv Interview) CurrentAnswerKey() string {
	return AnswerKey(iv.CurrentStage, iv.QuestionIndex)
}

// FinalScore is the rounded mean of all non-follow-up evaluation scores,
// or 0 when nothing was evaluated. Follow-up bonuses are not included.
func (iv Interview) FinalScore() int {
	total, n := 0, 0
	for k, ev := range iv.Evaluations {
		if IsFollowUpKey(k) {
			continue
		}
		total += ev.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

// CloneQuestions returns a deep copy safe to mutate and store.
func (iv Interview) CloneQuestions() map[string][]Question {
	out := make(map[string][]Question, len(iv.Questions))
	for k, qs := range iv.Questions {
		out[k] = append([]Question(nil), qs...)
	}
	return out
}

// CloneAnswers returns a copy of the answers map.
func (iv Interview) CloneAnswers() map[string]string {
	out := make(map[string]string, len(iv.Answers)+1)
	for k, v := range iv.Answers {
		out[k] = v
	}
	return out
}

// CloneEvaluations returns a copy of the evaluations map.
func (iv Interview) CloneEvaluations() map[string]Evaluation {
	out := make(map[string]Evaluation, len(iv.Evaluations)+1)
	for k, v := range iv.Evaluations {
		out[k] = v
	}
	return out
}

// ScoreLevel buckets a score for display.
type ScoreLevel string

const (
	LevelExcellent ScoreLevel = "excellent"
	LevelGood      ScoreLevel = "good"
	LevelFair      ScoreLevel = "fair"
	LevelPass      ScoreLevel = "pass"
	LevelFail      ScoreLevel = "fail"
)

// LevelFor maps a 0-100 score onto a ScoreLevel.
func LevelFor(score int) ScoreLevel {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 80:
		return LevelGood
	case score >= 70:
		return LevelFair
	case score >= 60:
		return LevelPass
	default:
		return LevelFail
	}
}
