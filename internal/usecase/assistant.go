// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Task names, used in logs and the fallback metric.
const (
	TaskResumeAnalysis = "resume_analysis"
	TaskQuestion       = "question"
	TaskEvaluation     = "evaluation"
	TaskFollowUp       = "followup"
	TaskCompanyInfo    = "company_info"
	TaskJDAnalysis     = "jd_analysis"
	TaskScenario       = "scenario"
	TaskExperience     = "experience"
	TaskOptimization   = "optimization"
)

// taskSettings pins sampling temperature and reply budget per task.
var taskSettings = map[string]struct {
	temperature float64
	maxTokens   int
}{
	TaskResumeAnalysis: {0.3, 2500},
	TaskQuestion:       {0.8, 800},
	TaskEvaluation:     {0.3, 800},
	TaskFollowUp:       {0.7, 500},
	TaskCompanyInfo:    {0.3, 1000},
	TaskJDAnalysis:     {0.3, 1200},
	TaskScenario:       {0.7, 300},
	TaskExperience:     {0.5, 1500},
	TaskOptimization:   {0.3, 2500},
}

// PositionDefaults supplies the static JD analysis for a position title.
type PositionDefaults interface {
	Lookup(position string) domain.JDAnalysis
}

// Assistant runs the model-backed tasks: it builds each prompt, calls the
// completer with the task's settings, and validates the reply. Tasks that
// have a fallback return it on transport, API and parse failures; a
// missing credential always reaches the caller.
type Assistant struct {
	LLM       domain.Completer
	Positions PositionDefaults
}

// NewAssistant constructs an Assistant.
func NewAssistant(llm domain.Completer, positions PositionDefaults) Assistant {
	return Assistant{LLM: llm, Positions: positions}
}

func (a Assistant) complete(ctx context.Context, task string, msgs []domain.Message) (string, error) {
	st := taskSettings[task]
	return a.LLM.Complete(ctx, domain.CompletionRequest{
		Messages:    msgs,
		Temperature: st.temperature,
		MaxTokens:   st.maxTokens,
	})
}

// mustPropagate reports errors no fallback may hide.
func mustPropagate(ctx context.Context, err error) bool {
	return errors.Is(err, domain.ErrNotConfigured) || ctx.Err() != nil
}

func (a Assistant) fellBack(ctx context.Context, task string, err error) {
	observability.TaskFallback(task)
	obsctx.LoggerFromContext(ctx).Warn("ai task fell back",
		slog.String("task", task),
		slog.Any("error", err))
}

// AnalyzeResume extracts structured facts from résumé text. On failure it
// returns a placeholder analysis whose Error holds the failure message.
func (a Assistant) AnalyzeResume(ctx context.Context, content string) (domain.ResumeAnalysis, error) {
	raw, err := a.complete(ctx, TaskResumeAnalysis, resumeAnalysisPrompt(content))
	if err == nil {
		var an domain.ResumeAnalysis
		if an, err = parseResumeAnalysis(raw); err == nil {
			return an, nil
		}
	}
	if mustPropagate(ctx, err) {
		return domain.ResumeAnalysis{}, err
	}
	a.fellBack(ctx, TaskResumeAnalysis, err)
	return resumeAnalysisFallback(err), nil
}

// GenerateQuestion writes the question for slot (stage, index). It has no
// fallback: any failure is returned and the caller may retry.
func (a Assistant) GenerateQuestion(ctx context.Context, iv domain.Interview, analysis *domain.ResumeAnalysis, stage, index int, previous []QA) (domain.Question, error) {
	raw, err := a.complete(ctx, TaskQuestion, questionPrompt(iv, analysis, stage, index, previous))
	if err != nil {
		return domain.Question{}, fmt.Errorf("op=assistant.GenerateQuestion: %w", err)
	}
	q, err := parseQuestion(raw, StageType(stage, iv.IsTechnical))
	if err != nil {
		return domain.Question{}, fmt.Errorf("op=assistant.GenerateQuestion: %w", err)
	}
	return q, nil
}

// EvaluateAnswer scores an answer, falling back to a length heuristic.
func (a Assistant) EvaluateAnswer(ctx context.Context, question, answer string, keyPoints []string) (domain.Evaluation, error) {
	raw, err := a.complete(ctx, TaskEvaluation, evaluationPrompt(question, answer, keyPoints))
	if err == nil {
		var ev domain.Evaluation
		if ev, err = parseEvaluation(raw); err == nil {
			return ev, nil
		}
	}
	if mustPropagate(ctx, err) {
		return domain.Evaluation{}, err
	}
	a.fellBack(ctx, TaskEvaluation, err)
	return evaluationFallback(answer), nil
}

// GenerateFollowUp writes a follow-up of the given kind. It returns nil
// when generation fails; the type is always kind, whatever the model says.
func (a Assistant) GenerateFollowUp(ctx context.Context, question, answer string, score int, feedback string, kind domain.FollowUpType) (*domain.FollowUp, error) {
	raw, err := a.complete(ctx, TaskFollowUp, followUpPrompt(question, answer, score, feedback, kind))
	if err == nil {
		var f domain.FollowUp
		if f, err = parseFollowUp(raw, kind); err == nil {
			return &f, nil
		}
	}
	if mustPropagate(ctx, err) {
		return nil, err
	}
	a.fellBack(ctx, TaskFollowUp, err)
	return nil, nil
}

// CompanyInfo describes how a company interviews.
func (a Assistant) CompanyInfo(ctx context.Context, company string) (domain.CompanyInfo, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return domain.CompanyInfo{}, fmt.Errorf("%w: company name required", domain.ErrInvalidArgument)
	}
	raw, err := a.complete(ctx, TaskCompanyInfo, companyInfoPrompt(company))
	if err == nil {
		var ci domain.CompanyInfo
		if ci, err = parseCompanyInfo(raw, company); err == nil {
			return ci, nil
		}
	}
	if mustPropagate(ctx, err) {
		return domain.CompanyInfo{}, err
	}
	a.fellBack(ctx, TaskCompanyInfo, err)
	return companyInfoFallback(company), nil
}

// AnalyzeJD extracts the interview focus of a job description. Short or
// missing descriptions skip the model and use the position defaults.
func (a Assistant) AnalyzeJD(ctx context.Context, jd, position string) (domain.JDAnalysis, error) {
	if textx.RuneLen(strings.TrimSpace(jd)) < jdMinLength {
		return a.Positions.Lookup(position), nil
	}
	raw, err := a.complete(ctx, TaskJDAnalysis, jdAnalysisPrompt(jd, position))
	if err == nil {
		var an domain.JDAnalysis
		if an, err = parseJDAnalysis(raw); err == nil {
			return an, nil
		}
	}
	if mustPropagate(ctx, err) {
		return domain.JDAnalysis{}, err
	}
	a.fellBack(ctx, TaskJDAnalysis, err)
	return a.Positions.Lookup(position), nil
}

// Scenario describes the upcoming interview in plain prose.
func (a Assistant) Scenario(ctx context.Context, in ScenarioInput) (string, error) {
	if strings.TrimSpace(in.Position) == "" {
		return "", fmt.Errorf("%w: position required", domain.ErrInvalidArgument)
	}
	raw, err := a.complete(ctx, TaskScenario, scenarioPrompt(in))
	if err == nil {
		if text := strings.TrimSpace(raw); text != "" {
			return text, nil
		}
		err = fmt.Errorf("%w: empty scenario", domain.ErrSchemaInvalid)
	}
	if mustPropagate(ctx, err) {
		return "", err
	}
	a.fellBack(ctx, TaskScenario, err)
	return fmt.Sprintf("You will interview for the %s role at %s. The interviewer will assess technical ability, project experience and overall fit.",
		in.Position, orDefault(in.CompanyName, "the company")), nil
}

// InterviewExperience summarizes how company interviews for position. It
// returns nil when no summary could be produced.
func (a Assistant) InterviewExperience(ctx context.Context, company, position string) (*domain.InterviewExperience, error) {
	if strings.TrimSpace(company) == "" || strings.TrimSpace(position) == "" {
		return nil, fmt.Errorf("%w: company and position required", domain.ErrInvalidArgument)
	}
	raw, err := a.complete(ctx, TaskExperience, experiencePrompt(company, position))
	if err == nil {
		var ex domain.InterviewExperience
		if ex, err = parseExperience(raw); err == nil {
			return &ex, nil
		}
	}
	if mustPropagate(ctx, err) {
		return nil, err
	}
	a.fellBack(ctx, TaskExperience, err)
	return nil, nil
}

// OptimizeResume advises how to tailor an analyzed résumé to a position.
// Failures are returned to the caller.
func (a Assistant) OptimizeResume(ctx context.Context, analysis domain.ResumeAnalysis, position, company string) (domain.OptimizationAdvice, error) {
	var info *domain.CompanyInfo
	if company != "" {
		ci, err := a.CompanyInfo(ctx, company)
		if err != nil {
			return domain.OptimizationAdvice{}, fmt.Errorf("op=assistant.OptimizeResume: %w", err)
		}
		info = &ci
	}
	raw, err := a.complete(ctx, TaskOptimization, optimizationPrompt(analysis, position, company, info))
	if err != nil {
		return domain.OptimizationAdvice{}, fmt.Errorf("op=assistant.OptimizeResume: %w", err)
	}
	adv, err := parseOptimization(raw)
	if err != nil {
		return domain.OptimizationAdvice{}, fmt.Errorf("op=assistant.OptimizeResume: %w", err)
	}
	return adv, nil
}
