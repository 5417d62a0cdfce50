package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotConfigured   = errors.New("llm credential not configured")
	ErrUpstream        = errors.New("upstream error")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrSchemaInvalid   = errors.New("schema invalid")
	ErrInternal        = errors.New("internal error")
)

// InterviewStatus is the coarse lifecycle of an interview.
type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
)

// Interview shape constants.
const (
	StageCount        = 3
	QuestionsPerStage = 3
)

// QuestionType classifies a generated question by stage.
type QuestionType string

const (
	QuestionBasic     QuestionType = "basic"
	QuestionProject   QuestionType = "project"
	QuestionAlgorithm QuestionType = "algorithm"
	QuestionOther     QuestionType = "other"
)

// FollowUpType is either a guiding hint or a deeper challenge.
type FollowUpType string

const (
	FollowUpHint     FollowUpType = "hint"
	FollowUpDeepDive FollowUpType = "deep_dive"
)

// Resume is an uploaded résumé with its optional analysis.
type Resume struct {
	ID            string          `json:"id"`
	Filename      string          `json:"filename"`
	Content       string          `json:"content"`
	Analysis      *ResumeAnalysis `json:"analysis,omitempty"`
	Optimizations []Optimization  `json:"optimizations,omitempty"`
	Size          int64           `json:"size"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ResumeAnalysis is the structured extraction of a résumé.
// Error is set only on the fallback produced when analysis failed.
type ResumeAnalysis struct {
	Summary        string           `json:"summary"`
	Name           LooseText        `json:"name,omitempty"`
	Contact        Contact          `json:"contact"`
	Education      []Education      `json:"education"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Projects       []Project        `json:"projects"`
	Skills         Skills           `json:"skills"`
	Strengths      LooseList        `json:"strengths"`
	Weaknesses     LooseList        `json:"weaknesses"`
	Error          string           `json:"error,omitempty"`
}

type Contact struct {
	Phone    LooseText `json:"phone,omitempty"`
	Email    LooseText `json:"email,omitempty"`
	Location LooseText `json:"location,omitempty"`
}

type Education struct {
	School   LooseText `json:"school,omitempty"`
	Degree   LooseText `json:"degree,omitempty"`
	Major    LooseText `json:"major,omitempty"`
	Duration LooseText `json:"duration,omitempty"`
	GPA      LooseText `json:"gpa,omitempty"`
}

type WorkExperience struct {
	Company          LooseText `json:"company,omitempty"`
	Position         LooseText `json:"position,omitempty"`
	Duration         LooseText `json:"duration,omitempty"`
	Responsibilities LooseList `json:"responsibilities,omitempty"`
	Achievements     LooseList `json:"achievements,omitempty"`
}

type Project struct {
	Name         LooseText `json:"name,omitempty"`
	Role         LooseText `json:"role,omitempty"`
	Duration     LooseText `json:"duration,omitempty"`
	Description  LooseText `json:"description,omitempty"`
	TechStack    LooseText `json:"tech_stack,omitempty"`
	Achievements LooseText `json:"achievements,omitempty"`
}

// Skills groups skills by category.
type Skills struct {
	ProgrammingLanguages LooseList `json:"programming_languages,omitempty"`
	Frameworks           LooseList `json:"frameworks,omitempty"`
	Databases            LooseList `json:"databases,omitempty"`
	Tools                LooseList `json:"tools,omitempty"`
	Other                LooseList `json:"other,omitempty"`
}

// Optimization is one saved round of résumé optimization advice.
type Optimization struct {
	TargetPosition string             `json:"target_position"`
	TargetCompany  string             `json:"target_company,omitempty"`
	Suggestions    OptimizationAdvice `json:"suggestions"`
	CreatedAt      time.Time          `json:"created_at"`
}

// OptimizationAdvice is the model's résumé optimization report.
type OptimizationAdvice struct {
	MatchScore          int                 `json:"match_score"`
	MatchLevel          string              `json:"match_level"`
	OverallSuggestion   string              `json:"overall_suggestion"`
	ContentOptimization []ContentSuggestion `json:"content_optimization"`
	KeywordsToAdd       LooseList           `json:"keywords_to_add"`
	KeywordsToRemove    LooseList           `json:"keywords_to_remove"`
	HighlightPoints     LooseList           `json:"highlight_points"`
	CultureMatch        CultureMatch        `json:"culture_match"`
	ActionItems         LooseList           `json:"action_items"`
}

type ContentSuggestion struct {
	Section    LooseText `json:"section"`
	Issue      LooseText `json:"issue"`
	Suggestion LooseText `json:"suggestion"`
	Priority   LooseText `json:"priority"`
	Example    LooseText `json:"example,omitempty"`
}

type CultureMatch struct {
	MatchedTraits   LooseList `json:"matched_traits"`
	SuggestedTraits LooseList `json:"suggested_traits"`
}

// Interview is one practice session against a résumé.
type Interview struct {
	ID              string                `json:"id"`
	ResumeID        string                `json:"resume_id"`
	Position        string                `json:"position"`
	CompanyName     string                `json:"company_name,omitempty"`
	JobRequirements string                `json:"job_requirements,omitempty"`
	IsTechnical     bool                  `json:"is_technical"`
	Skills          []string              `json:"skills"`
	CompanyInfo     *CompanyInfo          `json:"company_info,omitempty"`
	JDAnalysis      *JDAnalysis           `json:"jd_analysis,omitempty"`
	Status          InterviewStatus       `json:"status"`
	CurrentStage    int                   `json:"current_stage"`
	QuestionIndex   int                   `json:"question_index"`
	Questions       map[string][]Question `json:"questions"`
	Answers         map[string]string     `json:"answers"`
	Evaluations     map[string]Evaluation `json:"evaluations"`
	PendingFollowUp *PendingFollowUp      `json:"pending_followup,omitempty"`
	Score           *int                  `json:"score,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	CompletedAt     *time.Time            `json:"completed_at,omitempty"`
}

// Question is a generated interview question.
type Question struct {
	Question   string       `json:"question"`
	Type       QuestionType `json:"type"`
	Difficulty string       `json:"difficulty"`
	TimeLimit  int          `json:"time_limit"`
	KeyPoints  []string     `json:"key_points"`
}

// Evaluation scores one answer. BonusScore and TotalScore are set on an
// original answer once its follow-up was answered; Type is set on
// follow-up evaluations only.
type Evaluation struct {
	Score        int          `json:"score"`
	Feedback     string       `json:"feedback"`
	Strengths    []string     `json:"strengths"`
	Improvements []string     `json:"improvements"`
	BonusScore   *int         `json:"bonus_score,omitempty"`
	TotalScore   *int         `json:"total_score,omitempty"`
	Type         FollowUpType `json:"type,omitempty"`
}

// FollowUp is a supplementary question offered after an answer.
type FollowUp struct {
	Type     FollowUpType `json:"type"`
	Question string       `json:"followup_question"`
	Hint     string       `json:"hint"`
}

// PendingFollowUp is a follow-up offered for AnswerKey and not yet resolved.
type PendingFollowUp struct {
	AnswerKey string   `json:"answer_key"`
	FollowUp  FollowUp `json:"followup"`
}

// CompanyInfo is interview-oriented background on a company.
type CompanyInfo struct {
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Culture         LooseList `json:"culture"`
	InterviewStyle  string    `json:"interview_style"`
	CommonQuestions LooseList `json:"common_questions"`
	Tips            LooseList `json:"tips"`
}

// JDAnalysis is the interview focus extracted from a job description.
type JDAnalysis struct {
	KeyRequirements LooseList `json:"key_requirements" yaml:"key_requirements"`
	TechnicalSkills LooseList `json:"technical_skills" yaml:"technical_skills"`
	SoftSkills      LooseList `json:"soft_skills" yaml:"soft_skills"`
	ExperienceLevel string    `json:"experience_level" yaml:"experience_level"`
	FocusAreas      LooseList `json:"focus_areas" yaml:"focus_areas"`
	SalaryRange     string    `json:"salary_range,omitempty" yaml:"salary_range,omitempty"`
	Highlights      LooseList `json:"highlights" yaml:"highlights"`
}

// InterviewExperience summarizes how a company usually interviews for a role.
type InterviewExperience struct {
	Rounds           LooseList            `json:"rounds"`
	FocusPoints      map[string]LooseList `json:"focus_points"`
	CommonQuestions  LooseList            `json:"common_questions"`
	InterviewerStyle string               `json:"interviewer_style"`
	Tips             LooseList            `json:"tips"`
}

// Message is one chat message sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the exact tuple a completion is keyed on.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Repositories (ports)

type ResumeRepository interface {
	List(ctx Context) ([]Resume, error)
	Get(ctx Context, id string) (Resume, error)
	Create(ctx Context, r Resume) (Resume, error)
	Update(ctx Context, id string, p ResumePatch) (Resume, error)
	Delete(ctx Context, id string) error
}

type InterviewRepository interface {
	List(ctx Context) ([]Interview, error)
	Get(ctx Context, id string) (Interview, error)
	Create(ctx Context, iv Interview) (Interview, error)
	Update(ctx Context, id string, p InterviewPatch) (Interview, error)
	Delete(ctx Context, id string) error
}

// SettingsRepository stores runtime configuration under fixed keys.
// GetSetting returns ErrNotFound when the key was never written.
type SettingsRepository interface {
	GetSetting(ctx Context, key string) (string, error)
	PutSetting(ctx Context, key, value string) error
}

// Setting keys.
const (
	SettingAPIKey  = "deepseek_api_key"
	SettingBaseURL = "deepseek_api_base_url"
)

// Completer (port) returns the raw text of one chat completion.
type Completer interface {
	Complete(ctx Context, req CompletionRequest) (string, error)
}

// Credentials locate and authorize the completion endpoint.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// CredentialSource (port) resolves credentials for each completion call so
// that updated settings apply without a restart.
type CredentialSource interface {
	Credentials(ctx Context) (Credentials, error)
}

// TextExtractor (port) turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx Context, fileName string, data []byte) (string, error)
}

type Context = context.Context
