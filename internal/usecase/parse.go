package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Placeholders for fields the model left out.
const (
	defaultDifficulty      = "medium"
	defaultTimeLimit       = 300
	defaultNonNumericScore = 60
	missingFeedback        = "No feedback provided"
	analysisDoneSummary    = "Résumé analysis complete"
)

var (
	questionSchema = mustSchema(`{
  "type": "object",
  "required": ["question"],
  "properties": {
    "question": {"type": "string", "pattern": "\\S"}
  }
}`)
	followUpSchema = mustSchema(`{
  "type": "object",
  "required": ["followup_question"],
  "properties": {
    "followup_question": {"type": "string", "pattern": "\\S"},
    "hint": {"type": ["string", "null"]}
  }
}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(err)
	}
	return s
}

// validateShape checks cleaned model output against schema.
func validateShape(schema *gojsonschema.Schema, cleaned string) error {
	res, err := schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", domain.ErrSchemaInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// decodeJSON sanitizes raw and decodes it into v.
func decodeJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(ai.Clean(raw)), v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return nil
}

func parseResumeAnalysis(raw string) (domain.ResumeAnalysis, error) {
	var a domain.ResumeAnalysis
	if err := decodeJSON(raw, &a); err != nil {
		return domain.ResumeAnalysis{}, err
	}
	if strings.TrimSpace(a.Summary) == "" {
		a.Summary = analysisDoneSummary
	}
	if a.Projects == nil {
		a.Projects = []domain.Project{}
	}
	if a.Education == nil {
		a.Education = []domain.Education{}
	}
	if a.WorkExperience == nil {
		a.WorkExperience = []domain.WorkExperience{}
	}
	if a.Strengths == nil {
		a.Strengths = domain.LooseList{}
	}
	if a.Weaknesses == nil {
		a.Weaknesses = domain.LooseList{}
	}
	a.Error = ""
	return a, nil
}

func resumeAnalysisFallback(err error) domain.ResumeAnalysis {
	return domain.ResumeAnalysis{
		Summary:        "The résumé text was read but the AI output could not be parsed",
		Education:      []domain.Education{},
		WorkExperience: []domain.WorkExperience{},
		Projects:       []domain.Project{},
		Skills:         domain.Skills{Other: domain.LooseList{"needs manual analysis"}},
		Strengths:      domain.LooseList{"résumé uploaded"},
		Weaknesses:     domain.LooseList{"needs manual review"},
		Error:          err.Error(),
	}
}

func parseQuestion(raw string, stageType domain.QuestionType) (domain.Question, error) {
	cleaned := ai.Clean(raw)
	if err := validateShape(questionSchema, cleaned); err != nil {
		return domain.Question{}, err
	}
	var q struct {
		Question   string           `json:"question"`
		Type       any              `json:"type"`
		Difficulty domain.LooseText `json:"difficulty"`
		TimeLimit  any              `json:"time_limit"`
		KeyPoints  domain.LooseList `json:"key_points"`
	}
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	out := domain.Question{
		Question:   strings.TrimSpace(q.Question),
		Type:       stageType,
		Difficulty: strings.TrimSpace(string(q.Difficulty)),
		TimeLimit:  defaultTimeLimit,
		KeyPoints:  []string(q.KeyPoints),
	}
	if t, ok := q.Type.(string); ok && knownQuestionType(domain.QuestionType(t)) {
		out.Type = domain.QuestionType(t)
	}
	if out.Difficulty == "" {
		out.Difficulty = defaultDifficulty
	}
	if n, ok := q.TimeLimit.(float64); ok && n > 0 {
		out.TimeLimit = int(math.Round(n))
	}
	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	return out, nil
}

func knownQuestionType(t domain.QuestionType) bool {
	switch t {
	case domain.QuestionBasic, domain.QuestionProject, domain.QuestionAlgorithm, domain.QuestionOther:
		return true
	}
	return false
}

// parseEvaluation is lenient: only undecodable JSON is an error.
func parseEvaluation(raw string) (domain.Evaluation, error) {
	var m map[string]any
	if err := decodeJSON(raw, &m); err != nil {
		return domain.Evaluation{}, err
	}
	ev := domain.Evaluation{
		Score:        defaultNonNumericScore,
		Feedback:     missingFeedback,
		Strengths:    stringList(m["strengths"]),
		Improvements: stringList(m["improvements"]),
	}
	if s, ok := m["score"].(float64); ok && !math.IsNaN(s) {
		ev.Score = clampScore(int(math.Round(s)))
	}
	if f, ok := m["feedback"].(string); ok && strings.TrimSpace(f) != "" {
		ev.Feedback = f
	}
	return ev, nil
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// stringList keeps the non-empty entries of a JSON array; anything that is
// not an array yields an empty list.
func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		switch x := it.(type) {
		case nil:
		case string:
			if strings.TrimSpace(x) != "" {
				out = append(out, x)
			}
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}

// HeuristicScore grades an answer by length alone.
func HeuristicScore(answer string) int {
	n := len([]rune(answer))
	switch {
	case n < 30:
		return 35
	case n < 80:
		return 50
	case n < 150:
		return 65
	case n < 300:
		return 75
	default:
		return 80
	}
}

func evaluationFallback(answer string) domain.Evaluation {
	return domain.Evaluation{
		Score:        HeuristicScore(answer),
		Feedback:     "Answer is reasonable but needs more detail",
		Strengths:    []string{"Shows some understanding"},
		Improvements: []string{"Go deeper", "Add concrete examples"},
	}
}

func parseFollowUp(raw string, kind domain.FollowUpType) (domain.FollowUp, error) {
	cleaned := ai.Clean(raw)
	if err := validateShape(followUpSchema, cleaned); err != nil {
		return domain.FollowUp{}, err
	}
	var f struct {
		Question string `json:"followup_question"`
		Hint     string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(cleaned), &f); err != nil {
		return domain.FollowUp{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return domain.FollowUp{Type: kind, Question: strings.TrimSpace(f.Question), Hint: strings.TrimSpace(f.Hint)}, nil
}

func parseCompanyInfo(raw, company string) (domain.CompanyInfo, error) {
	var ci domain.CompanyInfo
	if err := decodeJSON(raw, &ci); err != nil {
		return domain.CompanyInfo{}, err
	}
	if strings.TrimSpace(ci.Name) == "" {
		ci.Name = company
	}
	normalizeLists(&ci.Culture, &ci.CommonQuestions, &ci.Tips)
	return ci, nil
}

func companyInfoFallback(company string) domain.CompanyInfo {
	return domain.CompanyInfo{
		Name:            company,
		Description:     "No information available",
		Culture:         domain.LooseList{},
		InterviewStyle:  "Standard interview",
		CommonQuestions: domain.LooseList{},
		Tips:            domain.LooseList{},
	}
}

func parseJDAnalysis(raw string) (domain.JDAnalysis, error) {
	var jd domain.JDAnalysis
	if err := decodeJSON(raw, &jd); err != nil {
		return domain.JDAnalysis{}, err
	}
	normalizeLists(&jd.KeyRequirements, &jd.TechnicalSkills, &jd.SoftSkills, &jd.FocusAreas, &jd.Highlights)
	return jd, nil
}

func parseExperience(raw string) (domain.InterviewExperience, error) {
	var ex domain.InterviewExperience
	if err := decodeJSON(raw, &ex); err != nil {
		return domain.InterviewExperience{}, err
	}
	if ex.FocusPoints == nil {
		ex.FocusPoints = map[string]domain.LooseList{}
	}
	normalizeLists(&ex.Rounds, &ex.CommonQuestions, &ex.Tips)
	return ex, nil
}

func parseOptimization(raw string) (domain.OptimizationAdvice, error) {
	var adv domain.OptimizationAdvice
	if err := decodeJSON(raw, &adv); err != nil {
		return domain.OptimizationAdvice{}, err
	}
	if adv.ContentOptimization == nil {
		adv.ContentOptimization = []domain.ContentSuggestion{}
	}
	adv.MatchScore = clampScore(adv.MatchScore)
	normalizeLists(&adv.KeywordsToAdd, &adv.KeywordsToRemove, &adv.HighlightPoints, &adv.ActionItems,
		&adv.CultureMatch.MatchedTraits, &adv.CultureMatch.SuggestedTraits)
	return adv, nil
}

func normalizeLists(lists ...*domain.LooseList) {
	for _, l := range lists {
		if *l == nil {
			*l = domain.LooseList{}
		}
	}
}
