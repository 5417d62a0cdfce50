package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Input limits, in runes.
const (
	resumeTextLimit       = 4000
	previousAnswerLimit   = 100
	projectDescLimit      = 100
	jobRequirementsLimit  = 200
	jdTextLimit           = 2000
	jdMinLength           = 50
	scenarioJDLimit       = 200
	optimizeAnalysisLimit = 3000
	maxContextProjects    = 3
)

// QA is an earlier question and its answer, used as generation context.
type QA struct {
	Question string
	Answer   string
}

func messages(system, user string) []domain.Message {
	return []domain.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

func joinList(items []string, sep string) string {
	return strings.Join(items, sep)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func resumeAnalysisPrompt(content string) []domain.Message {
	user := `Act as a senior recruiter and analyze the résumé below in depth, extracting every key fact.

Résumé:
` + textx.Truncate(content, resumeTextLimit) + `

Return a detailed JSON analysis:
{
  "summary": "overall assessment and background (2-3 sentences)",
  "name": "full name",
  "contact": {"phone": "", "email": "", "location": ""},
  "education": [{"school": "", "degree": "", "major": "", "duration": "", "gpa": ""}],
  "work_experience": [{"company": "", "position": "", "duration": "", "responsibilities": [""], "achievements": [""]}],
  "projects": [{"name": "", "role": "", "duration": "", "description": "", "tech_stack": "", "achievements": ""}],
  "skills": {"programming_languages": [], "frameworks": [], "databases": [], "tools": [], "other": []},
  "strengths": ["", "", ""],
  "weaknesses": ["", ""]
}

Rules:
1. Read the whole résumé and keep every relevant fact.
2. Describe projects and work experience in detail, with stack and results.
3. Group skills by category.
4. Keep strengths and weaknesses objective.
5. Use "not provided" or an empty list for missing information.
6. Return raw JSON only, without markdown.`
	return messages("You are a professional HR assistant who analyzes résumés. Return JSON only, with no other text.", user)
}

func stageName(stage int, technical bool) string {
	switch stage {
	case 1:
		return "Fundamentals"
	case 2:
		return "Projects and internship experience"
	default:
		if technical {
			return "Algorithms"
		}
		return "General ability"
	}
}

// StageType is the question type expected at a stage.
func StageType(stage int, technical bool) domain.QuestionType {
	switch stage {
	case 1:
		return domain.QuestionBasic
	case 2:
		return domain.QuestionProject
	default:
		if technical {
			return domain.QuestionAlgorithm
		}
		return domain.QuestionOther
	}
}

func questionPrompt(iv domain.Interview, analysis *domain.ResumeAnalysis, stage, index int, previous []QA) []domain.Message {
	summary := "pending analysis"
	var projects []domain.Project
	if analysis != nil {
		summary = analysis.Summary
		projects = analysis.Projects
	}
	skills := "to be assessed"
	if len(iv.Skills) > 0 {
		skills = joinList(iv.Skills, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", iv.Position)
	fmt.Fprintf(&b, "Company: %s\n", orDefault(iv.CompanyName, "unknown"))
	fmt.Fprintf(&b, "Candidate skills: %s\n", skills)
	fmt.Fprintf(&b, "Résumé summary: %s", summary)

	if ci := iv.CompanyInfo; ci != nil {
		fmt.Fprintf(&b, "\nCompany profile: %s", ci.Description)
		if len(ci.Culture) > 0 {
			fmt.Fprintf(&b, "\nCompany culture: %s", joinList(ci.Culture, ", "))
		}
		if ci.InterviewStyle != "" {
			fmt.Fprintf(&b, "\nInterview style: %s", ci.InterviewStyle)
		}
	}
	if jd := iv.JDAnalysis; jd != nil {
		if len(jd.KeyRequirements) > 0 {
			fmt.Fprintf(&b, "\nKey requirements: %s", joinList(jd.KeyRequirements, ", "))
		}
		if len(jd.FocusAreas) > 0 {
			fmt.Fprintf(&b, "\nInterview focus: %s", joinList(jd.FocusAreas, ", "))
		}
	}
	if iv.JobRequirements != "" {
		fmt.Fprintf(&b, "\nJob requirements: %s", textx.Truncate(iv.JobRequirements, jobRequirementsLimit))
	}
	if stage == 2 && len(projects) > 0 {
		b.WriteString("\n\nCandidate projects and internships:")
		for i, p := range projects {
			if i == maxContextProjects {
				break
			}
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, orDefault(string(p.Name), "Project"), textx.Truncate(string(p.Description), projectDescLimit))
		}
	}
	if len(previous) > 0 {
		b.WriteString("\n\nEarlier questions and answers:")
		for i, qa := range previous {
			fmt.Fprintf(&b, "\nQuestion %d: %s", i+1, qa.Question)
			fmt.Fprintf(&b, "\nAnswer: %s...", textx.Truncate(qa.Answer, previousAnswerLimit))
		}
	}

	user := fmt.Sprintf(`You are a senior %s interviewer at %s. Write question %d of the %s stage for this candidate.

%s

Requirements:
1. This is question %d; probe from a different angle than before.
2. Moderate difficulty that checks fundamentals and allows depth.
3. Tie it to the company's real business and stack.
4. Make it targeted and discriminating.
5. Do not repeat earlier questions.
6. Keep the question under 100 words.

Return JSON:
{
  "question": "the question",
  "type": "%s",
  "difficulty": "medium",
  "time_limit": 300,
  "key_points": ["point 1", "point 2"]
}

Return JSON only.`,
		iv.Position, orDefault(iv.CompanyName, "the company"), index+1, stageName(stage, iv.IsTechnical),
		b.String(), index+1, StageType(stage, iv.IsTechnical))
	return messages("You are a senior interviewer. Return raw JSON without markdown.", user)
}

func evaluationPrompt(question, answer string, keyPoints []string) []domain.Message {
	points := "overall ability"
	if len(keyPoints) > 0 {
		points = joinList(keyPoints, ", ")
	}
	user := fmt.Sprintf(`Evaluate this interview answer.

Question: %s
Key points: %s
Candidate answer: %s

Return JSON:
{
  "score": 85,
  "feedback": "concise overall assessment (under 50 words)",
  "strengths": ["strength 1", "strength 2"],
  "improvements": ["suggestion 1", "suggestion 2"]
}

Rules:
1. score is an integer from 0 to 100.
2. feedback is one short paragraph.
3. strengths lists 2-3 items.
4. improvements lists 2-3 items.

Return JSON only.`, question, points, answer)
	return messages("You are a fair interview judge. Return raw JSON without markdown.", user)
}

func followUpPrompt(question, answer string, score int, feedback string, kind domain.FollowUpType) []domain.Message {
	var user string
	if kind == domain.FollowUpHint {
		user = fmt.Sprintf(`The answer scored %d/100: a reasonable base that is not yet complete.

Original question: %s
Answer: %s
Feedback: %s

Write a guiding follow-up question that helps the candidate complete the answer:
1. Point at the key ideas that are missing or thin.
2. Give a suitable hint or direction.
3. Invite more detail.
4. Keep it open; guide rather than reveal the answer.

Return JSON:
{
  "followup_question": "the follow-up question",
  "hint": "a short hint (1-2 sentences)",
  "type": "hint"
}

Return JSON only.`, score, question, answer, feedback)
	} else {
		user = fmt.Sprintf(`The answer scored %d/100: a strong answer.

Original question: %s
Answer: %s

Write a deep-dive follow-up question that probes deeper understanding:
1. Build on the answer and go one level deeper.
2. Ask about implementation details, performance or edge cases.
3. Or pose a related advanced scenario or variant.
4. Make it challenging but related to the original question.

Return JSON:
{
  "followup_question": "the follow-up question",
  "hint": "the direction of the follow-up (1 sentence)",
  "type": "deep_dive"
}

Return JSON only.`, score, question, answer)
	}
	return messages("You are a professional interviewer. Return raw JSON.", user)
}

func companyInfoPrompt(company string) []domain.Message {
	user := fmt.Sprintf(`As an HR expert, describe how "%s" interviews candidates:

1. Company profile (under 100 words)
2. Culture (3-5 keywords)
3. Interview style
4. Common question types (3-5)
5. Things to watch out for (2-3)

Return JSON:
{
  "name": %q,
  "description": "company profile",
  "culture": ["keyword 1", "keyword 2", "keyword 3"],
  "interview_style": "interview style",
  "common_questions": ["question 1", "question 2", "question 3"],
  "tips": ["tip 1", "tip 2"]
}

Return JSON only.`, company, company)
	return messages("You are a senior HR expert who knows how major companies interview. Return raw JSON.", user)
}

func jdAnalysisPrompt(jd, position string) []domain.Message {
	user := fmt.Sprintf(`Analyze this job description and extract what the interview will focus on.

Position: %s
Job description:
%s

Return JSON:
{
  "key_requirements": ["requirement 1", "requirement 2", "requirement 3"],
  "technical_skills": ["skill 1", "skill 2"],
  "soft_skills": ["skill 1", "skill 2"],
  "experience_level": "junior/mid/senior",
  "focus_areas": ["focus 1", "focus 2", "focus 3"],
  "salary_range": "salary range if stated",
  "highlights": ["highlight 1", "highlight 2"]
}

Return JSON only.`, position, textx.Truncate(jd, jdTextLimit))
	return messages("You are a recruiting expert who analyzes job descriptions. Return raw JSON.", user)
}

// ScenarioInput is the context for a scenario description.
type ScenarioInput struct {
	Position        string
	CompanyName     string
	JobRequirements string
	CompanyInfo     *domain.CompanyInfo
	JDAnalysis      *domain.JDAnalysis
}

func scenarioPrompt(in ScenarioInput) []domain.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", in.Position)
	fmt.Fprintf(&b, "Company: %s\n", orDefault(in.CompanyName, "an internet company"))
	if in.CompanyInfo != nil {
		fmt.Fprintf(&b, "Company culture: %s\n", joinList(in.CompanyInfo.Culture, ", "))
	}
	if in.JDAnalysis != nil {
		fmt.Fprintf(&b, "Key requirements: %s\n", joinList(in.JDAnalysis.KeyRequirements, ", "))
	}
	if in.JobRequirements != "" {
		fmt.Fprintf(&b, "Job description: %s\n", textx.Truncate(in.JobRequirements, scenarioJDLimit))
	}
	user := `Using the information below, describe a realistic interview scenario.

` + b.String() + `
Write a short description (about 100 words) covering:
- the interviewer's background
- the setting
- what will be assessed
- the atmosphere

Return plain text, not JSON.`
	return messages("You are an expert at describing scenes.", user)
}

func experiencePrompt(company, position string) []domain.Message {
	user := fmt.Sprintf(`Summarize the interview experience for the "%s" role at "%s":

1. The process (how many rounds)
2. The focus of each round
3. Example questions (5-8)
4. Interviewer style
5. Advice for getting an offer

Return JSON:
{
  "rounds": ["Round 1: fundamentals", "Round 2: project deep dive", "Round 3: overall fit"],
  "focus_points": {"round1": ["topic"], "round2": ["topic"], "round3": ["topic"]},
  "common_questions": ["question 1", "question 2", "question 3"],
  "interviewer_style": "interviewer style",
  "tips": ["tip 1", "tip 2", "tip 3"]
}

Return JSON only.`, position, company)
	return messages("You are a career coach who knows how major companies interview. Return raw JSON.", user)
}

func optimizationPrompt(analysis domain.ResumeAnalysis, position, company string, info *domain.CompanyInfo) []domain.Message {
	raw, _ := json.MarshalIndent(analysis, "", "  ")
	var target strings.Builder
	if company != "" {
		fmt.Fprintf(&target, "\n[Target company]\n%s\n", company)
		if info != nil {
			fmt.Fprintf(&target, "Company profile: %s\nCompany culture: %s\nInterview style: %s\n",
				info.Description, joinList(info.Culture, ", "), info.InterviewStyle)
		}
	}
	user := fmt.Sprintf(`As a senior recruiter and résumé expert, suggest improvements to this candidate's résumé.

[Résumé analysis]
%s

[Target position]
%s
%s
Give concrete, actionable advice on:
1. Overall fit with the target position.
2. Content: project descriptions, stack alignment, quantified results.
3. Targeting: culture fit, what to emphasize, what to cut.
4. Keywords to add.
5. Layout and formatting.

Return JSON:
{
  "match_score": 75,
  "match_level": "strong match/partial match/needs work",
  "overall_suggestion": "overall advice",
  "content_optimization": [
    {"section": "Projects", "issue": "the problem", "suggestion": "the fix", "priority": "high/medium/low", "example": "rewritten example"}
  ],
  "keywords_to_add": ["keyword"],
  "keywords_to_remove": ["keyword"],
  "highlight_points": ["highlight"],
  "culture_match": {"matched_traits": ["trait"], "suggested_traits": ["trait"]},
  "action_items": ["action 1", "action 2", "action 3"]
}

Return JSON only.`, textx.Truncate(string(raw), optimizeAnalysisLimit), position, target.String())
	return messages("You are a senior recruiter and résumé expert. Return raw JSON.", user)
}
