package httpserver

import (
	"context"
	"net/http"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type createInterviewRequest struct {
	ResumeID        string              `json:"resume_id" validate:"required"`
	Position        string              `json:"position" validate:"required,max=200"`
	CompanyName     string              `json:"company_name" validate:"max=200"`
	JobRequirements string              `json:"job_requirements"`
	IsTechnical     bool                `json:"is_technical"`
	CompanyInfo     *domain.CompanyInfo `json:"company_info"`
	JDAnalysis      *domain.JDAnalysis  `json:"jd_analysis"`
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// interviewAction adapts a state-machine call on {id} into a handler.
func interviewAction[T any](fn func(ctx context.Context, id string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// answerAction is interviewAction for calls that carry an answer body.
func answerAction[T any](fn func(ctx context.Context, id, answer string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req answerRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := fn(r.Context(), id, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// CreateInterviewHandler stores a pending interview.
func (s *Server) CreateInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInterviewRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if err := ValidateID(req.ResumeID); err != nil {
			writeError(w, r, err, map[string]string{"resume_id": "ulid"})
			return
		}
		out, err := s.Interviews.Create(r.Context(), usecase.CreateInterviewInput{
			ResumeID:        req.ResumeID,
			Position:        req.Position,
			CompanyName:     req.CompanyName,
			JobRequirements: req.JobRequirements,
			IsTechnical:     req.IsTechnical,
			CompanyInfo:     req.CompanyInfo,
			JDAnalysis:      req.JDAnalysis,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// ListInterviewsHandler returns all interviews.
func (s *Server) ListInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Interviews.List(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": out})
	}
}

// DeleteInterviewHandler removes an interview.
func (s *Server) DeleteInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := s.Interviews.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) GetInterviewHandler() http.HandlerFunc  { return interviewAction(s.Interviews.Get) }
func (s *Server) StartInterviewHandler() http.HandlerFunc { return interviewAction(s.Interviews.Start) }
func (s *Server) QuestionHandler() http.HandlerFunc       { return interviewAction(s.Interviews.LoadQuestion) }
func (s *Server) SkipHandler() http.HandlerFunc           { return interviewAction(s.Interviews.Skip) }
func (s *Server) AdvanceHandler() http.HandlerFunc        { return interviewAction(s.Interviews.Advance) }
func (s *Server) SkipFollowUpHandler() http.HandlerFunc   { return interviewAction(s.Interviews.SkipFollowUp) }
func (s *Server) ReportHandler() http.HandlerFunc         { return interviewAction(s.Interviews.Report) }
func (s *Server) AnswerHandler() http.HandlerFunc         { return answerAction(s.Interviews.SubmitAnswer) }
func (s *Server) FollowUpHandler() http.HandlerFunc       { return answerAction(s.Interviews.SubmitFollowUp) }
