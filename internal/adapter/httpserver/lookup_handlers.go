package httpserver

import (
	"net/http"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type companyRequest struct {
	Company string `json:"company_name" validate:"required,max=200"`
}

type jdRequest struct {
	JobDescription string `json:"job_description"`
	Position       string `json:"position" validate:"required,max=200"`
}

type scenarioRequest struct {
	Position        string              `json:"position" validate:"required,max=200"`
	CompanyName     string              `json:"company_name" validate:"max=200"`
	JobRequirements string              `json:"job_requirements"`
	CompanyInfo     *domain.CompanyInfo `json:"company_info"`
	JDAnalysis      *domain.JDAnalysis  `json:"jd_analysis"`
}

type experienceRequest struct {
	Company  string `json:"company_name" validate:"required,max=200"`
	Position string `json:"position" validate:"required,max=200"`
}

// CompanyLookupHandler describes how a company interviews.
func (s *Server) CompanyLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req companyRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := s.AI.CompanyInfo(r.Context(), req.Company)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// JDLookupHandler extracts the interview focus of a job description.
func (s *Server) JDLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jdRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := s.AI.AnalyzeJD(r.Context(), req.JobDescription, req.Position)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// ScenarioLookupHandler describes the upcoming interview.
func (s *Server) ScenarioLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scenarioRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		text, err := s.AI.Scenario(r.Context(), usecase.ScenarioInput{
			Position:        req.Position,
			CompanyName:     req.CompanyName,
			JobRequirements: req.JobRequirements,
			CompanyInfo:     req.CompanyInfo,
			JDAnalysis:      req.JDAnalysis,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"scenario": text})
	}
}

// ExperienceLookupHandler summarizes how a company interviews for a
// position. The experience field is null when no summary was produced.
func (s *Server) ExperienceLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req experienceRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := s.AI.InterviewExperience(r.Context(), req.Company, req.Position)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"experience": out})
	}
}
