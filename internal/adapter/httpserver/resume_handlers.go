package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type optimizeRequest struct {
	Position string `json:"target_position" validate:"required,max=200"`
	Company  string `json:"target_company" validate:"max=200"`
}

func (s *Server) maxUploadBytes() int64 {
	mb := s.Cfg.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return mb << 20
}

// UploadResumeHandler accepts a multipart "file" field, stores the résumé
// and analyzes it.
func (s *Server) UploadResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		limit := s.maxUploadBytes()
		r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, r, err, nil)
				return
			}
			writeError(w, r, fmt.Errorf("%w: invalid multipart form", domain.ErrInvalidArgument), nil)
			return
		}
		f, h, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file required", domain.ErrInvalidArgument), map[string]string{"file": "required"})
			return
		}
		defer func() { _ = f.Close() }()
		if h.Size > limit {
			writeError(w, r, &http.MaxBytesError{Limit: limit}, nil)
			return
		}
		data, err := io.ReadAll(f)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read upload", domain.ErrInvalidArgument), nil)
			return
		}
		out, err := s.Resumes.Upload(r.Context(), h.Filename, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// ListResumesHandler returns all résumés.
func (s *Server) ListResumesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Resumes.List(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"resumes": out})
	}
}

// GetResumeHandler returns one résumé.
func (s *Server) GetResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := s.Resumes.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// AnalyzeResumeHandler re-runs analysis of a stored résumé.
func (s *Server) AnalyzeResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out, err := s.Resumes.Analyze(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// OptimizeResumeHandler produces tailoring advice for a target position.
func (s *Server) OptimizeResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req optimizeRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := s.Resumes.Optimize(r.Context(), id, req.Position, req.Company)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DeleteResumeHandler removes a résumé.
func (s *Server) DeleteResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := s.Resumes.Delete(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
