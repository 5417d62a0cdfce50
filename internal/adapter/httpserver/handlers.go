package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Resumes    usecase.ResumeService
	Interviews usecase.InterviewService
	Settings   usecase.SettingsService
	AI         usecase.Assistant
	StoreCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, resumes usecase.ResumeService, interviews usecase.InterviewService, settings usecase.SettingsService, ai usecase.Assistant, storeCheck, tikaCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Resumes:    resumes,
		Interviews: interviews,
		Settings:   settings,
		AI:         ai,
		StoreCheck: storeCheck,
		TikaCheck:  tikaCheck,
	}
}

type readyCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler returns a readiness handler that probes the store and Tika.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"store", s.StoreCheck},
			{"tika", s.TikaCheck},
		}
		checks := make([]readyCheck, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := readyCheck{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// HealthzHandler reports liveness.
func HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
