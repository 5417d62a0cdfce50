package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// ParseOrigins splits a comma-separated origin list, trimming spaces.
// An empty list means any origin.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/settings", srv.GetSettingsHandler())
		v1.Get("/resumes", srv.ListResumesHandler())
		v1.Get("/resumes/{id}", srv.GetResumeHandler())
		v1.Get("/interviews", srv.ListInterviewsHandler())
		v1.Get("/interviews/{id}", srv.GetInterviewHandler())
		v1.Get("/interviews/{id}/report", srv.ReportHandler())

		// Everything that writes or may reach the model is rate limited.
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			wr.Put("/settings", srv.PutSettingsHandler())
			wr.Post("/settings/test", srv.TestSettingsHandler())

			wr.Post("/resumes", srv.UploadResumeHandler())
			wr.Post("/resumes/{id}/analyze", srv.AnalyzeResumeHandler())
			wr.Post("/resumes/{id}/optimize", srv.OptimizeResumeHandler())
			wr.Delete("/resumes/{id}", srv.DeleteResumeHandler())

			wr.Post("/lookups/company", srv.CompanyLookupHandler())
			wr.Post("/lookups/jd", srv.JDLookupHandler())
			wr.Post("/lookups/scenario", srv.ScenarioLookupHandler())
			wr.Post("/lookups/experience", srv.ExperienceLookupHandler())

			wr.Post("/interviews", srv.CreateInterviewHandler())
			wr.Delete("/interviews/{id}", srv.DeleteInterviewHandler())
			wr.Post("/interviews/{id}/start", srv.StartInterviewHandler())
			wr.Get("/interviews/{id}/question", srv.QuestionHandler())
			wr.Post("/interviews/{id}/answer", srv.AnswerHandler())
			wr.Post("/interviews/{id}/skip", srv.SkipHandler())
			wr.Post("/interviews/{id}/advance", srv.AdvanceHandler())
			wr.Post("/interviews/{id}/followup", srv.FollowUpHandler())
			wr.Post("/interviews/{id}/followup/skip", srv.SkipFollowUpHandler())
		})
	})

	r.Get("/healthz", httpserver.HealthzHandler)
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
