package httpserver

import "net/http"

type settingsRequest struct {
	APIKey  string `json:"api_key" validate:"required"`
	BaseURL string `json:"base_url" validate:"omitempty,url"`
}

// GetSettingsHandler reports whether a completion key is configured.
func (s *Server) GetSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := s.Settings.Get(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PutSettingsHandler stores the completion key and base URL.
func (s *Server) PutSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settingsRequest
		if details, err := decodeBody(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		out, err := s.Settings.Update(r.Context(), req.APIKey, req.BaseURL)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// TestSettingsHandler runs a connection test. The outcome is always 200;
// failures are reported in the body.
func (s *Server) TestSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Settings.TestConnection(r.Context()))
	}
}
