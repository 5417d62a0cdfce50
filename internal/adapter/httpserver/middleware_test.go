package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
		assert.NotNil(t, obsctx.LoggerFromContext(r.Context()))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, ValidateID(seen))
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "client-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", rec.Header().Get("X-Request-Id"))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", decodeEnvelope(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAccessLogAndTrace(t *testing.T) {
	h := TraceMiddleware(AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
		name string
	}{
		{fmt.Errorf("%w: x", domain.ErrInvalidArgument), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{fmt.Errorf("op=a: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{domain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{domain.ErrNotConfigured, http.StatusServiceUnavailable, "NOT_CONFIGURED"},
		{&domain.TransportError{Err: errors.New("dial"), Timeout: true}, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"},
		{&domain.TransportError{Err: errors.New("dial")}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{&domain.APIError{StatusCode: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{domain.ErrSchemaInvalid, http.StatusBadGateway, "SCHEMA_INVALID"},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{errors.New("mystery"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		code, name := statusOf(c.err)
		assert.Equal(t, c.code, code, c.err.Error())
		assert.Equal(t, c.name, name, c.err.Error())
	}
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("secret dsn"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(domain.NewID()))
	for _, bad := range []string{"", "abc", strings.Repeat("Z", 26), "01ARZ3NDEKTSV4RRFFQ69G5FA!"} {
		assert.ErrorIs(t, ValidateID(bad), domain.ErrInvalidArgument, bad)
	}
}

func TestDecodeBody(t *testing.T) {
	type body struct {
		Name string `json:"name" validate:"required"`
	}
	decode := func(raw string) (map[string]string, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var b body
		return decodeBody(httptest.NewRecorder(), req, &b)
	}

	_, err := decode("")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = decode("{")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	details, err := decode("{}")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, map[string]string{"name": "required"}, details)
	details, err = decode(`{"name": "x"}`)
	assert.NoError(t, err)
	assert.Nil(t, details)

	big := `{"name": "` + string(bytes.Repeat([]byte("a"), maxJSONBody)) + `"}`
	_, err = decode(big)
	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, err, &tooLarge)
}
