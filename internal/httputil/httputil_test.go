package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondProblem(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/programs", nil)
	w := httptest.NewRecorder()

	RespondProblem(w, req, http.StatusNotFound, "program not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ProblemContentType, w.Header().Get("Content-Type"))

	var p ProblemDetail
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, ProblemDetail{
		Type:     "about:blank",
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   "program not found",
		Instance: "/api/admin/programs",
	}, p)
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "object", body: `{"slug":"a"}`},
		{name: "empty", body: ``, wantErr: "empty"},
		{name: "malformed", body: `{"slug":`, wantErr: "unexpected EOF"},
		{name: "trailing value", body: `{"slug":"a"} {"slug":"b"}`, wantErr: "single JSON value"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tc.body))
			var dst map[string]any
			err := DecodeJSON(req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "a", dst["slug"])
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	var decodeErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v any
		decodeErr = DecodeJSON(r, &v)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"far too long"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Error(t, decodeErr)
	assert.Contains(t, decodeErr.Error(), "exceeds 8 bytes")
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ProblemContentType, w.Header().Get("Content-Type"))
}

func TestRequestLogger_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/programs", nil)
	req.Header.Set("X-Request-Id", "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"request_id":"req-42"`)
	}
	assert.Contains(t, lines[1], `"status":418`)
}

func TestSecureHeaders(t *testing.T) {
	h := SecureHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestProbes(t *testing.T) {
	w := httptest.NewRecorder()
	ReadinessHandler(func() error { return errors.New("store down") }).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "store down")

	w = httptest.NewRecorder()
	VersionHandler("1.2.3", "abc", "today").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.JSONEq(t, `{"version":"1.2.3","commit":"abc","buildDate":"today"}`, w.Body.String())
}
