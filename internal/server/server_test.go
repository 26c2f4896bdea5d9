package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/questforge/internal/engine"
	"github.com/tatianab/questforge/internal/generate"
	"github.com/tatianab/questforge/internal/media"
	"github.com/tatianab/questforge/internal/models"
	"github.com/tatianab/questforge/internal/store"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine() *engine.Orchestrator {
	adapter := generate.NewAdapter(generate.NewMock(), time.Second, quietLogger())
	return engine.New(adapter, store.New(100), nil, engine.WithLogger(quietLogger()))
}

type fakeNarrator struct{}

func (fakeNarrator) Narrate(_ context.Context, text, _ string) ([]byte, error) {
	return []byte("mp3:" + text), nil
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, text, target string) (media.Translation, error) {
	return media.Translation{Text: target + ":" + text, Source: "en"}, nil
}

type fakeIllustrator struct{}

func (fakeIllustrator) Illustrate(context.Context, string) ([]byte, error) {
	return []byte("png"), nil
}

func newTestServer(t *testing.T, svc *media.Service, opts Options) *echo.Echo {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.RatePerMinute == 0 {
		opts.RatePerMinute = 1000
	}
	h := NewHandler(newTestEngine(), svc, Info{Version: "test", Generator: "mock", Durable: "none"})
	return New(h, opts)
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) models.PublicState {
	t.Helper()
	var st models.PublicState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestGameFlow(t *testing.T) {
	e := newTestServer(t, nil, Options{})

	rec := do(e, http.MethodPost, "/api/game/start", `{"player_name":"Max","scenario":"Fantasy"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := decodeState(t, rec)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, 1, st.TurnIndex)
	assert.Equal(t, 100, st.Vitality)
	assert.Equal(t, models.StatusActive, st.Status)
	assert.Len(t, st.Nodes, 1)
	assert.NotContains(t, rec.Body.String(), "narrative_log")

	rec = do(e, http.MethodPost, "/api/game/action", `{"session_id":"`+st.ID+`","action":"look around"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeState(t, rec).TurnIndex)

	rec = do(e, http.MethodGet, "/api/game/"+st.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeState(t, rec).TurnIndex)
}

func TestStartGameValidation(t *testing.T) {
	e := newTestServer(t, nil, Options{})
	cases := map[string]string{
		"empty name":      `{"player_name":"","scenario":"fantasy"}`,
		"long name":       `{"player_name":"` + strings.Repeat("x", 51) + `","scenario":"fantasy"}`,
		"control char":    `{"player_name":"Max\u0000","scenario":"fantasy"}`,
		"unknown genre":   `{"player_name":"Max","scenario":"western"}`,
		"bad language":    `{"player_name":"Max","scenario":"fantasy","language":"x"}`,
		"malformed body":  `{"player_name":`,
		"wrong body type": `["Max"]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/game/start", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestTakeActionErrors(t *testing.T) {
	e := newTestServer(t, nil, Options{})

	rec := do(e, http.MethodPost, "/api/game/action", `{"session_id":"nope","action":"look"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/api/game/action", `{"session_id":"nope","action":"look\u0007"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/game/action", `{"session_id":"nope","action":"`+strings.Repeat("a", 501)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/game/action", `{"action":"look"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/game/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type errEngine struct{ err error }

func (f errEngine) StartSession(context.Context, string, models.ScenarioKind, string) (*models.PublicState, error) {
	return nil, f.err
}

func (f errEngine) ProcessAction(context.Context, string, string) (*models.PublicState, error) {
	return nil, f.err
}

func (f errEngine) GetState(context.Context, string) (*models.PublicState, error) {
	return nil, f.err
}

func TestEngineErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{engine.ErrInvalidState, http.StatusBadRequest},
		{engine.ErrNotFound, http.StatusNotFound},
		{engine.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("disk melted"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := echo.New()
		h := NewHandler(errEngine{err: tc.err}, nil, Info{})
		req := httptest.NewRequest(http.MethodPost, "/api/game/action", bytes.NewBufferString(`{"session_id":"s","action":"go"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, h.TakeAction(c))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
		assert.NotContains(t, rec.Body.String(), "disk melted")
	}
}

func TestGetGameUsesPathParam(t *testing.T) {
	e := echo.New()
	h := NewHandler(newTestEngine(), nil, Info{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	require.NoError(t, h.GetGame(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuxiliaryDisabled(t *testing.T) {
	e := newTestServer(t, nil, Options{})
	for _, path := range []string{"/api/game/tts", "/api/game/translate", "/api/game/image"} {
		rec := do(e, http.MethodPost, path, `{"text":"hi","target_language":"es","prompt":"hi"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestAuxiliaryEnabled(t *testing.T) {
	svc := media.NewService(2,
		media.WithNarrator(fakeNarrator{}),
		media.WithTranslator(fakeTranslator{}),
		media.WithIllustrator(fakeIllustrator{}),
		media.WithLogger(quietLogger()),
	)
	e := newTestServer(t, svc, Options{})

	rec := do(e, http.MethodPost, "/api/game/tts", `{"text":"Hello","language":"en-GB"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var speech map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &speech))
	audio, err := base64.StdEncoding.DecodeString(speech["audio_content"])
	require.NoError(t, err)
	assert.Equal(t, "mp3:Hello", string(audio))

	rec = do(e, http.MethodPost, "/api/game/translate", `{"text":"Hello","target_language":"es"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tr media.Translation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tr))
	assert.Equal(t, "es:Hello", tr.Text)

	rec = do(e, http.MethodPost, "/api/game/translate", `{"text":"Hello","target_language":"not-a-real-language-tag"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/game/image", `{"prompt":"A castle at dawn"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data:image/png;base64,")

	rec = do(e, http.MethodPost, "/api/game/tts", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	svc := media.NewService(1, media.WithTranslator(fakeTranslator{}))
	e := newTestServer(t, svc, Options{})

	rec := do(e, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.Equal(t, map[string]any{
		"tts":       false,
		"translate": true,
		"imagen":    false,
		"generator": "mock",
		"durable":   "none",
	}, body["features"])
}

func TestRateLimitSkipsHealth(t *testing.T) {
	e := newTestServer(t, nil, Options{RatePerMinute: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/game/x", "").Code)
	}
	rec := do(e, http.MethodGet, "/api/game/x", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/health", "").Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := newTestServer(t, nil, Options{})
	rec := do(e, http.MethodGet, "/api/health", "")
	h := rec.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.NotEmpty(t, h.Get("Content-Security-Policy"))
	assert.NotEmpty(t, h.Get("Permissions-Policy"))
}

func TestTraceID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, traceID(r))

	r.Header.Set("X-Cloud-Trace-Context", "105445aa7843bc8bf206b12000100000/1;o=1")
	assert.Equal(t, "105445aa7843bc8bf206b12000100000", traceID(r))

	r.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traceID(r))
}
