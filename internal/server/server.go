// Package server exposes the game over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/tatianab/questforge/internal/engine"
	"github.com/tatianab/questforge/internal/media"
	"github.com/tatianab/questforge/internal/models"
)

const (
	ServiceName = "questforge"

	maxSpeechText    = 2000
	maxTranslateText = 5000
	maxImagePrompt   = 500
)

// Engine is the session API the handlers drive.
type Engine interface {
	StartSession(ctx context.Context, owner string, kind models.ScenarioKind, language string) (*models.PublicState, error)
	ProcessAction(ctx context.Context, id, action string) (*models.PublicState, error)
	GetState(ctx context.Context, id string) (*models.PublicState, error)
}

// Info describes the running service for the health probe.
type Info struct {
	Version   string
	Generator string
	Durable   string
}

// Handler handles the public game API.
type Handler struct {
	engine  Engine
	media   *media.Service
	info    Info
	started time.Time
}

// NewHandler creates a handler. A nil media service disables the auxiliary
// endpoints.
func NewHandler(eng Engine, svc *media.Service, info Info) *Handler {
	return &Handler{
		engine:  eng,
		media:   svc,
		info:    info,
		started: time.Now(),
	}
}

// New builds the echo server with middleware and routes.
func New(h *Handler, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	useMiddleware(e, opts)
	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes registers the game routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Sessions
	e.POST("/api/game/start", h.StartGame)
	e.POST("/api/game/action", h.TakeAction)
	e.GET("/api/game/:id", h.GetGame)

	// Auxiliary transforms
	e.POST("/api/game/tts", h.Narrate)
	e.POST("/api/game/translate", h.Translate)
	e.POST("/api/game/image", h.Illustrate)

	e.GET(healthPath, h.Health)
}

type startRequest struct {
	PlayerName string `json:"player_name"`
	Scenario   string `json:"scenario"`
	Language   string `json:"language"`
}

type actionRequest struct {
	SessionID string `json:"session_id"`
	Action    string `json:"action"`
}

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func errorJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// engineError maps orchestrator errors to HTTP responses.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return errorJSON(c, http.StatusNotFound, "game session not found")
	case errors.Is(err, engine.ErrInvalidState):
		return errorJSON(c, http.StatusBadRequest, "game is over, start a new adventure")
	case errors.Is(err, engine.ErrInvalidInput):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		c.Logger().Errorf("unexpected engine error: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

// mediaError maps auxiliary failures; a missing capability is 503.
func mediaError(c echo.Context, err error) error {
	if errors.Is(err, media.ErrDisabled) {
		return errorJSON(c, http.StatusServiceUnavailable, "this feature is not enabled")
	}
	c.Logger().Errorf("auxiliary request failed: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "the request could not be completed")
}

// validText reports whether s is 1..maxLen runes after trimming and free of
// control characters.
func validText(s string, maxLen int) bool {
	s = strings.TrimSpace(s)
	n := len([]rune(s))
	return n >= 1 && n <= maxLen && strings.IndexFunc(s, unicode.IsControl) < 0
}

func validLanguage(tag string) bool {
	if n := len(tag); n < 2 || n > 10 {
		return false
	}
	_, err := language.Parse(tag)
	return err == nil
}

// StartGame handles POST /api/game/start.
func (h *Handler) StartGame(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if !engine.ValidOwnerName(req.PlayerName) {
		return errorJSON(c, http.StatusBadRequest, "player_name must be 1-50 characters without control characters")
	}
	kind := models.ScenarioKind(strings.ToLower(strings.TrimSpace(req.Scenario)))
	if !kind.Valid() {
		return errorJSON(c, http.StatusBadRequest, "unknown scenario")
	}
	if req.Language != "" && !validLanguage(req.Language) {
		return errorJSON(c, http.StatusBadRequest, "invalid language code")
	}

	st, err := h.engine.StartSession(c.Request().Context(), req.PlayerName, kind, req.Language)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// TakeAction handles POST /api/game/action.
func (h *Handler) TakeAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return errorJSON(c, http.StatusBadRequest, "session_id is required")
	}
	if !validText(req.Action, engine.MaxActionLength) {
		return errorJSON(c, http.StatusBadRequest, "action must be 1-500 characters without control characters")
	}

	st, err := h.engine.ProcessAction(c.Request().Context(), req.SessionID, req.Action)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// GetGame handles GET /api/game/:id.
func (h *Handler) GetGame(c echo.Context) error {
	st, err := h.engine.GetState(c.Request().Context(), c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Narrate handles POST /api/game/tts.
func (h *Handler) Narrate(c echo.Context) error {
	if !h.media.Features().TTS {
		return mediaError(c, media.ErrDisabled)
	}
	var req speechRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if n := len([]rune(strings.TrimSpace(req.Text))); n < 1 || n > maxSpeechText {
		return errorJSON(c, http.StatusBadRequest, "text must be 1-2000 characters")
	}
	lang := "en-US"
	if req.Language != "" {
		if !validLanguage(req.Language) {
			return errorJSON(c, http.StatusBadRequest, "invalid language code")
		}
		lang = req.Language
	}

	audio, err := h.media.Narrate(c.Request().Context(), strings.TrimSpace(req.Text), lang)
	if err != nil {
		return mediaError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"audio_content": base64.StdEncoding.EncodeToString(audio),
		"content_type":  "audio/mpeg",
	})
}

// Translate handles POST /api/game/translate.
func (h *Handler) Translate(c echo.Context) error {
	if !h.media.Features().Translate {
		return mediaError(c, media.ErrDisabled)
	}
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if n := len([]rune(strings.TrimSpace(req.Text))); n < 1 || n > maxTranslateText {
		return errorJSON(c, http.StatusBadRequest, "text must be 1-5000 characters")
	}
	if !validLanguage(req.TargetLanguage) {
		return errorJSON(c, http.StatusBadRequest, "invalid target_language")
	}

	tr, err := h.media.Translate(c.Request().Context(), req.Text, req.TargetLanguage)
	if err != nil {
		return mediaError(c, err)
	}
	return c.JSON(http.StatusOK, tr)
}

// Illustrate handles POST /api/game/image.
func (h *Handler) Illustrate(c echo.Context) error {
	if !h.media.Features().Imagen {
		return mediaError(c, media.ErrDisabled)
	}
	var req imageRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}
	if !validText(req.Prompt, maxImagePrompt) {
		return errorJSON(c, http.StatusBadRequest, "prompt must be 1-500 characters")
	}

	img, err := h.media.Illustrate(c.Request().Context(), req.Prompt)
	if err != nil {
		return mediaError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
	})
}

type healthFeatures struct {
	media.Features
	Generator string `json:"generator"`
	Durable   string `json:"durable"`
}

type healthResponse struct {
	Status        string         `json:"status"`
	Service       string         `json:"service"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Features      healthFeatures `json:"features"`
}

// Health handles GET /api/health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:        "healthy",
		Service:       ServiceName,
		Version:       h.info.Version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Features: healthFeatures{
			Features:  h.media.Features(),
			Generator: h.info.Generator,
			Durable:   h.info.Durable,
		},
	})
}
