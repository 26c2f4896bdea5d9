// Package engine runs sessions: it builds prompts, sends them to the
// generative backend, validates the answers and applies them to the session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tatianab/questforge/internal/config"
	"github.com/tatianab/questforge/internal/contract"
	"github.com/tatianab/questforge/internal/generate"
	"github.com/tatianab/questforge/internal/models"
)

const (
	MaxOwnerName    = 50
	MaxActionLength = 500
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidState = errors.New("session has ended")
	ErrInvalidInput = errors.New("invalid input")
)

// Backend produces raw turn text. ok is false when the backend failed.
type Backend interface {
	Generate(ctx context.Context, prompt string, mode generate.Mode) (text string, ok bool)
}

// SessionStore holds sessions between turns.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, bool)
	Put(ctx context.Context, s *models.Session)
}

type Orchestrator struct {
	backend         Backend
	store           SessionStore
	rules           *config.Rules
	locks           *sessionLocks
	logger          *log.Logger
	now             func() time.Time
	newID           func() string
	defaultLanguage string
	tracer          trace.Tracer
}

type Option func(*Orchestrator)

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithIDs replaces the session id generator.
func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) {
		o.newID = newID
	}
}

func WithDefaultLanguage(tag string) Option {
	return func(o *Orchestrator) {
		o.defaultLanguage = config.NormalizeLanguage(tag, "en")
	}
}

func New(backend Backend, store SessionStore, rules *config.Rules, opts ...Option) *Orchestrator {
	if rules == nil {
		rules = config.DefaultRules()
	}
	o := &Orchestrator{
		backend:         backend,
		store:           store,
		rules:           rules,
		locks:           newSessionLocks(),
		logger:          log.Default(),
		now:             time.Now,
		newID:           uuid.NewString,
		defaultLanguage: "en",
		tracer:          otel.Tracer("github.com/tatianab/questforge/internal/engine"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rules returns the game rules the orchestrator plays by.
func (o *Orchestrator) Rules() *config.Rules {
	return o.rules
}

// ValidOwnerName reports whether name is an acceptable display name.
func ValidOwnerName(name string) bool {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	return n >= 1 && n <= MaxOwnerName && !hasControl(name)
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// StartSession creates a session and plays its opening turn.
func (o *Orchestrator) StartSession(ctx context.Context, owner string, kind models.ScenarioKind, language string) (*models.PublicState, error) {
	ctx, span := o.tracer.Start(ctx, "engine.StartSession")
	defer span.End()

	owner = strings.TrimSpace(owner)
	if !ValidOwnerName(owner) {
		return nil, fmt.Errorf("%w: owner name must be 1-%d characters without control characters", ErrInvalidInput, MaxOwnerName)
	}
	sc, ok := o.rules.Scenario(kind)
	if !kind.Valid() || !ok {
		return nil, fmt.Errorf("%w: unknown scenario %q", ErrInvalidInput, kind)
	}

	now := o.now()
	sess := &models.Session{
		ID:          o.newID(),
		OwnerName:   owner,
		Scenario:    kind,
		Language:    config.NormalizeLanguage(language, o.defaultLanguage),
		Vitality:    models.MaxVitality,
		Possessions: []string{},
		TurnIndex:   1,
		IsAlive:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sess.CurrentNodeID = sess.Graph.AddNode(sc.StartLocation, contract.Category(sc.StartCategory))
	sess.CurrentNode().Visited = true
	span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("session.scenario", string(kind)))

	prompt, err := renderOpening(sess, sc)
	if err != nil {
		return nil, fmt.Errorf("render opening prompt: %w", err)
	}
	d := o.delta(ctx, prompt, generate.ModeOpening)
	span.SetAttributes(attribute.Bool("turn.fallback", d.Kind == contract.Fallback))

	// The opening turn sets the scene only; vitality and termination start fresh.
	sess.Narrative = d.Narrative
	sess.Choices = d.Choices
	sess.Scene = d.Scene
	for _, item := range d.Gained {
		sess.AddPossession(item)
	}
	if d.Kind == contract.Validated && d.Location != nil {
		node := sess.CurrentNode()
		node.Label = models.Truncate(d.Location.Label, models.MaxNodeLabel)
		node.Category = contract.Category(d.Location.Category)
	}
	o.fillScene(sess)
	sess.AppendLog(d.Narrative, "")
	o.score(sess)

	o.store.Put(ctx, sess)
	return sess.Public(), nil
}

// ProcessAction plays one turn. Turns on the same session are serialized.
func (o *Orchestrator) ProcessAction(ctx context.Context, id, action string) (*models.PublicState, error) {
	ctx, span := o.tracer.Start(ctx, "engine.ProcessAction", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	action = models.Truncate(action, MaxActionLength)
	if action == "" {
		return nil, fmt.Errorf("%w: action must not be empty", ErrInvalidInput)
	}

	unlock := o.locks.lock(id)
	defer unlock()

	sess, ok := o.store.Get(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Terminal() {
		return nil, ErrInvalidState
	}
	sc, _ := o.rules.Scenario(sess.Scenario)

	prompt, err := renderTurn(sess, sc, o.rules.MaxTurns, action)
	if err != nil {
		return nil, fmt.Errorf("render turn prompt: %w", err)
	}
	d := o.delta(ctx, prompt, generate.ModeTurn)

	o.apply(sess, d, action)
	span.SetAttributes(
		attribute.Int("turn.index", sess.TurnIndex),
		attribute.Bool("turn.fallback", d.Kind == contract.Fallback),
		attribute.String("session.status", string(sess.Status())),
	)
	if d.Kind == contract.Fallback {
		o.logger.Printf("WARN: session %s turn %d used the fallback narrative", sess.ID, sess.TurnIndex)
	}

	o.store.Put(ctx, sess)
	return sess.Public(), nil
}

// GetState returns the public view of a session.
func (o *Orchestrator) GetState(ctx context.Context, id string) (*models.PublicState, error) {
	sess, ok := o.store.Get(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Public(), nil
}

func (o *Orchestrator) delta(ctx context.Context, prompt string, mode generate.Mode) contract.Delta {
	if o.backend == nil {
		return contract.FallbackDelta()
	}
	raw, ok := o.backend.Generate(ctx, prompt, mode)
	if !ok {
		return contract.FallbackDelta()
	}
	return contract.ValidateTurn(raw)
}

// apply folds a validated delta into an active session.
func (o *Orchestrator) apply(sess *models.Session, d contract.Delta, action string) {
	sess.ApplyVitality(d.VitalityDelta)
	for _, item := range d.Gained {
		sess.AddPossession(item)
	}
	for _, item := range d.Lost {
		sess.RemovePossession(item)
	}
	sess.TurnIndex++
	sess.Narrative = d.Narrative
	sess.Choices = d.Choices
	sess.Scene = d.Scene
	sess.AppendLog(d.Narrative, action)

	if d.Location != nil {
		o.move(sess, d.Location)
	}
	o.fillScene(sess)

	switch {
	case sess.Vitality == models.MinVitality:
		sess.IsAlive = false
	case d.Terminal || sess.TurnIndex >= o.rules.MaxTurns:
		sess.IsComplete = true
	}
	if sess.Terminal() {
		sess.Choices = nil
	}
	o.score(sess)
	sess.UpdatedAt = o.now()
}

// move reuses the node labelled loc.Label or creates it, connects it to the
// current node and makes it current.
func (o *Orchestrator) move(sess *models.Session, loc *contract.LocationUpdate) {
	label := models.Truncate(loc.Label, models.MaxNodeLabel)
	if label == "" {
		return
	}
	var id string
	if n := sess.Graph.FindByLabel(label); n != nil {
		id = n.ID
	} else {
		id = sess.Graph.AddNode(label, contract.Category(loc.Category))
	}
	sess.Graph.Connect(sess.CurrentNodeID, id)
	sess.CurrentNodeID = id
	sess.CurrentNode().Visited = true
}

func (o *Orchestrator) fillScene(sess *models.Session) {
	n := sess.CurrentNode()
	if n == nil {
		return
	}
	if sess.Scene.LocationName == "" {
		sess.Scene.LocationName = n.Label
	}
	if sess.Scene.LocationCategory == "" || sess.Scene.LocationCategory == contract.DefaultCategory {
		sess.Scene.LocationCategory = n.Category
	}
}

func (o *Orchestrator) score(sess *models.Session) {
	sess.Score += o.rules.TurnScore
	for _, m := range newMilestones(sess, o.rules.Thresholds) {
		sess.Milestones = append(sess.Milestones, m)
		sess.Score += o.rules.MilestoneScore
	}
}
