package models

import (
	"slices"
	"strings"
	"time"
)

// ScenarioKind is the theme a session is played in. The set is closed.
type ScenarioKind string

const (
	ScenarioFantasy ScenarioKind = "fantasy"
	ScenarioSciFi   ScenarioKind = "sci-fi"
	ScenarioMystery ScenarioKind = "mystery"
	ScenarioHorror  ScenarioKind = "horror"
	ScenarioPirate  ScenarioKind = "pirate"
)

// Scenarios lists every accepted scenario kind in display order.
var Scenarios = []ScenarioKind{
	ScenarioFantasy,
	ScenarioSciFi,
	ScenarioMystery,
	ScenarioHorror,
	ScenarioPirate,
}

// Valid reports whether k is one of the known scenario kinds.
func (k ScenarioKind) Valid() bool {
	return slices.Contains(Scenarios, k)
}

// Milestone identifies a one-time achievement from a fixed catalogue.
type Milestone string

const (
	MilestoneFirstSteps Milestone = "first_steps"
	MilestoneExplorer   Milestone = "explorer"
	MilestoneCollector  Milestone = "collector"
	MilestoneSurvivor   Milestone = "survivor"
	MilestoneBraveHeart Milestone = "brave_heart"
	MilestoneFullHealth Milestone = "full_health"
)

// Milestones is the closed catalogue, in evaluation order.
var Milestones = []Milestone{
	MilestoneFirstSteps,
	MilestoneExplorer,
	MilestoneCollector,
	MilestoneSurvivor,
	MilestoneBraveHeart,
	MilestoneFullHealth,
}

// Status is the coarse state machine position of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusDefeated  Status = "defeated"
	StatusCompleted Status = "completed"
)

const (
	MinVitality = 0
	MaxVitality = 100
)

// SceneMetadata describes the presentation hints for the current scene.
type SceneMetadata struct {
	SceneType        string `json:"scene_type" yaml:"scene_type"`
	Mood             string `json:"mood" yaml:"mood"`
	LocationName     string `json:"location_name" yaml:"location_name"`
	LocationCategory string `json:"location_category" yaml:"location_category"`
	NPCName          string `json:"npc_name,omitempty" yaml:"npc_name,omitempty"`
	NPCType          string `json:"npc_type,omitempty" yaml:"npc_type,omitempty"`
	ItemFound        string `json:"item_found,omitempty" yaml:"item_found,omitempty"`
	Weather          string `json:"weather" yaml:"weather"`
}

// NarrativeEntry is a single turn in the narrative log.
type NarrativeEntry struct {
	TurnIndex int    `json:"turn_index" yaml:"turn_index"`
	Text      string `json:"text" yaml:"text"`
	Action    string `json:"player_action,omitempty" yaml:"player_action,omitempty"` // empty for the opening turn
}

// Session is one player's game. It is mutated only by the orchestrator.
type Session struct {
	ID            string           `json:"id" yaml:"id"`
	OwnerName     string           `json:"owner_name" yaml:"owner_name"`
	Scenario      ScenarioKind     `json:"scenario_kind" yaml:"scenario_kind"`
	Language      string           `json:"language" yaml:"language"`
	Vitality      int              `json:"vitality" yaml:"vitality"`
	Possessions   []string         `json:"possessions" yaml:"possessions"`
	TurnIndex     int              `json:"turn_index" yaml:"turn_index"`
	Narrative     string           `json:"narrative" yaml:"narrative"`
	Choices       []string         `json:"choices" yaml:"choices"`
	Scene         SceneMetadata    `json:"scene_metadata" yaml:"scene_metadata"`
	Log           []NarrativeEntry `json:"narrative_log" yaml:"narrative_log"`
	IsAlive       bool             `json:"is_alive" yaml:"is_alive"`
	IsComplete    bool             `json:"is_complete" yaml:"is_complete"`
	Graph         Graph            `json:"exploration_graph" yaml:"exploration_graph"`
	CurrentNodeID string           `json:"current_node_id" yaml:"current_node_id"`
	Score         int              `json:"progress_score" yaml:"progress_score"`
	Milestones    []Milestone      `json:"milestones_achieved" yaml:"milestones_achieved"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" yaml:"updated_at"`
}

// Terminal reports whether the session accepts no further turns.
func (s *Session) Terminal() bool {
	return !s.IsAlive || s.IsComplete
}

func (s *Session) Status() Status {
	switch {
	case !s.IsAlive:
		return StatusDefeated
	case s.IsComplete:
		return StatusCompleted
	default:
		return StatusActive
	}
}

// ApplyVitality adds delta to the vitality and clamps the result to [0, 100].
func (s *Session) ApplyVitality(delta int) {
	s.Vitality = ClampVitality(s.Vitality + delta)
}

// ClampVitality bounds v to the vitality range.
func ClampVitality(v int) int {
	return max(MinVitality, min(MaxVitality, v))
}

// AddPossession appends label unless an entry with the same label exists.
func (s *Session) AddPossession(label string) {
	if label == "" || slices.Contains(s.Possessions, label) {
		return
	}
	s.Possessions = append(s.Possessions, label)
}

// RemovePossession removes label if present.
func (s *Session) RemovePossession(label string) {
	if i := slices.Index(s.Possessions, label); i >= 0 {
		s.Possessions = slices.Delete(s.Possessions, i, i+1)
	}
}

// HasMilestone reports whether m was already recorded.
func (s *Session) HasMilestone(m Milestone) bool {
	return slices.Contains(s.Milestones, m)
}

// AppendLog records a turn in the narrative log.
func (s *Session) AppendLog(text, action string) {
	s.Log = append(s.Log, NarrativeEntry{
		TurnIndex: s.TurnIndex,
		Text:      text,
		Action:    action,
	})
}

// CurrentNode returns the node the player is at, or nil before the session started.
func (s *Session) CurrentNode() *Node {
	return s.Graph.Node(s.CurrentNodeID)
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Possessions = slices.Clone(s.Possessions)
	out.Choices = slices.Clone(s.Choices)
	out.Log = slices.Clone(s.Log)
	out.Milestones = slices.Clone(s.Milestones)
	out.Graph = s.Graph.Clone()
	return &out
}

// PublicState is the read-only projection returned to clients.
type PublicState struct {
	ID            string        `json:"session_id"`
	Scenario      ScenarioKind  `json:"scenario_kind"`
	Status        Status        `json:"status"`
	Narrative     string        `json:"narrative"`
	Choices       []string      `json:"choices"`
	Vitality      int           `json:"vitality"`
	Possessions   []string      `json:"possessions"`
	TurnIndex     int           `json:"turn_index"`
	IsAlive       bool          `json:"is_alive"`
	IsComplete    bool          `json:"is_complete"`
	Scene         SceneMetadata `json:"scene_metadata"`
	Nodes         []Node        `json:"exploration_graph"`
	CurrentNodeID string        `json:"current_node_id"`
	Milestones    []Milestone   `json:"milestones"`
	Score         int           `json:"progress_score"`
}

// Public projects the session, leaving out the narrative log and language.
func (s *Session) Public() *PublicState {
	c := s.Clone()
	return &PublicState{
		ID:            c.ID,
		Scenario:      c.Scenario,
		Status:        c.Status(),
		Narrative:     c.Narrative,
		Choices:       nonNil(c.Choices),
		Vitality:      c.Vitality,
		Possessions:   nonNil(c.Possessions),
		TurnIndex:     c.TurnIndex,
		IsAlive:       c.IsAlive,
		IsComplete:    c.IsComplete,
		Scene:         c.Scene,
		Nodes:         nonNil(c.Graph.Nodes),
		CurrentNodeID: c.CurrentNodeID,
		Milestones:    nonNil(c.Milestones),
		Score:         c.Score,
	}
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// Truncate shortens s to at most n runes after trimming surrounding space.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
