package models

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func newSession() *Session {
	s := &Session{
		ID:        "s1",
		OwnerName: "Max",
		Scenario:  ScenarioFantasy,
		Vitality:  100,
		TurnIndex: 1,
		IsAlive:   true,
	}
	s.CurrentNodeID = s.Graph.AddNode("Village Gate", "town")
	return s
}

func TestSessionYAML(t *testing.T) {
	session := newSession()
	session.AddPossession("map")
	session.AppendLog("You stand at the gate.", "")
	second := session.Graph.AddNode("Dark Forest", "forest")
	session.Graph.Connect(session.CurrentNodeID, second)

	data, err := yaml.Marshal(session)
	if err != nil {
		t.Fatalf("Failed to marshal session: %v", err)
	}

	var session2 Session
	if err := yaml.Unmarshal(data, &session2); err != nil {
		t.Fatalf("Failed to unmarshal session: %v", err)
	}

	if session2.OwnerName != session.OwnerName {
		t.Errorf("Expected owner %s, got %s", session.OwnerName, session2.OwnerName)
	}
	if len(session2.Log) != 1 {
		t.Errorf("Expected 1 log entry, got %d", len(session2.Log))
	}
	if !session2.Graph.Symmetric() {
		t.Errorf("Expected symmetric graph after round trip")
	}
}

func TestPossessionsStayDistinct(t *testing.T) {
	s := newSession()
	for _, item := range []string{"torch", "rope", "torch", "", "rope"} {
		s.AddPossession(item)
	}
	if got := len(s.Possessions); got != 2 {
		t.Fatalf("Expected 2 possessions, got %d (%v)", got, s.Possessions)
	}
	if s.Possessions[0] != "torch" || s.Possessions[1] != "rope" {
		t.Errorf("Insertion order not preserved: %v", s.Possessions)
	}

	s.RemovePossession("lantern")
	s.RemovePossession("torch")
	if len(s.Possessions) != 1 || s.Possessions[0] != "rope" {
		t.Errorf("Unexpected possessions after removal: %v", s.Possessions)
	}
}

func TestApplyVitalityClamps(t *testing.T) {
	s := newSession()
	s.ApplyVitality(50)
	if s.Vitality != 100 {
		t.Errorf("Expected 100, got %d", s.Vitality)
	}
	s.ApplyVitality(-250)
	if s.Vitality != 0 {
		t.Errorf("Expected 0, got %d", s.Vitality)
	}
}

func TestConnectIsSymmetric(t *testing.T) {
	var g Graph
	a := g.AddNode("A", "field")
	b := g.AddNode("B", "field")
	c := g.AddNode("C", "field")
	g.Connect(a, b)
	g.Connect(b, c)
	g.Connect(b, a)
	g.Connect(c, c)
	g.Connect(a, "node_99")

	if !g.Symmetric() {
		t.Fatalf("graph is not symmetric: %+v", g.Nodes)
	}
	if n := g.Node(b); len(n.Neighbors) != 2 {
		t.Errorf("Expected B to have 2 neighbours, got %v", n.Neighbors)
	}
	if n := g.Node(c); len(n.Neighbors) != 1 {
		t.Errorf("Self loop recorded on C: %v", n.Neighbors)
	}
	if g.Node(c).Position != (Position{X: 2, Y: 0}) {
		t.Errorf("Unexpected position %+v", g.Node(c).Position)
	}
}

func TestCloneDoesNotShare(t *testing.T) {
	s := newSession()
	s.AddPossession("torch")
	c := s.Clone()
	c.AddPossession("rope")
	c.Graph.AddNode("Elsewhere", "field")
	c.Graph.Nodes[0].Neighbors = append(c.Graph.Nodes[0].Neighbors, "node_1")

	if len(s.Possessions) != 1 || len(s.Graph.Nodes) != 1 || len(s.Graph.Nodes[0].Neighbors) != 0 {
		t.Errorf("Clone shares state with the original: %+v", s)
	}
}

func TestPublicStatus(t *testing.T) {
	s := newSession()
	if got := s.Public().Status; got != StatusActive {
		t.Errorf("Expected active, got %s", got)
	}
	s.IsComplete = true
	if got := s.Public().Status; got != StatusCompleted {
		t.Errorf("Expected completed, got %s", got)
	}
	s.IsAlive = false
	if got := s.Public().Status; got != StatusDefeated {
		t.Errorf("Expected defeated, got %s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("  héllo wörld  ", 5); got != "héllo" {
		t.Errorf("Expected héllo, got %q", got)
	}
	if got := Truncate("short", 40); got != "short" {
		t.Errorf("Expected short, got %q", got)
	}
}
