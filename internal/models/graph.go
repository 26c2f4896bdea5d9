package models

import (
	"fmt"
	"slices"
	"strings"
)

// MaxNodeLabel bounds location labels stored on the map.
const MaxNodeLabel = 40

const gridWidth = 5

// Position places a node on the rendered map grid.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Node is a location on the exploration graph.
type Node struct {
	ID        string   `json:"id" yaml:"id"`
	Label     string   `json:"label" yaml:"label"`
	Category  string   `json:"category" yaml:"category"`
	Visited   bool     `json:"visited" yaml:"visited"`
	Neighbors []string `json:"neighbors" yaml:"neighbors"`
	Position  Position `json:"position" yaml:"position"`
}

// Graph is the bi-directional exploration map. Edges are only added through
// Connect so both directions are always present.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// FindByLabel looks a node up by label, ignoring case and surrounding space.
func (g *Graph) FindByLabel(label string) *Node {
	label = strings.TrimSpace(label)
	for i := range g.Nodes {
		if strings.EqualFold(g.Nodes[i].Label, label) {
			return &g.Nodes[i]
		}
	}
	return nil
}

// AddNode appends a new node laid out on the next grid cell and returns its id.
func (g *Graph) AddNode(label, category string) string {
	n := len(g.Nodes)
	id := fmt.Sprintf("node_%d", n)
	g.Nodes = append(g.Nodes, Node{
		ID:        id,
		Label:     Truncate(label, MaxNodeLabel),
		Category:  category,
		Neighbors: []string{},
		Position:  Position{X: n % gridWidth, Y: n / gridWidth},
	})
	return id
}

// Connect adds the edge a-b in both directions. Self loops and unknown ids
// are ignored.
func (g *Graph) Connect(a, b string) {
	if a == b {
		return
	}
	na, nb := g.Node(a), g.Node(b)
	if na == nil || nb == nil {
		return
	}
	if !slices.Contains(na.Neighbors, b) {
		na.Neighbors = append(na.Neighbors, b)
	}
	if !slices.Contains(nb.Neighbors, a) {
		nb.Neighbors = append(nb.Neighbors, a)
	}
}

// Symmetric reports whether every edge has its reverse edge.
func (g *Graph) Symmetric() bool {
	for _, n := range g.Nodes {
		for _, id := range n.Neighbors {
			other := g.Node(id)
			if other == nil || !slices.Contains(other.Neighbors, n.ID) {
				return false
			}
		}
	}
	return true
}

func (g Graph) Clone() Graph {
	if g.Nodes == nil {
		return Graph{}
	}
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Neighbors = slices.Clone(n.Neighbors)
		nodes[i] = n
	}
	return Graph{Nodes: nodes}
}
