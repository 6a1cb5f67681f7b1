// Package flowchart computes a deterministic node/edge layout for rendering a
// plan as a flowchart. Phases stack vertically down a center spine with their
// steps fanned out horizontally beneath them; synthetic start and end nodes
// bracket the diagram.
package flowchart

import (
	"fmt"

	"github.com/planweave/planweave/internal/plan"
)

// Config holds the layout spacing constants.
type Config struct {
	NodeWidth         int `json:"nodeWidth"`
	NodeHeight        int `json:"nodeHeight"`
	HorizontalSpacing int `json:"horizontalSpacing"`
	VerticalSpacing   int `json:"verticalSpacing"`
	PhaseSpacing      int `json:"phaseSpacing"`
	StepSpacing       int `json:"stepSpacing"`
}

// DefaultConfig is the spacing used when callers pass no overrides.
var DefaultConfig = Config{
	NodeWidth:         280,
	NodeHeight:        120,
	HorizontalSpacing: 100,
	VerticalSpacing:   80,
	PhaseSpacing:      120,
	StepSpacing:       60,
}

const (
	centerX = 400
	startY  = 100
)

// Synthetic node ids bracketing every diagram.
const (
	StartNodeID = "start"
	EndNodeID   = "end"
)

// NodeType classifies a flowchart node.
type NodeType string

const (
	NodeTypeStart NodeType = "start"
	NodeTypePhase NodeType = "phase"
	NodeTypeStep  NodeType = "step"
	NodeTypeEnd   NodeType = "end"
)

// EdgeType classifies a flowchart edge.
type EdgeType string

const (
	EdgeTypeDefault    EdgeType = "default"
	EdgeTypeDependency EdgeType = "dependency"
)

// Position is a node center point in diagram coordinates.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is a renderable flowchart node.
type Node struct {
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Files       []string `json:"files,omitempty"`
	Children    []string `json:"children,omitempty"`
	Expanded    bool     `json:"expanded,omitempty"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
}

// Edge connects two flowchart nodes.
type Edge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Type     EdgeType `json:"type"`
	Animated bool     `json:"animated,omitempty"`
}

// Layout is the complete computed diagram.
type Layout struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Positions computes the center point of every node. Phases sit on the x=400
// spine; a phase's steps share one row below it, centered as a group on the
// spine. Phases without steps contribute no step row. Output depends only on
// the plan's structure, so recomputing over an unchanged plan yields identical
// coordinates.
func Positions(p *plan.Plan, cfg Config) map[string]Position {
	positions := make(map[string]Position)

	y := startY
	positions[StartNodeID] = Position{X: centerX, Y: y}
	y += cfg.NodeHeight + cfg.PhaseSpacing

	for pi := range p.Phases {
		phase := &p.Phases[pi]
		positions[phase.ID] = Position{X: centerX, Y: y}
		y += cfg.NodeHeight + cfg.VerticalSpacing

		if n := len(phase.Steps); n > 0 {
			totalWidth := n*cfg.NodeWidth + (n-1)*cfg.HorizontalSpacing
			x := centerX - totalWidth/2 + cfg.NodeWidth/2
			for si := range phase.Steps {
				positions[phase.Steps[si].ID] = Position{X: x, Y: y}
				x += cfg.NodeWidth + cfg.HorizontalSpacing
			}
			y += cfg.NodeHeight + cfg.PhaseSpacing
		}
	}

	positions[EndNodeID] = Position{X: centerX, Y: y}
	return positions
}

// Edges generates the diagram's edge list: start to the first phase, each
// phase to its steps and to the next phase, declared dependencies, and the
// last phase to the end node. The spine edge out of an in-progress phase is
// animated.
func Edges(p *plan.Plan) []Edge {
	var edges []Edge

	if len(p.Phases) > 0 {
		edges = append(edges, Edge{
			ID:     fmt.Sprintf("edge-%s-%s", StartNodeID, p.Phases[0].ID),
			Source: StartNodeID,
			Target: p.Phases[0].ID,
			Type:   EdgeTypeDefault,
		})
	}

	for pi := range p.Phases {
		phase := &p.Phases[pi]
		for si := range phase.Steps {
			edges = append(edges, Edge{
				ID:     fmt.Sprintf("edge-%s-%s", phase.ID, phase.Steps[si].ID),
				Source: phase.ID,
				Target: phase.Steps[si].ID,
				Type:   EdgeTypeDefault,
			})
		}
		if pi < len(p.Phases)-1 {
			edges = append(edges, Edge{
				ID:       fmt.Sprintf("edge-%s-%s", phase.ID, p.Phases[pi+1].ID),
				Source:   phase.ID,
				Target:   p.Phases[pi+1].ID,
				Type:     EdgeTypeDefault,
				Animated: phase.Status == plan.PhaseStatusInProgress,
			})
		}
		for _, depID := range phase.Dependencies {
			edges = append(edges, Edge{
				ID:     fmt.Sprintf("edge-dep-%s-%s", depID, phase.ID),
				Source: depID,
				Target: phase.ID,
				Type:   EdgeTypeDependency,
			})
		}
	}

	if len(p.Phases) > 0 {
		last := p.Phases[len(p.Phases)-1]
		edges = append(edges, Edge{
			ID:     fmt.Sprintf("edge-%s-%s", last.ID, EndNodeID),
			Source: last.ID,
			Target: EndNodeID,
			Type:   EdgeTypeDefault,
		})
	}
	return edges
}

// Nodes flattens the plan into flowchart nodes without positions. The start
// node is always completed; the end node completes only once every phase has.
func Nodes(p *plan.Plan) []Node {
	nodes := []Node{{
		ID:     StartNodeID,
		Type:   NodeTypeStart,
		Label:  "Start",
		Status: string(plan.PhaseStatusCompleted),
	}}

	allCompleted := len(p.Phases) > 0
	for pi := range p.Phases {
		phase := &p.Phases[pi]
		if phase.Status != plan.PhaseStatusCompleted {
			allCompleted = false
		}
		children := make([]string, 0, len(phase.Steps))
		for si := range phase.Steps {
			children = append(children, phase.Steps[si].ID)
		}
		nodes = append(nodes, Node{
			ID:          phase.ID,
			Type:        NodeTypePhase,
			Label:       phase.Label,
			Description: phase.Description,
			Status:      string(phase.Status),
			Children:    children,
			Expanded:    phase.Expanded,
		})
		for si := range phase.Steps {
			step := &phase.Steps[si]
			nodes = append(nodes, Node{
				ID:          step.ID,
				Type:        NodeTypeStep,
				Label:       step.Label,
				Description: step.Description,
				Status:      string(step.Status),
				Files:       append([]string(nil), step.Files...),
			})
		}
	}

	endStatus := plan.PhaseStatusPending
	if allCompleted {
		endStatus = plan.PhaseStatusCompleted
	}
	nodes = append(nodes, Node{
		ID:     EndNodeID,
		Type:   NodeTypeEnd,
		Label:  "Complete",
		Status: string(endStatus),
	})
	return nodes
}

// Compute builds the full layout: nodes with positions applied, plus edges.
func Compute(p *plan.Plan, cfg Config) *Layout {
	positions := Positions(p, cfg)
	nodes := Nodes(p)
	for i := range nodes {
		pos := positions[nodes[i].ID]
		nodes[i].X = pos.X
		nodes[i].Y = pos.Y
	}
	return &Layout{Nodes: nodes, Edges: Edges(p)}
}

// Box is the axis-aligned extent of a laid-out diagram.
type Box struct {
	MinX   int `json:"minX"`
	MinY   int `json:"minY"`
	MaxX   int `json:"maxX"`
	MaxY   int `json:"maxY"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundingBox returns the extent covered by the positioned nodes, treating
// each position as a node center.
func BoundingBox(positions map[string]Position, cfg Config) Box {
	first := true
	var box Box
	for _, pos := range positions {
		minX := pos.X - cfg.NodeWidth/2
		minY := pos.Y - cfg.NodeHeight/2
		maxX := pos.X + cfg.NodeWidth/2
		maxY := pos.Y + cfg.NodeHeight/2
		if first {
			box = Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
			first = false
			continue
		}
		if minX < box.MinX {
			box.MinX = minX
		}
		if minY < box.MinY {
			box.MinY = minY
		}
		if maxX > box.MaxX {
			box.MaxX = maxX
		}
		if maxY > box.MaxY {
			box.MaxY = maxY
		}
	}
	box.Width = box.MaxX - box.MinX
	box.Height = box.MaxY - box.MinY
	return box
}
