package graph

import (
	"fmt"
	"strings"

	"github.com/nodus-reseau/leadform/pkg/domain"
)

// Node IDs of the screens that are not steps.
const (
	SplashNode    = "splash"
	RecapNode     = "recap"
	SubmittedNode = "submitted"
)

// Overlay contains dynamic state data to visualize on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayOf marks the steps before the cursor as visited and the displayed screen as current.
func OverlayOf(s *domain.State) *Overlay {
	o := &Overlay{}
	steps := s.Steps()
	for i := 0; i < s.Cursor && i < len(steps); i++ {
		o.VisitedNodes = append(o.VisitedNodes, nodeID(steps[i]))
	}
	switch s.Phase {
	case domain.PhaseLoading:
		o.CurrentNode = SplashNode
	case domain.PhaseActive:
		if step, ok := s.CurrentStep(); ok {
			o.CurrentNode = nodeID(step)
		}
	case domain.PhaseRecap:
		o.CurrentNode = RecapNode
	case domain.PhaseSubmitted:
		o.VisitedNodes = append(o.VisitedNodes, RecapNode)
		o.CurrentNode = SubmittedNode
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the form: the common steps,
// the class step variant of each persona, the recap and the confirmation.
// Shapes:
// - Splash and confirmation: ((Circle))
// - Choice step: {Rhombus}
// - Free-text step: [/Parallelogram/]
// - Recap: [Rectangle]
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"Chargement\"))\n", SplashNode)

	prev := SplashNode
	base := domain.BaseSteps()
	for _, step := range base {
		writeStep(&sb, step)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, nodeID(step))
		prev = nodeID(step)
	}

	fmt.Fprintf(&sb, "    %s[\"Récapitulatif\"]\n", RecapNode)
	fmt.Fprintf(&sb, "    %s((\"Envoyé\"))\n", SubmittedNode)

	// One edge per class variant, labelled with the personas that share it.
	var variants []domain.Step
	personas := map[string][]string{}
	for _, opt := range domain.PersonaOptions {
		step, ok := domain.ClassStep(domain.Persona(opt.Value))
		if !ok {
			fmt.Fprintf(&sb, "    %s -- %q --> %s\n", prev, opt.Label, RecapNode)
			continue
		}
		id := nodeID(step)
		if _, seen := personas[id]; !seen {
			variants = append(variants, step)
		}
		personas[id] = append(personas[id], opt.Label)
	}
	for _, step := range variants {
		id := nodeID(step)
		writeStep(&sb, step)
		fmt.Fprintf(&sb, "    %s -- %q --> %s\n", prev, strings.Join(personas[id], " / "), id)
		fmt.Fprintf(&sb, "    %s --> %s\n", id, RecapNode)
	}

	fmt.Fprintf(&sb, "    %s -. \"modifier\" .-> %s\n", RecapNode, nodeID(base[0]))
	fmt.Fprintf(&sb, "    %s --> %s\n", RecapNode, SubmittedNode)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			if id != "" && !visited[id] {
				visited[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", overlay.CurrentNode)
		}
	}
	return sb.String()
}

func writeStep(sb *strings.Builder, step domain.Step) {
	label := strings.ReplaceAll(step.Prompt, "\"", "'")
	if step.IsChoice() {
		fmt.Fprintf(sb, "    %s{\"%s\"}\n", nodeID(step), label)
		return
	}
	fmt.Fprintf(sb, "    %s[/\"%s\"/]\n", nodeID(step), label)
}

// nodeID is the field name, suffixed by the input kind for the class variants.
func nodeID(step domain.Step) string {
	if step.ID == domain.FieldClasse {
		return fmt.Sprintf("%s_%s", step.ID, step.Kind)
	}
	return string(step.ID)
}
