// Package graph renders the intake flow as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// Overlay marks the progress of one session on the diagram.
type Overlay struct {
	VisitedSteps []domain.Step
	CurrentStep  domain.Step
}

// OverlayFor derives the overlay for a stored session: every step before the
// current one counts as visited.
func OverlayFor(s *domain.Session) *Overlay {
	o := &Overlay{CurrentStep: s.Step}
	for _, step := range domain.StepOrder {
		if step.Before(s.Step) {
			o.VisitedSteps = append(o.VisitedSteps, step)
		}
	}
	return o
}

// GenerateMermaid produces the flowchart of the fixed step sequence.
// Shapes:
// - start and end: ((Circle))
// - steps that ask for input: [/Parallelogram/]
// - summary: [Rectangle]
//
// Failed validation loops back on the step, and exhausting the retries
// restarts at the name step (dotted).
func GenerateMermaid(overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, step := range domain.StepOrder {
		opener, closer := "[", "]"
		switch {
		case step == domain.StepStart || step == domain.StepEnd:
			opener, closer = "((", "))"
		case isInput(step):
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", nodeID(step), opener, step, closer)
	}

	for _, step := range domain.StepOrder {
		next, ok := step.Next()
		if !ok {
			continue
		}
		if isInput(step) {
			fmt.Fprintf(&sb, "    %s -- \"valid\" --> %s\n", nodeID(step), nodeID(next))
			fmt.Fprintf(&sb, "    %s -- \"invalid\" --> %s\n", nodeID(step), nodeID(step))
			fmt.Fprintf(&sb, "    %s -. \"max retries\" .-> %s\n", nodeID(step), nodeID(domain.StepName))
			continue
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", nodeID(step), nodeID(next))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[domain.Step]bool)
		for _, step := range overlay.VisitedSteps {
			if !step.Valid() || seen[step] || step == overlay.CurrentStep {
				continue
			}
			seen[step] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(step))
		}
		if overlay.CurrentStep.Valid() {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

// nodeID prefixes the step name; a bare "end" is a Mermaid keyword.
func nodeID(step domain.Step) string {
	return "step_" + string(step)
}

func isInput(step domain.Step) bool {
	switch step {
	case domain.StepName, domain.StepEmail, domain.StepPhone, domain.StepService:
		return true
	}
	return false
}
