package plan

import (
	"fmt"
	"strings"
)

// FormatGrammar renders a plan back into the PLAN/PHASE/STEP grammar that
// Parse consumes. Parsing the result reproduces an equivalent tree (labels,
// types, files, order); ids and timestamps are not representable in the
// grammar and are regenerated on admission.
func FormatGrammar(p *Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PLAN: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&b, "DESCRIPTION: %s\n", p.Description)
	}

	for pi, phase := range p.Phases {
		fmt.Fprintf(&b, "\nPHASE %d: %s\n", pi+1, phase.Label)
		if phase.EstimatedTime != "" {
			fmt.Fprintf(&b, "- Estimated time: %s\n", phase.EstimatedTime)
		}
		if phase.Description != "" {
			fmt.Fprintf(&b, "- Description: %s\n", phase.Description)
		}

		for si, step := range phase.Steps {
			fmt.Fprintf(&b, "STEP %d.%d: %s\n", pi+1, si+1, step.Label)
			fmt.Fprintf(&b, "- Type: %s\n", step.Type)
			if len(step.Files) > 0 {
				fmt.Fprintf(&b, "- Files: %s\n", strings.Join(step.Files, ", "))
			}
			if step.Description != "" {
				fmt.Fprintf(&b, "- Action: %s\n", step.Description)
			}
			for _, cc := range step.CodeChanges {
				fmt.Fprintf(&b, "```%s\n%s\n```\n", cc.Language, cc.Content)
			}
		}
	}

	return b.String()
}
