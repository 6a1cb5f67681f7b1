package plan

import (
	"fmt"
	"strings"
)

// RenderFinal projects the reviewed subset of a plan into the agent-ready
// markdown document. The output is deterministic: identical plan state always
// yields a byte-identical document, which is what makes fingerprint-keyed
// caching of the result sound.
func RenderFinal(p *Plan, policy ReviewPolicy) string {
	var lines []string

	title := p.Title
	if title == "" {
		title = "Untitled"
	}
	lines = append(lines, "# Final Plan: "+title)
	if p.Description != "" {
		lines = append(lines, "", p.Description)
	}
	status := string(p.Status)
	if status == "" {
		status = string(PlanStatusFinalized)
	}
	lines = append(lines, "", "Status: "+status)
	lines = append(lines, "", "---")

	section := 0
	for _, phase := range p.Phases {
		var accepted []Step
		for _, s := range phase.Steps {
			if policy.Accepted(s.Status) {
				accepted = append(accepted, s)
			}
		}
		if len(accepted) == 0 {
			continue
		}
		section++

		lines = append(lines, "", fmt.Sprintf("## Phase %d: %s", section, phase.Label))
		if phase.Description != "" {
			lines = append(lines, "", phase.Description)
		}
		lines = append(lines, "", "### Steps")
		for i, s := range accepted {
			entry := fmt.Sprintf("- %d. %s", i+1, s.Label)
			if s.Status == StepStatusSkipped {
				entry += " (skipped)"
			}
			lines = append(lines, entry)
			if s.Description != "" {
				lines = append(lines, "  - Action: "+s.Description)
			}
			if len(s.Files) > 0 {
				lines = append(lines, "  - Files: "+strings.Join(s.Files, ", "))
			}
		}
	}

	lines = append(lines, "", "---", "", "> This plan is approved and designed to be fed into a coding agent.")
	return strings.Join(lines, "\n")
}
