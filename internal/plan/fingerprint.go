package plan

import (
	"strconv"
	"strings"
)

// Fingerprint returns a stable hash over the ordered sequence of
// (stepID, status) pairs for every step in the plan. Two plans with the same
// step ids and statuses always produce the same fingerprint; changing any
// single step's status changes it.
//
// The hash is a base-31 rolling hash over the joined pair string, accumulated
// in 32-bit signed arithmetic with wraparound, encoded base-36.
func Fingerprint(p *Plan) string {
	parts := make([]string, 0, p.TotalSteps())
	for _, phase := range p.Phases {
		for _, step := range phase.Steps {
			parts = append(parts, step.ID+":"+string(step.Status))
		}
	}
	joined := strings.Join(parts, "|")

	var h int32
	for _, c := range joined {
		h = h*31 + int32(c)
	}
	return strconv.FormatUint(uint64(uint32(h)), 36)
}
