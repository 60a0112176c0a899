package tools

import (
	"sort"
	"strings"

	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/world"
)

// Candidate is one affordance-filter proposal.
type Candidate struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	ArgsHint    map[string]interface{} `json:"args_hint"`
	Confidence  float64                `json:"confidence"`
}

const escapeHatchConfidence = 0.3

// Candidates returns the tools applicable to the utterance, each with an
// argument hint and a confidence score, sorted by descending confidence
// (ties keep catalog order). Escape hatches are always included. A panic
// in any tool's hooks skips that tool; the filter itself never fails.
func (c *Catalog) Candidates(w *world.GameState, utt Utterance) []Candidate {
	var out []Candidate
	for _, id := range c.order {
		d := c.tools[id]
		cand, ok := c.evaluate(w, utt, d)
		if ok {
			out = append(out, cand)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func (c *Catalog) evaluate(w *world.GameState, utt Utterance, d *Descriptor) (cand Candidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.ToolsWarn("candidate hook panic for %s: %v", d.ID, r)
			ok = false
		}
	}()

	if !d.EscapeHatch {
		if d.Precondition == nil || !d.Precondition(w, utt) {
			return Candidate{}, false
		}
	}

	hint := map[string]interface{}{}
	if d.SuggestArgs != nil {
		if suggested := d.SuggestArgs(w, utt); suggested != nil {
			hint = suggested
		}
	}
	if d.Enrich != nil {
		d.Enrich(w, utt, hint)
	}

	return Candidate{
		ID:          d.ID,
		Description: d.Description,
		ArgsHint:    hint,
		Confidence:  confidence(d, utt),
	}, true
}

// confidence scores a tool: escape hatches are fixed at 0.3, everything
// else starts at 0.5 and gains 0.2 per keyword hit, clamped to [0,1].
func confidence(d *Descriptor, utt Utterance) float64 {
	if d.EscapeHatch {
		return escapeHatchConfidence
	}
	score := 0.5
	lower := strings.ToLower(utt.Text)
	for _, kw := range d.Keywords {
		if strings.Contains(lower, kw) {
			score += 0.2
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}
