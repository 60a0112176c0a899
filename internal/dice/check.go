package dice

// Outcome is the qualitative band of a check.
type Outcome string

const (
	OutcomeCritSuccess Outcome = "crit_success"
	OutcomeSuccess     Outcome = "success"
	OutcomePartial     Outcome = "partial"
	OutcomeFail        Outcome = "fail"
)

// CheckResult carries everything the narration hint needs about a roll.
type CheckResult struct {
	D20        int     `json:"d20"`
	StyleRolls []int   `json:"style_rolls"`
	StyleSum   int     `json:"style_sum"`
	Total      int     `json:"total"`
	DC         int     `json:"dc"`
	Margin     int     `json:"margin"`
	Outcome    Outcome `json:"outcome"`
	Style      int     `json:"style"`
	Domain     int     `json:"domain"`
}

// ResolveCheck runs the shared roll resolution: one d20 plus style
// independent domain dice against a DC.
//
// Bands: d20==20 or margin >= 5 is a crit; margin >= 0 success;
// margin >= -3 partial; else fail.
func ResolveCheck(r *Roller, style, domainSides, dc int) CheckResult {
	if style < 0 {
		style = 0
	}
	if style > 3 {
		style = 3
	}
	d20 := r.Die(20)
	var styleRolls []int
	styleSum := 0
	for i := 0; i < style; i++ {
		v := r.Die(domainSides)
		styleRolls = append(styleRolls, v)
		styleSum += v
	}
	total := d20 + styleSum
	margin := total - dc

	var outcome Outcome
	switch {
	case d20 == 20 || margin >= 5:
		outcome = OutcomeCritSuccess
	case margin >= 0:
		outcome = OutcomeSuccess
	case margin >= -3:
		outcome = OutcomePartial
	default:
		outcome = OutcomeFail
	}

	return CheckResult{
		D20:        d20,
		StyleRolls: styleRolls,
		StyleSum:   styleSum,
		Total:      total,
		DC:         dc,
		Margin:     margin,
		Outcome:    outcome,
		Style:      style,
		Domain:     domainSides,
	}
}

// UpgradeFailToPartial lifts a fail to partial; scrolls always at least
// partially succeed.
func UpgradeFailToPartial(c CheckResult) CheckResult {
	if c.Outcome == OutcomeFail {
		c.Outcome = OutcomePartial
	}
	return c
}

// Dump renders the check for a narration hint dice block.
func (c CheckResult) Dump() map[string]interface{} {
	rolls := c.StyleRolls
	if rolls == nil {
		rolls = []int{}
	}
	return map[string]interface{}{
		"d20":         c.D20,
		"style_rolls": rolls,
		"style_sum":   c.StyleSum,
		"total":       c.Total,
		"dc":          c.DC,
		"margin":      c.Margin,
		"outcome":     string(c.Outcome),
		"style":       c.Style,
		"domain":      c.Domain,
	}
}
