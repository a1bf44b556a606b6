package normalize

import "strings"

// sectionKeywords classify a unit into an ESG report section by wording.
var sectionKeywords = []struct {
	label string
	words []string
}{
	{"Environmental", []string{"environment", "emissions", "carbon", "energy", "water", "waste"}},
	{"Social", []string{"social", "employee", "community", "human rights", "labor"}},
	{"Governance", []string{"governance", "board", "ethics", "compliance", "risk"}},
	{"Financial", []string{"financial", "revenue", "profit", "cost", "investment"}},
}

// identifySection labels a text block with its likely report section.
func identifySection(text string) string {
	lower := strings.ToLower(text)
	for _, s := range sectionKeywords {
		for _, w := range s.words {
			if strings.Contains(lower, w) {
				return s.label
			}
		}
	}
	return "General"
}
