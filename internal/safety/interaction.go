package safety

import (
	"strings"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

type interactionRule struct {
	drugA, drugB string
	severity     model.Severity
	description  string
}

// InteractionMatcher finds known interactions between every pair of medications.
type InteractionMatcher struct {
	rules []interactionRule
}

func NewInteractionMatcher(kb *KnowledgeBase) *InteractionMatcher {
	rules := make([]interactionRule, 0, len(kb.Interactions))
	for _, r := range kb.Interactions {
		if len(r.Drugs) != 2 {
			continue
		}
		rules = append(rules, interactionRule{
			drugA:       Normalize(r.Drugs[0]),
			drugB:       Normalize(r.Drugs[1]),
			severity:    r.Severity,
			description: r.Description,
		})
	}
	return &InteractionMatcher{rules: rules}
}

// CheckInteractions pairs every medication in newMeds ++ existing with every other one
// and reports at most one interaction per unordered pair of medication names. The
// first matching rule wins.
func (m *InteractionMatcher) CheckInteractions(newMeds, existing []model.Medication) []model.InteractionResult {
	all := make([]model.Medication, 0, len(newMeds)+len(existing))
	for _, med := range newMeds {
		if strings.TrimSpace(med.Name) != "" {
			all = append(all, med)
		}
	}
	for _, med := range existing {
		if strings.TrimSpace(med.Name) != "" {
			all = append(all, med)
		}
	}

	normalized := make([]string, len(all))
	for i, med := range all {
		normalized[i] = Normalize(med.Name)
	}

	results := []model.InteractionResult{}
	seen := make(map[[2]string]struct{})
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			for _, rule := range m.rules {
				straight := overlaps(normalized[i], rule.drugA) && overlaps(normalized[j], rule.drugB)
				crossed := overlaps(normalized[i], rule.drugB) && overlaps(normalized[j], rule.drugA)
				if !straight && !crossed {
					continue
				}

				key := pairKey(all[i].Name, all[j].Name)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				results = append(results, model.InteractionResult{
					Drug1:       all[i].Name,
					Drug2:       all[j].Name,
					Severity:    rule.severity,
					Description: rule.description,
				})
			}
		}
	}
	return results
}

func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
