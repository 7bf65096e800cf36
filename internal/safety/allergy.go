package safety

import (
	"strings"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

type allergyClass struct {
	key   string
	drugs []string
}

// AllergyMatcher detects medications that conflict with recorded allergies, either
// by name or through a drug class.
type AllergyMatcher struct {
	classes []allergyClass
}

func NewAllergyMatcher(kb *KnowledgeBase) *AllergyMatcher {
	classes := make([]allergyClass, 0, len(kb.AllergyClasses))
	for _, c := range kb.AllergyClasses {
		compiled := allergyClass{key: Normalize(c.Key)}
		for _, d := range c.Drugs {
			compiled.drugs = append(compiled.drugs, Normalize(d))
		}
		classes = append(classes, compiled)
	}
	return &AllergyMatcher{classes: classes}
}

// CheckConflict reports whether medication conflicts with allergy.
func (m *AllergyMatcher) CheckConflict(medication, allergy string) bool {
	if strings.TrimSpace(medication) == "" || strings.TrimSpace(allergy) == "" {
		return false
	}
	med := Normalize(medication)
	alg := Normalize(allergy)

	if overlaps(med, alg) {
		return true
	}

	for _, class := range m.classes {
		if !overlaps(alg, class.key) {
			continue
		}
		for _, drug := range class.drugs {
			if strings.Contains(med, drug) {
				return true
			}
		}
	}
	return false
}

// CheckMedications returns one result per conflicting (medication, allergy) pair,
// medication-major. Results are not deduplicated.
func (m *AllergyMatcher) CheckMedications(medications []model.Medication, allergies []string) []model.ConflictResult {
	conflicts := []model.ConflictResult{}
	for _, med := range medications {
		if strings.TrimSpace(med.Name) == "" {
			continue
		}
		for _, allergy := range allergies {
			if strings.TrimSpace(allergy) == "" {
				continue
			}
			if m.CheckConflict(med.Name, allergy) {
				conflicts = append(conflicts, model.ConflictResult{
					Medication: med.Name,
					Allergy:    allergy,
					Severity:   model.SeverityHigh,
				})
			}
		}
	}
	return conflicts
}
