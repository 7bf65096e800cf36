package safety

import (
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

const (
	recentHistoryWindowDays = 30
	timingGapMonths         = 6
	timingGapMinMedications = 3
)

var recentHistoryTypes = map[string]bool{
	model.RecordTypeDiagnosis: true,
	model.RecordTypeCondition: true,
	model.RecordTypeLabTest:   true,
}

// DriftAnalyzer produces advisories about a medication list in the context of the
// patient's history, wearable readings and chronic conditions.
type DriftAnalyzer struct {
	diabetesDrugs []string
	now           func() time.Time
}

type DriftOption func(*DriftAnalyzer)

// WithClock overrides the wall clock used for the history windows.
func WithClock(now func() time.Time) DriftOption {
	return func(a *DriftAnalyzer) {
		a.now = now
	}
}

func NewDriftAnalyzer(kb *KnowledgeBase, opts ...DriftOption) *DriftAnalyzer {
	a := &DriftAnalyzer{now: time.Now}
	for _, d := range kb.DiabetesDrugs {
		a.diabetesDrugs = append(a.diabetesDrugs, Normalize(d))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeDrift runs four independent checks and returns at most one advisory per check.
// It returns an empty list when there are no named medications.
func (a *DriftAnalyzer) AnalyzeDrift(
	medications []model.Medication,
	history []*model.MedicalHistoryRecord,
	readings []model.WearableReading,
	allergies []string,
	chronicConditions []string,
) []model.DriftAdvisory {
	advisories := []model.DriftAdvisory{}
	meds := model.Medications(medications).Named()
	if len(meds) == 0 {
		return advisories
	}

	now := a.now()

	if adv, ok := a.recentHistory(history, now); ok {
		advisories = append(advisories, adv)
	}
	if adv, ok := wearableContext(readings); ok {
		advisories = append(advisories, adv)
	}
	if adv, ok := timingGap(meds, history, now); ok {
		advisories = append(advisories, adv)
	}
	if adv, ok := a.conditionGap(meds, chronicConditions); ok {
		advisories = append(advisories, adv)
	}
	return advisories
}

func (a *DriftAnalyzer) recentHistory(history []*model.MedicalHistoryRecord, now time.Time) (model.DriftAdvisory, bool) {
	cutoff := now.AddDate(0, 0, -recentHistoryWindowDays)
	var titles []string
	for _, r := range history {
		if r == nil || !recentHistoryTypes[r.RecordType] {
			continue
		}
		if r.DateRecorded.Before(cutoff) {
			continue
		}
		titles = append(titles, r.Title)
	}
	if len(titles) == 0 {
		return model.DriftAdvisory{}, false
	}
	return model.DriftAdvisory{
		ID:       "recent_conditions",
		Type:     model.AdvisoryHistoryMismatch,
		Message:  "Prescription context may require clinician review based on recent patient information.",
		Detail:   fmt.Sprintf("%d new medical record(s) added in the last 30 days: %s", len(titles), strings.Join(titles, ", ")),
		Severity: model.AdvisoryCaution,
	}, true
}

func wearableContext(readings []model.WearableReading) (model.DriftAdvisory, bool) {
	var parts []string
	for _, r := range readings {
		if !r.Abnormal() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s %s (%s)", r.Label, r.Value, r.Unit, r.Status))
	}
	if len(parts) == 0 {
		return model.DriftAdvisory{}, false
	}
	return model.DriftAdvisory{
		ID:       "wearable_context",
		Type:     model.AdvisoryWearableContext,
		Message:  "Recent wearable-derived indicators may be relevant to prescription context.",
		Detail:   "Abnormal readings detected: " + strings.Join(parts, ", "),
		Severity: model.AdvisoryCaution,
	}, true
}

func timingGap(meds model.Medications, history []*model.MedicalHistoryRecord, now time.Time) (model.DriftAdvisory, bool) {
	if len(meds) <= timingGapMinMedications {
		return model.DriftAdvisory{}, false
	}
	cutoff := now.AddDate(0, -timingGapMonths, 0)
	for _, r := range history {
		if r == nil || r.RecordType != model.RecordTypePrescription || !r.DateRecorded.Before(cutoff) {
			continue
		}
		return model.DriftAdvisory{
			ID:       "timing_gap",
			Type:     model.AdvisoryTimingGap,
			Message:  "Extended medication history detected. Periodic clinician review may be beneficial.",
			Detail:   fmt.Sprintf("Patient has %d active medications with prescription records older than 6 months.", len(meds)),
			Severity: model.AdvisoryInfo,
		}, true
	}
	return model.DriftAdvisory{}, false
}

func (a *DriftAnalyzer) conditionGap(meds model.Medications, conditions []string) (model.DriftAdvisory, bool) {
	hasDiabetes := false
	for _, c := range conditions {
		if strings.Contains(Normalize(c), "diabetes") {
			hasDiabetes = true
			break
		}
	}
	if !hasDiabetes {
		return model.DriftAdvisory{}, false
	}

	for _, med := range meds {
		name := Normalize(med.Name)
		for _, drug := range a.diabetesDrugs {
			if strings.Contains(name, drug) {
				return model.DriftAdvisory{}, false
			}
		}
	}
	return model.DriftAdvisory{
		ID:       "condition_med_gap",
		Type:     model.AdvisoryHistoryMismatch,
		Message:  "Chronic condition noted without corresponding active medication. Clinician review recommended.",
		Detail:   "Patient has diabetes listed in conditions but no diabetes-related medication appears in the current prescription.",
		Severity: model.AdvisoryCaution,
	}, true
}
