package model

type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// ConflictResult is a medication that conflicts with a recorded allergy.
type ConflictResult struct {
	Medication string   `json:"medication"`
	Allergy    string   `json:"allergy"`
	Severity   Severity `json:"severity"`
}

// InteractionResult names two medications (as entered) that interact.
type InteractionResult struct {
	Drug1       string   `json:"drug1"`
	Drug2       string   `json:"drug2"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

type AdvisoryType string

const (
	AdvisoryHistoryMismatch AdvisoryType = "history_mismatch"
	AdvisoryWearableContext AdvisoryType = "wearable_context"
	AdvisoryTimingGap       AdvisoryType = "timing_gap"
)

type AdvisorySeverity string

const (
	AdvisoryInfo    AdvisorySeverity = "info"
	AdvisoryCaution AdvisorySeverity = "caution"
)

// DriftAdvisory is a non-blocking observation about a prescription's context. Never persisted.
type DriftAdvisory struct {
	ID       string           `json:"id"`
	Type     AdvisoryType     `json:"type"`
	Message  string           `json:"message"`
	Detail   string           `json:"detail"`
	Severity AdvisorySeverity `json:"severity"`
}

// SafetyReport is the result of running every check on a draft without persisting it.
type SafetyReport struct {
	Conflicts    []ConflictResult    `json:"conflicts"`
	Interactions []InteractionResult `json:"interactions"`
	Advisories   []DriftAdvisory     `json:"advisories"`
}
