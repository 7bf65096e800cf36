package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

func TestDefaultKnowledgeBaseIsValid(t *testing.T) {
	kb := DefaultKnowledgeBase()

	require.NoError(t, kb.Validate())
	assert.Len(t, kb.AllergyClasses, 14)
	assert.Len(t, kb.Interactions, 25)
	assert.Len(t, kb.DiabetesDrugs, 5)
}

func TestDefaultKnowledgeBaseReturnsCopies(t *testing.T) {
	a := DefaultKnowledgeBase()
	a.AllergyClasses[0].Drugs[0] = "changed"

	assert.Equal(t, "amoxicillin", DefaultKnowledgeBase().AllergyClasses[0].Drugs[0])
}

func TestLoadKnowledgeBase_EmptyPath(t *testing.T) {
	kb, err := LoadKnowledgeBase("")

	require.NoError(t, err)
	assert.Equal(t, DefaultKnowledgeBase(), kb)
}

func TestLoadKnowledgeBase_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yml")
	content := `
allergy_classes:
  - key: statin
    drugs: [atorvastatin, rosuvastatin]
interactions:
  - drugs: [sildenafil, nitroglycerin]
    severity: high
    description: Risk of profound hypotension.
diabetes_drugs: [metformin]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	kb, err := LoadKnowledgeBase(path)
	require.NoError(t, err)

	require.Len(t, kb.AllergyClasses, 1)
	assert.Equal(t, "statin", kb.AllergyClasses[0].Key)
	require.Len(t, kb.Interactions, 1)
	assert.Equal(t, model.SeverityHigh, kb.Interactions[0].Severity)

	engine := NewEngine(kb)
	assert.Len(t, engine.Interactions.CheckInteractions(meds("Sildenafil"), meds("Nitroglycerin spray")), 1)
	assert.True(t, engine.Allergies.CheckConflict("Atorvastatin", "statin"))
}

func TestLoadKnowledgeBase_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yml")
	content := `
interactions:
  - drugs: [warfarin]
    severity: high
    description: one drug only
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := LoadKnowledgeBase(path)
	assert.ErrorContains(t, err, "exactly two drugs")
}

func TestLoadKnowledgeBase_MissingFile(t *testing.T) {
	_, err := LoadKnowledgeBase(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		kb   KnowledgeBase
		err  string
	}{
		{"blank class key", KnowledgeBase{AllergyClasses: []AllergyClass{{Key: "--", Drugs: []string{"x"}}}}, "key is required"},
		{"class without drugs", KnowledgeBase{AllergyClasses: []AllergyClass{{Key: "x"}}}, "at least one drug"},
		{"blank class drug", KnowledgeBase{AllergyClasses: []AllergyClass{{Key: "x", Drugs: []string{" "}}}}, "blank drug name"},
		{"bad severity", KnowledgeBase{Interactions: []InteractionRule{{Drugs: []string{"a", "b"}, Severity: "severe"}}}, "unknown severity"},
		{"blank interaction drug", KnowledgeBase{Interactions: []InteractionRule{{Drugs: []string{"a", ""}, Severity: model.SeverityLow}}}, "blank drug name"},
		{"blank diabetes drug", KnowledgeBase{DiabetesDrugs: []string{""}}, "blank diabetes drug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.kb.Validate(), tt.err)
		})
	}
}
