package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

func TestCheckInteractions_SymmetricAndDeduplicated(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	forward := m.CheckInteractions(meds("Warfarin", "Aspirin"), nil)
	reverse := m.CheckInteractions(meds("Aspirin", "Warfarin"), nil)

	require.Len(t, forward, 1)
	require.Len(t, reverse, 1)
	assert.ElementsMatch(t,
		[]string{forward[0].Drug1, forward[0].Drug2},
		[]string{reverse[0].Drug1, reverse[0].Drug2},
	)
	assert.Equal(t, model.SeverityHigh, forward[0].Severity)
	assert.Equal(t, forward[0].Description, reverse[0].Description)
}

func TestCheckInteractions_AcrossNewAndExisting(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	results := m.CheckInteractions(meds("Tramadol"), meds("Sertraline"))

	require.Len(t, results, 1)
	assert.Equal(t, "Tramadol", results[0].Drug1)
	assert.Equal(t, "Sertraline", results[0].Drug2)
	assert.Equal(t, model.SeverityHigh, results[0].Severity)
	assert.Contains(t, results[0].Description, "serotonin syndrome")
}

func TestCheckInteractions_UsesMedicationNames(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	results := m.CheckInteractions(meds("Warfarin 5mg tablet"), meds("Ecosprin Aspirin 75"))

	require.Len(t, results, 1)
	assert.Equal(t, "Warfarin 5mg tablet", results[0].Drug1)
	assert.Equal(t, "Ecosprin Aspirin 75", results[0].Drug2)
}

func TestCheckInteractions_FirstRuleWinsPerPair(t *testing.T) {
	kb := &KnowledgeBase{Interactions: []InteractionRule{
		{Drugs: []string{"alpha", "beta"}, Severity: model.SeverityLow, Description: "first"},
		{Drugs: []string{"beta", "alpha"}, Severity: model.SeverityHigh, Description: "second"},
	}}
	m := NewInteractionMatcher(kb)

	results := m.CheckInteractions(meds("Alpha"), meds("Beta"))

	require.Len(t, results, 1)
	assert.Equal(t, "first", results[0].Description)
	assert.Equal(t, model.SeverityLow, results[0].Severity)
}

func TestCheckInteractions_DuplicatePairAcrossLists(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	// Warfarin appears twice; the (Warfarin, Aspirin) name pair surfaces once.
	results := m.CheckInteractions(meds("Warfarin", "Aspirin"), meds("Warfarin"))

	require.Len(t, results, 1)
}

func TestCheckInteractions_SeverityFromTable(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	results := m.CheckInteractions(meds("Clopidogrel"), meds("Omeprazole 20mg"))

	require.Len(t, results, 1)
	assert.Equal(t, model.SeverityModerate, results[0].Severity)
}

func TestCheckInteractions_Degenerate(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	assert.Empty(t, m.CheckInteractions(nil, nil))
	assert.Empty(t, m.CheckInteractions(meds("Warfarin"), nil))
	assert.Empty(t, m.CheckInteractions(meds("Warfarin", ""), meds("  ")))
	assert.Empty(t, m.CheckInteractions(meds("Paracetamol", "Cetirizine"), nil))
}

func TestCheckInteractions_SymbolOnlyNameIsReviewed(t *testing.T) {
	m := NewInteractionMatcher(DefaultKnowledgeBase())

	results := m.CheckInteractions(meds("--"), meds("Warfarin"))

	require.Len(t, results, 1)
	assert.Equal(t, "--", results[0].Drug1)
	assert.Equal(t, "Warfarin", results[0].Drug2)
}
