package safety

// Engine bundles the three checks built from one knowledge base.
type Engine struct {
	Allergies    *AllergyMatcher
	Interactions *InteractionMatcher
	Drift        *DriftAnalyzer
}

func NewEngine(kb *KnowledgeBase, opts ...DriftOption) *Engine {
	return &Engine{
		Allergies:    NewAllergyMatcher(kb),
		Interactions: NewInteractionMatcher(kb),
		Drift:        NewDriftAnalyzer(kb, opts...),
	}
}
