package safety

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jwalitptl/medsafe-api/internal/model"
)

// AllergyClass maps an allergy class key to the concrete drugs in that class.
type AllergyClass struct {
	Key   string   `mapstructure:"key" json:"key"`
	Drugs []string `mapstructure:"drugs" json:"drugs"`
}

// InteractionRule is one known drug-drug interaction. Drugs holds exactly two names.
type InteractionRule struct {
	Drugs       []string       `mapstructure:"drugs" json:"drugs"`
	Severity    model.Severity `mapstructure:"severity" json:"severity"`
	Description string         `mapstructure:"description" json:"description"`
}

// KnowledgeBase is the static reference data behind the matchers. It is read once at
// startup and must not be mutated after a matcher has been built from it.
type KnowledgeBase struct {
	AllergyClasses []AllergyClass    `mapstructure:"allergy_classes" json:"allergy_classes"`
	Interactions   []InteractionRule `mapstructure:"interactions" json:"interactions"`
	DiabetesDrugs  []string          `mapstructure:"diabetes_drugs" json:"diabetes_drugs"`
}

// LoadKnowledgeBase reads a knowledge base from a YAML or JSON file. An empty path
// returns the built-in tables.
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	if path == "" {
		return DefaultKnowledgeBase(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var kb KnowledgeBase
	if err := v.Unmarshal(&kb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal knowledge base: %w", err)
	}
	if err := kb.Validate(); err != nil {
		return nil, fmt.Errorf("invalid knowledge base %s: %w", path, err)
	}
	return &kb, nil
}

// Validate rejects entries that would normalize to an empty string, since an empty
// name would match every medication.
func (kb *KnowledgeBase) Validate() error {
	for i, class := range kb.AllergyClasses {
		if Normalize(class.Key) == "" {
			return fmt.Errorf("allergy class %d: key is required", i)
		}
		if len(class.Drugs) == 0 {
			return fmt.Errorf("allergy class %q: at least one drug is required", class.Key)
		}
		for _, drug := range class.Drugs {
			if Normalize(drug) == "" {
				return fmt.Errorf("allergy class %q: blank drug name", class.Key)
			}
		}
	}
	for i, rule := range kb.Interactions {
		if len(rule.Drugs) != 2 {
			return fmt.Errorf("interaction %d: exactly two drugs are required, got %d", i, len(rule.Drugs))
		}
		if Normalize(rule.Drugs[0]) == "" || Normalize(rule.Drugs[1]) == "" {
			return fmt.Errorf("interaction %d: blank drug name", i)
		}
		switch rule.Severity {
		case model.SeverityHigh, model.SeverityModerate, model.SeverityLow:
		default:
			return fmt.Errorf("interaction %d: unknown severity %q", i, rule.Severity)
		}
	}
	for _, drug := range kb.DiabetesDrugs {
		if Normalize(drug) == "" {
			return fmt.Errorf("blank diabetes drug name")
		}
	}
	return nil
}

// DefaultKnowledgeBase returns a fresh copy of the built-in tables.
func DefaultKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		AllergyClasses: []AllergyClass{
			{Key: "penicillin", Drugs: []string{"amoxicillin", "ampicillin", "penicillin", "augmentin", "piperacillin"}},
			{Key: "amoxicillin", Drugs: []string{"amoxicillin", "augmentin", "amoxyclav"}},
			{Key: "sulfa", Drugs: []string{"sulfamethoxazole", "bactrim", "septra", "sulfasalazine"}},
			{Key: "sulfamethoxazole", Drugs: []string{"bactrim", "septra", "sulfamethoxazole"}},
			{Key: "aspirin", Drugs: []string{"aspirin", "acetylsalicylic acid", "disprin", "ecosprin"}},
			{Key: "ibuprofen", Drugs: []string{"ibuprofen", "advil", "motrin", "brufen"}},
			{Key: "nsaid", Drugs: []string{"ibuprofen", "aspirin", "naproxen", "diclofenac", "indomethacin", "piroxicam"}},
			{Key: "codeine", Drugs: []string{"codeine", "co-codamol"}},
			{Key: "morphine", Drugs: []string{"morphine", "oxycodone", "hydrocodone"}},
			{Key: "cephalosporin", Drugs: []string{"cefixime", "ceftriaxone", "cephalexin", "cefuroxime"}},
			{Key: "fluoroquinolone", Drugs: []string{"ciprofloxacin", "levofloxacin", "moxifloxacin", "ofloxacin"}},
			{Key: "macrolide", Drugs: []string{"azithromycin", "erythromycin", "clarithromycin"}},
			{Key: "latex", Drugs: []string{"latex"}},
			{Key: "contrast", Drugs: []string{"contrast", "iodine", "gadolinium"}},
		},
		Interactions: []InteractionRule{
			{Drugs: []string{"warfarin", "aspirin"}, Severity: model.SeverityHigh, Description: "Increased bleeding risk. Monitor INR closely."},
			{Drugs: []string{"warfarin", "ibuprofen"}, Severity: model.SeverityHigh, Description: "NSAIDs increase bleeding risk with anticoagulants."},
			{Drugs: []string{"warfarin", "vitamin k"}, Severity: model.SeverityHigh, Description: "Vitamin K reduces warfarin effectiveness."},
			{Drugs: []string{"clopidogrel", "omeprazole"}, Severity: model.SeverityModerate, Description: "PPIs may reduce clopidogrel effectiveness."},
			{Drugs: []string{"lisinopril", "potassium"}, Severity: model.SeverityHigh, Description: "Risk of hyperkalemia. Monitor potassium levels."},
			{Drugs: []string{"lisinopril", "spironolactone"}, Severity: model.SeverityHigh, Description: "Dual potassium-sparing effect. Monitor potassium."},
			{Drugs: []string{"metoprolol", "verapamil"}, Severity: model.SeverityHigh, Description: "Risk of severe bradycardia and heart block."},
			{Drugs: []string{"amlodipine", "simvastatin"}, Severity: model.SeverityModerate, Description: "Increased simvastatin levels. Limit dose to 20mg."},
			{Drugs: []string{"metronidazole", "alcohol"}, Severity: model.SeverityHigh, Description: "Severe nausea, vomiting, flushing. Avoid alcohol."},
			{Drugs: []string{"ciprofloxacin", "tizanidine"}, Severity: model.SeverityHigh, Description: "Greatly increased tizanidine levels. Contraindicated."},
			{Drugs: []string{"azithromycin", "amiodarone"}, Severity: model.SeverityHigh, Description: "Risk of QT prolongation. ECG monitoring required."},
			{Drugs: []string{"erythromycin", "simvastatin"}, Severity: model.SeverityHigh, Description: "Risk of myopathy/rhabdomyolysis. Avoid combination."},
			{Drugs: []string{"metformin", "contrast dye"}, Severity: model.SeverityHigh, Description: "Risk of lactic acidosis. Hold metformin 48hrs post-contrast."},
			{Drugs: []string{"insulin", "beta blockers"}, Severity: model.SeverityModerate, Description: "May mask hypoglycemia symptoms. Monitor closely."},
			{Drugs: []string{"glipizide", "fluconazole"}, Severity: model.SeverityModerate, Description: "Increased hypoglycemia risk. Monitor blood glucose."},
			{Drugs: []string{"sertraline", "tramadol"}, Severity: model.SeverityHigh, Description: "Risk of serotonin syndrome. Monitor for symptoms."},
			{Drugs: []string{"fluoxetine", "maois"}, Severity: model.SeverityHigh, Description: "Contraindicated. Wait 5 weeks before switching."},
			{Drugs: []string{"lithium", "ibuprofen"}, Severity: model.SeverityHigh, Description: "NSAIDs increase lithium levels. Monitor closely."},
			{Drugs: []string{"alprazolam", "opioids"}, Severity: model.SeverityHigh, Description: "Risk of respiratory depression. Avoid combination."},
			{Drugs: []string{"tramadol", "ssris"}, Severity: model.SeverityHigh, Description: "Risk of serotonin syndrome and seizures."},
			{Drugs: []string{"morphine", "benzodiazepines"}, Severity: model.SeverityHigh, Description: "Risk of profound sedation, respiratory depression."},
			{Drugs: []string{"simvastatin", "grapefruit"}, Severity: model.SeverityModerate, Description: "Grapefruit increases statin levels. Avoid large quantities."},
			{Drugs: []string{"atorvastatin", "clarithromycin"}, Severity: model.SeverityModerate, Description: "Increased statin exposure. Consider dose reduction."},
			{Drugs: []string{"digoxin", "amiodarone"}, Severity: model.SeverityHigh, Description: "Amiodarone increases digoxin levels. Reduce digoxin dose."},
			{Drugs: []string{"theophylline", "ciprofloxacin"}, Severity: model.SeverityHigh, Description: "Ciprofloxacin increases theophylline levels significantly."},
		},
		DiabetesDrugs: []string{"metformin", "insulin", "glipizide", "glimepiride", "sitagliptin"},
	}
}
