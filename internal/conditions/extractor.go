package conditions

import (
	"regexp"
	"strings"
)

// conditionRule maps keywords found in medical findings to one focused
// Blue Book search query. A rule contributes at most one query no matter
// how many of its keywords match.
type conditionRule struct {
	keywords []string
	query    string
}

// Rules are ordered by category priority; the output preserves this order.
var conditionRules = []conditionRule{
	{
		keywords: []string{"visual acuity", "vision loss", "visual field", "retinopathy", "macular",
			"blindness", "optic", "glaucoma", "cataract"},
		query: "loss of central visual acuity visual field contraction visual efficiency impairment",
	},
	{
		keywords: []string{"hearing loss", "deaf", "audiometric", "cochlear", "tinnitus"},
		query:    "hearing loss audiometric cochlear implant speech recognition",
	},
	{
		keywords: []string{"back pain", "spine", "disc", "herniation", "stenosis", "lumbar",
			"cervical", "nerve root", "radiculopathy"},
		query: "disorders of the spine nerve root compression lumbar cervical",
	},
	{
		keywords: []string{"neuropathy", "peripheral neuropathy", "decreased sensation", "numbness",
			"tingling", "nerve damage"},
		query: "peripheral neuropathy disorganization of motor function sensory disturbance",
	},
	{
		keywords: []string{"diabetes", "diabetic", "a1c", "insulin", "endocrine", "thyroid"},
		query:    "endocrine disorders diabetes complications multiple body systems",
	},
	{
		keywords: []string{"ckd", "kidney", "renal", "egfr", "dialysis", "transplant", "creatinine"},
		query:    "chronic kidney disease renal impairment genitourinary",
	},
	{
		keywords: []string{"heart", "cardiac", "coronary", "hypertension", "heart failure", "arrhythmia"},
		query:    "chronic heart failure ischemic heart disease cardiovascular",
	},
	{
		keywords: []string{"copd", "asthma", "pulmonary", "lung", "breathing", "oxygen", "fev1"},
		query:    "chronic pulmonary insufficiency asthma respiratory disorders",
	},
	{
		keywords: []string{"depression", "anxiety", "ptsd", "bipolar", "schizophrenia", "mental",
			"psychiatric", "psychological"},
		query: "depressive disorders anxiety disorders mental disorders cognitive limitations",
	},
	{
		keywords: []string{"seizure", "epilepsy", "stroke", "multiple sclerosis", "parkinsons",
			"cerebral", "brain injury"},
		query: "epilepsy cerebral palsy central nervous system vascular accident neurological",
	},
	{
		keywords: []string{"cancer", "tumor", "malignant", "chemotherapy", "radiation", "oncology",
			"carcinoma", "lymphoma", "leukemia"},
		query: "neoplastic diseases malignant cancer treatment effects",
	},
	{
		keywords: []string{"hiv", "lupus", "autoimmune", "immune", "rheumatoid", "inflammatory bowel"},
		query:    "immune system disorders systemic lupus inflammatory arthritis",
	},
	{
		keywords: []string{"dermatitis", "skin lesions", "burns", "psoriasis", "skin disorder"},
		query:    "skin disorders dermatitis burns ichthyosis",
	},
}

// Word-boundary patterns are compiled once per keyword so repeated
// extraction stays cheap.
var keywordPatterns = buildPatterns()

func buildPatterns() []([]*regexp.Regexp) {
	patterns := make([][]*regexp.Regexp, len(conditionRules))
	for i, rule := range conditionRules {
		compiled := make([]*regexp.Regexp, len(rule.keywords))
		for j, kw := range rule.keywords {
			// Boundaries avoid false positives, e.g. "disc" inside
			// "discrimination".
			compiled[j] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		patterns[i] = compiled
	}
	return patterns
}

// ExtractQueries maps medical findings text to condition-specific search
// queries, one per detected condition category. Targeted retrieval keeps
// each condition's semantic signal intact instead of diluting everything
// into a single combined embedding. Pure function of the input text.
func ExtractQueries(medicalText string) []string {
	textLower := strings.ToLower(medicalText)

	var queries []string
	for i, rule := range conditionRules {
		for _, pattern := range keywordPatterns[i] {
			if pattern.MatchString(textLower) {
				queries = append(queries, rule.query)
				break
			}
		}
	}
	return queries
}
