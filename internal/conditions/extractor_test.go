package conditions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func containsSubstring(queries []string, sub string) bool {
	for _, q := range queries {
		if strings.Contains(strings.ToLower(q), sub) {
			return true
		}
	}
	return false
}

func TestVisionKeywordsTriggerVisionQuery(t *testing.T) {
	queries := ExtractQueries("Patient has diabetic retinopathy with visual acuity loss")
	assert.True(t, containsSubstring(queries, "visual"))
}

func TestHearingKeywordsTriggerHearingQuery(t *testing.T) {
	queries := ExtractQueries("Bilateral sensorineural hearing loss")
	assert.True(t, containsSubstring(queries, "hearing"))
}

func TestDiabetesTriggersEndocrineQuery(t *testing.T) {
	queries := ExtractQueries("Type 2 diabetes mellitus with A1c 9.2%")
	assert.True(t, containsSubstring(queries, "endocrine") || containsSubstring(queries, "diabetes"))
}

func TestNeuropathyTriggersNeuropathyQuery(t *testing.T) {
	queries := ExtractQueries("Peripheral neuropathy bilateral lower extremities")
	assert.True(t, containsSubstring(queries, "neuropathy") || containsSubstring(queries, "motor function"))
}

func TestKidneyTriggersRenalQuery(t *testing.T) {
	queries := ExtractQueries("CKD Stage 4 with eGFR 22, on dialysis")
	assert.True(t, containsSubstring(queries, "kidney") || containsSubstring(queries, "renal"))
}

func TestSpineTriggersSpineQuery(t *testing.T) {
	queries := ExtractQueries("Lumbar disc herniation L4-L5 with radiculopathy")
	assert.True(t, containsSubstring(queries, "spine") || containsSubstring(queries, "nerve root"))
}

func TestCancerTriggersCancerQuery(t *testing.T) {
	queries := ExtractQueries("Non-Hodgkin lymphoma undergoing chemotherapy")
	assert.True(t, containsSubstring(queries, "neoplastic") || containsSubstring(queries, "cancer"))
}

func TestMentalTriggersMentalQuery(t *testing.T) {
	queries := ExtractQueries("Major depressive disorder with anxiety")
	assert.True(t, containsSubstring(queries, "mental") || containsSubstring(queries, "depressive"))
}

func TestMultipleConditionsProduceMultipleQueries(t *testing.T) {
	queries := ExtractQueries("Diabetes with retinopathy and peripheral neuropathy and depression")
	assert.GreaterOrEqual(t, len(queries), 3, "queries: %v", queries)
}

func TestNoMatchesReturnsEmpty(t *testing.T) {
	queries := ExtractQueries("The weather is nice today")
	assert.Empty(t, queries)
}

func TestCaseInsensitive(t *testing.T) {
	queries := ExtractQueries("DIABETES MELLITUS WITH RETINOPATHY")
	assert.GreaterOrEqual(t, len(queries), 2)
}

func TestWordBoundariesPreventFalsePositives(t *testing.T) {
	// "disc" must not match inside "discrimination".
	queries := ExtractQueries("Claimant alleges workplace discrimination")
	assert.Empty(t, queries)
}

func TestEachRuleContributesOneQuery(t *testing.T) {
	// Several vision keywords still yield a single vision query.
	queries := ExtractQueries("glaucoma, cataract, and macular degeneration with vision loss")
	assert.Len(t, queries, 1)
}

func TestOutputPreservesRuleOrder(t *testing.T) {
	queries := ExtractQueries("hearing loss, visual acuity reduced, depression")
	assert.Len(t, queries, 3)
	assert.Contains(t, strings.ToLower(queries[0]), "visual")
	assert.Contains(t, strings.ToLower(queries[1]), "hearing")
	assert.Contains(t, strings.ToLower(queries[2]), "depressive")
}
