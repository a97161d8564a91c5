package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleVisionFindings = "62-year-old female, former secretary. Diagnosed with diabetic retinopathy " +
	"bilateral. Best corrected visual acuity: 20/200 OD, 20/100 OS. " +
	"Peripheral visual field loss documented on Goldmann perimetry. " +
	"Diabetes mellitus type 2, A1c 8.5%. No hearing complaints."

const completeAnalysis = `## 1. POTENTIALLY MATCHING LISTINGS

**Listing 2.02 — Loss of Central Visual Acuity**
This listing applies because the patient has documented visual acuity loss in both eyes.

## 2. CRITERIA ANALYSIS

**Listing 2.02:**
- Criterion A: Remaining vision in the better eye after best correction of 20/200 or less
  - Left eye (OS): 20/100 — visual acuity efficiency = 50% per Table 1

## 3. EVIDENCE GAPS

- Obtain formal Goldmann visual field testing results with degree measurements

## 4. STRENGTH ASSESSMENT

- **Listing 2.02**: STRONG — 20/200 OD meets statutory blindness threshold

## 5. STRATEGIC PATHWAY RANKING

1. **Listing 2.02** (best pathway) — OD acuity at 20/200 meets threshold directly

## 6. RESIDUAL FUNCTIONAL CAPACITY (RFC) CONSIDERATIONS

- Cannot perform work requiring fine visual acuity (reading, computer work)
- At age 62 (closely approaching retirement age), limited transferable skills

## 7. CASE STRENGTHS AND WEAKNESSES

**Strengths:**
- Age 62 = closely approaching retirement age (favorable under Grid Rules)

## 8. SOURCES

- Listing 2.02 — https://www.ssa.gov/disability/professionals/bluebook/2.00-SpecialSensesandSpeech-Adult.htm
`

const flawedAnalysis = `## 1. POTENTIALLY MATCHING LISTINGS

**Listing 2.02 — Loss of Central Visual Acuity**

## 2. CRITERIA ANALYSIS

Right eye 20/200, left eye 20/100. Visual acuity cannot be calculated without additional data.

## 3. EVIDENCE GAPS

- Obtain audiometric testing to rule out hearing involvement
- Schedule otoscopic examination

## 4. STRENGTH ASSESSMENT

- Listing 2.02: MODERATE

The claimant at age 62 is closely approaching advanced age.
`

func TestAgeCategoryYounger(t *testing.T) {
	assert.Equal(t, "younger individual", AgeCategory(35))
	assert.Equal(t, "younger individual", AgeCategory(49))
}

func TestAgeCategoryCloselyApproaching(t *testing.T) {
	assert.Equal(t, "closely approaching advanced age", AgeCategory(50))
	assert.Equal(t, "closely approaching advanced age", AgeCategory(54))
}

func TestAgeCategoryAdvanced(t *testing.T) {
	assert.Equal(t, "advanced age", AgeCategory(55))
	assert.Equal(t, "advanced age", AgeCategory(59))
}

func TestAge55IsAdvancedNotCloselyApproaching(t *testing.T) {
	// 55 is the boundary the generation most often gets wrong.
	cat := AgeCategory(55)
	assert.Equal(t, "advanced age", cat)
	assert.NotEqual(t, "closely approaching advanced age", cat)
}

func TestAgeCategoryApproachingRetirement(t *testing.T) {
	assert.Equal(t, "closely approaching retirement age", AgeCategory(60))
	assert.Equal(t, "closely approaching retirement age", AgeCategory(64))
}

func TestAgeCategoryRetirement(t *testing.T) {
	assert.Equal(t, "retirement age", AgeCategory(65))
	assert.Equal(t, "retirement age", AgeCategory(70))
}

func hasWarning(warnings []string, sub string) bool {
	for _, w := range warnings {
		if strings.Contains(strings.ToLower(w), strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func TestValidationCatchesMissingSources(t *testing.T) {
	analysis := "## POTENTIALLY MATCHING LISTINGS\n## CRITERIA ANALYSIS\n## EVIDENCE GAPS\n" +
		"## STRENGTH ASSESSMENT\n## STRATEGIC PATHWAY RANKING\n## RFC\n## STRENGTHS AND WEAKNESSES\n"
	warnings := Validate(analysis, "Age 55 patient with back pain")
	assert.True(t, hasWarning(warnings, "Sources"))
}

func TestValidationCatchesMissingStrategicRanking(t *testing.T) {
	analysis := "## POTENTIALLY MATCHING LISTINGS\n## CRITERIA ANALYSIS\n## EVIDENCE GAPS\n" +
		"## STRENGTH ASSESSMENT\n## RFC\n## STRENGTHS AND WEAKNESSES\n## SOURCES\n"
	warnings := Validate(analysis, "Age 55 patient with back pain")
	assert.True(t, hasWarning(warnings, "pathway ranking"))
}

func TestValidationCompleteAnalysisHasNoMissingSections(t *testing.T) {
	warnings := Validate(completeAnalysis, "Age 40 patient with back pain")
	assert.False(t, hasWarning(warnings, "Missing section"))
}

func TestValidationCatchesAgeError55(t *testing.T) {
	analysis := "The claimant is closely approaching advanced age.\n## SOURCES\n"
	warnings := Validate(analysis, "55-year-old male with back pain")
	assert.True(t, hasWarning(warnings, "AGE ERROR"))
}

func TestValidationNoAgeErrorWhenCorrect(t *testing.T) {
	analysis := "The claimant is at advanced age.\n## POTENTIALLY MATCHING LISTINGS\n## CRITERIA ANALYSIS\n" +
		"## EVIDENCE GAPS\n## STRENGTH ASSESSMENT\n## STRATEGIC PATHWAY RANKING\n## RFC\n" +
		"## STRENGTHS AND WEAKNESSES\n## SOURCES\n"
	warnings := Validate(analysis, "55-year-old male with back pain")
	assert.False(t, hasWarning(warnings, "AGE ERROR"))
}

func TestValidationAgeParsedFromAgePrefix(t *testing.T) {
	analysis := "The claimant is closely approaching advanced age.\n"
	warnings := Validate(analysis, "Patient aged 57 with chronic back pain")
	assert.True(t, hasWarning(warnings, "AGE ERROR"))
}

func TestValidationCatchesHearingContamination(t *testing.T) {
	analysis := "Recommend audiometric testing and otoscopic examination.\n## SOURCES\n"
	findings := "62-year-old with diabetic retinopathy and visual acuity 20/200"
	warnings := Validate(analysis, findings)
	assert.True(t, hasWarning(warnings, "CONTAMINATION"))
}

func TestValidationNoContaminationWhenClean(t *testing.T) {
	analysis := "Recommend ophthalmological exam and Goldmann perimetry.\n## POTENTIALLY MATCHING LISTINGS\n" +
		"## CRITERIA ANALYSIS\n## EVIDENCE GAPS\n## STRENGTH ASSESSMENT\n## STRATEGIC PATHWAY RANKING\n" +
		"## RFC\n## STRENGTHS AND WEAKNESSES\n## SOURCES\n"
	findings := "62-year-old with diabetic retinopathy and visual acuity 20/200"
	warnings := Validate(analysis, findings)
	assert.False(t, hasWarning(warnings, "CONTAMINATION"))
}

func TestValidationNoContaminationCheckWithoutVisionCase(t *testing.T) {
	analysis := "Recommend audiometric testing.\n## SOURCES\n"
	findings := "55-year-old with bilateral hearing loss"
	warnings := Validate(analysis, findings)
	assert.False(t, hasWarning(warnings, "CONTAMINATION"))
}

func TestValidationCatchesCalculationGap(t *testing.T) {
	analysis := "Visual acuity efficiency cannot be calculated.\n## SOURCES\n"
	findings := "Patient with retinopathy and visual acuity 20/100"
	warnings := Validate(analysis, findings)
	assert.True(t, hasWarning(warnings, "CALCULATION"))
}

func TestGoodResponsePasses(t *testing.T) {
	warnings := Validate(completeAnalysis, sampleVisionFindings)
	for _, w := range warnings {
		assert.NotContains(t, w, "AGE ERROR")
		assert.NotContains(t, w, "CONTAMINATION")
		assert.NotContains(t, w, "CALCULATION")
	}
}

func TestBadResponseCatchesErrors(t *testing.T) {
	warnings := Validate(flawedAnalysis, sampleVisionFindings)
	assert.GreaterOrEqual(t, len(warnings), 3, "warnings: %v", warnings)
	assert.True(t, hasWarning(warnings, "CONTAMINATION"))
	assert.True(t, hasWarning(warnings, "CALCULATION"))
	assert.True(t, hasWarning(warnings, "Missing section"))
}
