package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// requiredSection is scanned as a case-insensitive substring of the
// analysis; order here is the order warnings are emitted in.
type requiredSection struct {
	keyword string
	label   string
}

var requiredSections = []requiredSection{
	{"POTENTIALLY MATCHING LISTINGS", "Listing identification section"},
	{"CRITERIA ANALYSIS", "Criteria analysis section"},
	{"EVIDENCE GAPS", "Evidence gaps section"},
	{"STRENGTH ASSESSMENT", "Strength assessment section"},
	{"STRATEGIC PATHWAY RANKING", "Strategic pathway ranking"},
	{"RFC", "RFC considerations section"},
	{"STRENGTHS AND WEAKNESSES", "Case strengths and weaknesses"},
	{"SOURCES", "Sources section with Blue Book links"},
}

var visionKeywords = []string{
	"visual acuity", "snellen", "retinopathy", "visual field",
	"vision loss", "macular", "optic",
}

var hearingContaminants = []string{
	"audiologist", "audiometric", "otoscopic",
	"hearing evaluation", "cochlear", "audiological",
}

// agePattern accepts "age 55", "aged 55", "age: 55", "55-year-old" and
// "55 year old". Only the first match in the findings counts; if a text
// names two ages, whichever the pattern engine reaches first wins.
var agePattern = regexp.MustCompile(`(?:aged?)\s*[:\s]*(\d{2})|(\d{2})\s*(?:-year-old|year\s*old)`)

// AgeCategory returns the SSA vocational age classification for an age.
func AgeCategory(age int) string {
	switch {
	case age < 50:
		return "younger individual"
	case age < 55:
		return "closely approaching advanced age"
	case age < 60:
		return "advanced age"
	case age < 65:
		return "closely approaching retirement age"
	default:
		return "retirement age"
	}
}

// Validate scans a generated analysis against the original medical
// findings and returns one warning per defect found, in insertion order.
// Every check runs independently; an empty result means a clean analysis.
func Validate(analysis, medicalFindings string) []string {
	var warnings []string
	analysisUpper := strings.ToUpper(analysis)
	analysisLower := strings.ToLower(analysis)
	findingsLower := strings.ToLower(medicalFindings)

	for _, section := range requiredSections {
		if !strings.Contains(analysisUpper, section.keyword) {
			warnings = append(warnings, fmt.Sprintf("Missing section: %s", section.label))
		}
	}

	if m := agePattern.FindStringSubmatch(findingsLower); m != nil {
		ageStr := m[1]
		if ageStr == "" {
			ageStr = m[2]
		}
		age, err := strconv.Atoi(ageStr)
		if err == nil {
			correctCategory := AgeCategory(age)
			// 55 is the error-prone boundary: 55 IS advanced age, not
			// "closely approaching".
			if age >= 55 && strings.Contains(analysisLower, "closely approaching advanced age") {
				warnings = append(warnings, fmt.Sprintf(
					"AGE ERROR: Patient is %d years old = %q. "+
						"Analysis incorrectly says \"closely approaching advanced age\" "+
						"(that category is for ages 50-54 only).", age, correctCategory))
			}
			if age >= 50 && age < 55 && strings.Contains(analysisLower, "advanced age") &&
				!strings.Contains(analysisLower, "closely approaching advanced age") {
				warnings = append(warnings, fmt.Sprintf(
					"AGE ERROR: Patient is %d years old = %q. "+
						"Analysis may have the wrong age category.", age, correctCategory))
			}
		}
	}

	hasVision := false
	for _, kw := range visionKeywords {
		if strings.Contains(findingsLower, kw) {
			hasVision = true
			break
		}
	}

	if hasVision {
		// The visual acuity reference table is supplied precisely so the
		// model never refuses to compute.
		if strings.Contains(analysisLower, "cannot be calculated") ||
			strings.Contains(analysisLower, "cannot be determined") {
			warnings = append(warnings,
				"CALCULATION GAP: Analysis says values 'cannot be calculated' or "+
					"'cannot be determined' despite visual acuity data being available. "+
					"Use the Visual Acuity Reference Table to look up exact values.")
		}

		var found []string
		for _, term := range hearingContaminants {
			if strings.Contains(analysisLower, term) {
				found = append(found, term)
			}
		}
		if len(found) > 0 {
			warnings = append(warnings, fmt.Sprintf(
				"CONTAMINATION WARNING: Vision case contains hearing-related "+
					"recommendations: %s. These should be removed.", strings.Join(found, ", ")))
		}
	}

	return warnings
}
