package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebook-agent/backend/internal/retrieval"
)

func scoredDoc(id, text string, meta map[string]string) retrieval.ScoredDocument {
	return retrieval.ScoredDocument{
		Document: retrieval.Document{ID: id, Text: text, Metadata: meta},
	}
}

func visionListing(number string) retrieval.ScoredDocument {
	return scoredDoc("listing_"+number, "Listing body for "+number, map[string]string{
		retrieval.MetaListingNumber: number,
		retrieval.MetaBodySystem:    "Special Senses and Speech",
		retrieval.MetaDocType:       retrieval.DocTypeListing,
		retrieval.MetaSourceURL:     "https://www.ssa.gov/bluebook/" + number,
	})
}

func subsectionDoc(topic string) retrieval.ScoredDocument {
	return scoredDoc("section_2.00_"+topic, "Guidelines for "+topic, map[string]string{
		retrieval.MetaSectionNumber:   "2.00",
		retrieval.MetaBodySystem:      "Special Senses and Speech",
		retrieval.MetaDocType:         retrieval.DocTypeListing,
		retrieval.MetaSubsectionTopic: topic,
	})
}

const findings = "62-year-old with diabetic retinopathy, visual acuity 20/200 OD"

func TestBuildPromptStructure(t *testing.T) {
	docs := []retrieval.ScoredDocument{visionListing("2.02")}
	req := Build(findings, docs)

	assert.NotEmpty(t, req.SystemPrompt)
	assert.Contains(t, req.UserPrompt, "BLUE BOOK LISTINGS")
	assert.Contains(t, req.UserPrompt, "CLIENT'S MEDICAL FINDINGS:")
	assert.Contains(t, req.UserPrompt, findings)
	assert.Contains(t, req.UserPrompt, "Please analyze these medical findings against the Blue Book listings above.")
}

func TestBuildIncludesListingHeaders(t *testing.T) {
	docs := []retrieval.ScoredDocument{visionListing("2.02")}
	req := Build(findings, docs)

	assert.Contains(t, req.UserPrompt, "Listing 2.02 - Special Senses and Speech System")
	assert.Contains(t, req.UserPrompt, "Source: https://www.ssa.gov/bluebook/2.02")
}

func TestHearingSubsectionFilteredForVisionCase(t *testing.T) {
	docs := []retrieval.ScoredDocument{
		visionListing("2.02"),
		subsectionDoc(TopicVisual),
		subsectionDoc(TopicHearing),
	}
	req := Build(findings, docs)

	assert.Contains(t, req.UserPrompt, "Guidelines for visual_disorders")
	assert.NotContains(t, req.UserPrompt, "Guidelines for hearing_loss")
}

func TestGeneralSubsectionAlwaysIncluded(t *testing.T) {
	docs := []retrieval.ScoredDocument{
		visionListing("2.02"),
		subsectionDoc(TopicGeneral),
	}
	req := Build(findings, docs)

	assert.Contains(t, req.UserPrompt, "Guidelines for general")
}

func TestAllSubsectionsKeptWhenNoSpecialSensesListing(t *testing.T) {
	spineListing := scoredDoc("listing_1.15", "Spine listing body", map[string]string{
		retrieval.MetaListingNumber: "1.15",
		retrieval.MetaBodySystem:    "Musculoskeletal",
		retrieval.MetaDocType:       retrieval.DocTypeListing,
	})
	docs := []retrieval.ScoredDocument{
		spineListing,
		subsectionDoc(TopicVisual),
		subsectionDoc(TopicHearing),
	}
	req := Build("55-year-old with lumbar disc herniation", docs)

	assert.Contains(t, req.UserPrompt, "Guidelines for visual_disorders")
	assert.Contains(t, req.UserPrompt, "Guidelines for hearing_loss")
}

func TestSectionIntroIncludedAsGuideline(t *testing.T) {
	intro := scoredDoc("section_1.00", "Musculoskeletal evaluation guidance", map[string]string{
		retrieval.MetaSectionNumber: "1.00",
		retrieval.MetaBodySystem:    "Musculoskeletal",
		retrieval.MetaDocType:       retrieval.DocTypeSectionIntro,
	})
	docs := []retrieval.ScoredDocument{visionListing("2.02"), intro}
	req := Build(findings, docs)

	assert.Contains(t, req.UserPrompt, "EVALUATION GUIDELINES")
	assert.Contains(t, req.UserPrompt, "Section 1.00 - Musculoskeletal")
	assert.Contains(t, req.UserPrompt, "Musculoskeletal evaluation guidance")
}

func TestGuidelineTruncation(t *testing.T) {
	long := strings.Repeat("x", guidelineMaxLen+500)
	intro := scoredDoc("section_1.00", long, map[string]string{
		retrieval.MetaSectionNumber: "1.00",
		retrieval.MetaBodySystem:    "Musculoskeletal",
		retrieval.MetaDocType:       retrieval.DocTypeSectionIntro,
	})
	req := Build(findings, []retrieval.ScoredDocument{visionListing("2.02"), intro})

	assert.Contains(t, req.UserPrompt, truncationMarker)
	assert.NotContains(t, req.UserPrompt, long)
}

func TestVisualSubsectionGetsLargerCap(t *testing.T) {
	// Long enough to trip the default cap but not the visual one; the
	// acuity tables must survive intact.
	text := strings.Repeat("y", guidelineMaxLen+500)
	visual := retrieval.ScoredDocument{
		Document: retrieval.Document{
			ID:   "section_2.00_visual",
			Text: text,
			Metadata: map[string]string{
				retrieval.MetaSectionNumber:   "2.00",
				retrieval.MetaBodySystem:      "Special Senses and Speech",
				retrieval.MetaSubsectionTopic: TopicVisual,
			},
		},
	}
	req := Build(findings, []retrieval.ScoredDocument{visionListing("2.02"), visual})

	assert.Contains(t, req.UserPrompt, text)
	assert.NotContains(t, req.UserPrompt, truncationMarker)
}

func TestListingsNeverTruncated(t *testing.T) {
	long := strings.Repeat("z", guidelineMaxLen+1000)
	doc := scoredDoc("listing_1.15", long, map[string]string{
		retrieval.MetaListingNumber: "1.15",
		retrieval.MetaBodySystem:    "Musculoskeletal",
		retrieval.MetaDocType:       retrieval.DocTypeListing,
	})
	req := Build(findings, []retrieval.ScoredDocument{doc})

	assert.Contains(t, req.UserPrompt, long)
}

func TestSystemPromptContainsAgeRules(t *testing.T) {
	req := Build(findings, []retrieval.ScoredDocument{visionListing("2.02")})

	assert.Contains(t, strings.ToLower(req.SystemPrompt), "advanced age")
	assert.Contains(t, req.SystemPrompt, "55")
}

func TestSystemPromptContainsVisualAcuityTable(t *testing.T) {
	req := Build(findings, []retrieval.ScoredDocument{visionListing("2.02")})

	assert.Contains(t, req.SystemPrompt, "20/200")
	assert.Contains(t, req.SystemPrompt, "Visual Acuity")
}

func TestEmptyDocsStillProducesFindingsSection(t *testing.T) {
	req := Build(findings, nil)

	require.NotEmpty(t, req.UserPrompt)
	assert.NotContains(t, req.UserPrompt, "BLUE BOOK LISTINGS")
	assert.Contains(t, req.UserPrompt, "CLIENT'S MEDICAL FINDINGS:")
}
