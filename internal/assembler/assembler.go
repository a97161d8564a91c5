package assembler

import (
	"fmt"
	"strings"

	"github.com/bluebook-agent/backend/internal/retrieval"
)

// Guideline passages are capped so one oversized section intro cannot
// swamp the prompt. The visual-disorders subsection carries the acuity
// reference tables (Table 1, Table 2) and must never be cut mid-table,
// so it gets a far larger cap.
const (
	guidelineMaxLen       = 3000
	visualGuidelineMaxLen = 20000
	truncationMarker      = "\n[... truncated for brevity ...]"
)

// Subsection topics used to split the oversized Special Senses section
// into independently filterable pieces.
const (
	TopicVisual     = "visual_disorders"
	TopicHearing    = "hearing_loss"
	TopicVestibular = "vestibular"
	TopicSpeech     = "speech"
	TopicGeneral    = "general"
)

var (
	visionListingNumbers  = []string{"2.02", "2.03", "2.04"}
	hearingListingNumbers = []string{"2.10", "2.11"}
	vestibularListing     = "2.07"
	speechListing         = "2.09"
)

// Request is a fully assembled generation request.
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Build partitions the retrieved documents into primary listings and
// evaluation guidelines, filters topic subsections by relevance to the
// retrieved listings, and serializes everything plus the raw findings
// into one structured prompt.
func Build(medicalFindings string, docs []retrieval.ScoredDocument) Request {
	var listings, sectionIntros, subsections []retrieval.ScoredDocument
	for _, doc := range docs {
		switch {
		case doc.Metadata[retrieval.MetaDocType] == retrieval.DocTypeSectionIntro:
			sectionIntros = append(sectionIntros, doc)
		case doc.Metadata[retrieval.MetaSubsectionTopic] != "":
			subsections = append(subsections, doc)
		default:
			listings = append(listings, doc)
		}
	}

	// Promote only the subsections whose topic is relevant to the
	// retrieved listings. This is the single mechanism keeping hearing
	// evaluation rules out of a vision case and vice versa.
	if len(subsections) > 0 {
		relevant := relevantTopics(listings)
		for _, doc := range subsections {
			if relevant[doc.Metadata[retrieval.MetaSubsectionTopic]] {
				sectionIntros = append(sectionIntros, doc)
			}
		}
	}

	var parts []string

	if len(listings) > 0 {
		parts = append(parts, "BLUE BOOK LISTINGS (retrieved from database):")
		parts = append(parts, strings.Repeat("-", 60))
		for _, doc := range listings {
			number := metadataOrDefault(doc.Metadata, retrieval.MetaListingNumber, "N/A")
			system := metadataOrDefault(doc.Metadata, retrieval.MetaBodySystem, "Unknown")
			parts = append(parts, fmt.Sprintf("Listing %s - %s System", number, system))
			if url := doc.Metadata[retrieval.MetaSourceURL]; url != "" {
				parts = append(parts, fmt.Sprintf("Source: %s", url))
			}
			parts = append(parts, doc.Text)
			parts = append(parts, strings.Repeat("-", 40))
		}
		parts = append(parts, "")
	}

	if len(sectionIntros) > 0 {
		parts = append(parts, "EVALUATION GUIDELINES (from relevant body system sections):")
		parts = append(parts, strings.Repeat("-", 60))
		for _, doc := range sectionIntros {
			label := doc.Metadata[retrieval.MetaListingNumber]
			if label == "" {
				label = metadataOrDefault(doc.Metadata, retrieval.MetaSectionNumber, "N/A")
			}
			system := metadataOrDefault(doc.Metadata, retrieval.MetaBodySystem, "Unknown")
			parts = append(parts, fmt.Sprintf("Section %s - %s", label, system))

			maxLen := guidelineMaxLen
			if doc.Metadata[retrieval.MetaSubsectionTopic] == TopicVisual {
				maxLen = visualGuidelineMaxLen
			}
			parts = append(parts, truncate(doc.Text, maxLen))
			parts = append(parts, strings.Repeat("-", 40))
		}
		parts = append(parts, "")
	}

	parts = append(parts, "CLIENT'S MEDICAL FINDINGS:")
	parts = append(parts, strings.Repeat("-", 60))
	parts = append(parts, medicalFindings)
	parts = append(parts, strings.Repeat("-", 60))
	parts = append(parts, "")
	parts = append(parts, "Please analyze these medical findings against the Blue Book listings above.")

	return Request{
		SystemPrompt: SystemPrompt,
		UserPrompt:   strings.Join(parts, "\n"),
	}
}

// relevantTopics inspects the retrieved listing numbers and marks which
// subsection topics belong in the prompt. General guidance is always
// relevant; if no Special Senses listing was retrieved at all, every
// topic is kept so the caller still gets full context.
func relevantTopics(listings []retrieval.ScoredDocument) map[string]bool {
	numbers := make(map[string]bool, len(listings))
	for _, doc := range listings {
		numbers[doc.Metadata[retrieval.MetaListingNumber]] = true
	}

	hasVision := containsAny(numbers, visionListingNumbers)
	hasHearing := containsAny(numbers, hearingListingNumbers)
	hasVestibular := numbers[vestibularListing]
	hasSpeech := numbers[speechListing]

	relevant := map[string]bool{TopicGeneral: true}
	if hasVision {
		relevant[TopicVisual] = true
	}
	if hasHearing {
		relevant[TopicHearing] = true
	}
	if hasVestibular {
		relevant[TopicVestibular] = true
	}
	if hasSpeech {
		relevant[TopicSpeech] = true
	}

	if !hasVision && !hasHearing && !hasVestibular && !hasSpeech {
		relevant[TopicVisual] = true
		relevant[TopicHearing] = true
		relevant[TopicVestibular] = true
		relevant[TopicSpeech] = true
	}

	return relevant
}

func containsAny(set map[string]bool, keys []string) bool {
	for _, k := range keys {
		if set[k] {
			return true
		}
	}
	return false
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + truncationMarker
}

func metadataOrDefault(metadata map[string]string, key, fallback string) string {
	if v := metadata[key]; v != "" {
		return v
	}
	return fallback
}
