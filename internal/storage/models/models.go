package models

import "time"

// Listing is one Blue Book disability listing (e.g. 2.02 Loss of
// central visual acuity) as loaded from the scraped dataset.
type Listing struct {
	ID              string
	ListingNumber   string
	Title           string
	BodySystem      string
	FullText        string
	CriteriaSummary string
	SourceURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SectionIntro is the introductory guidance text for a Blue Book body
// system section (e.g. Section 2.00 Special Senses and Speech),
// optionally scoped to a subsection topic.
type SectionIntro struct {
	ID              string
	SectionNumber   string
	Title           string
	BodySystem      string
	SubsectionTopic string
	FullText        string
	SourceURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AnalysisRecord is one completed pipeline run kept for audit.
type AnalysisRecord struct {
	ID              string
	MedicalFindings string
	Analysis        string
	Status          string
	WarningCount    int
	DocumentCount   int
	LatencyMS       int
	CreatedAt       time.Time
}

// AnalysisSource links an analysis run to a cited listing.
type AnalysisSource struct {
	ID            int
	AnalysisID    string
	ListingNumber string
	SourceURL     string
}

// AnalysisWarning is one validation flag raised against a run.
type AnalysisWarning struct {
	ID         int
	AnalysisID string
	Warning    string
}
