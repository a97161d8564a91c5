package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/assembler"
	"github.com/bluebook-agent/backend/internal/metrics"
	"github.com/bluebook-agent/backend/internal/retrieval"
	"github.com/bluebook-agent/backend/internal/storage/models"
	"github.com/bluebook-agent/backend/internal/storage/sqlite"
	"github.com/bluebook-agent/backend/internal/validator"
	"github.com/bluebook-agent/backend/pkg/logger"
	"github.com/bluebook-agent/backend/pkg/utils"
)

// Terminal states of a pipeline run. Input and infrastructure failures
// are returned as errors instead.
const (
	StatusSuccess   = "success"
	StatusNoResults = "no_results"
	StatusError     = "error"
)

const (
	disclaimerFull  = "This is a research aid for attorneys. It does not constitute legal advice. All analysis must be independently verified."
	disclaimerShort = "This is a research aid for attorneys. It does not constitute legal advice."
)

// Input validation failures; handlers map these to client errors.
var (
	ErrEmptyFindings = errors.New("Medical findings text cannot be empty.")
	ErrShortFindings = errors.New("Please provide more detailed medical findings (at least a few sentences).")
)

// listingNumberPattern matches cited listing numbers like "2.02" or
// "12.04", with or without a "Listing" prefix.
var listingNumberPattern = regexp.MustCompile(`(?:Listing\s+)?(\d{1,2}\.\d{2})`)

// Searcher is the retrieval leg of the pipeline.
type Searcher interface {
	Search(ctx context.Context, query string) ([]retrieval.ScoredDocument, error)
}

// Generator is the LLM leg of the pipeline.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ResultCache caches whole results keyed by a hash of the findings.
type ResultCache interface {
	GetAnalysis(ctx context.Context, findingsHash string, result interface{}) (bool, error)
	SetAnalysis(ctx context.Context, findingsHash string, result interface{}, ttl time.Duration) error
}

// Source is one cited listing with its Blue Book link.
type Source struct {
	ListingNumber string `json:"listing_number"`
	BodySystem    string `json:"body_system"`
	SourceURL     string `json:"source_url"`
}

// Result is the structured outcome of one analysis run.
type Result struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Analysis           string            `json:"analysis"`
	MatchedListings    []string          `json:"matched_listings"`
	RetrievedCount     int               `json:"retrieved_count"`
	Sources            map[string]Source `json:"sources,omitempty"`
	ValidationWarnings []string          `json:"validation_warnings,omitempty"`
	Disclaimer         string            `json:"disclaimer"`
}

// Pipeline runs retrieve, assemble, generate, validate in order.
// Cache and history are optional; their failures never fail a run.
type Pipeline struct {
	searcher  Searcher
	generator Generator
	cache     ResultCache
	history   *sqlite.Client
	cacheTTL  time.Duration
}

type Option func(*Pipeline)

func WithCache(cache ResultCache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = cache
		p.cacheTTL = ttl
	}
}

func WithHistory(history *sqlite.Client) Option {
	return func(p *Pipeline) { p.history = history }
}

func New(searcher Searcher, generator Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		searcher:  searcher,
		generator: generator,
		cacheTTL:  time.Hour,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze runs the full pipeline for one findings text.
func (p *Pipeline) Analyze(ctx context.Context, medicalFindings string) (*Result, error) {
	return p.analyze(ctx, medicalFindings, nil)
}

// AnalyzeWithProgress additionally reports stage transitions, used by
// the streaming endpoint. Stages are "retrieving", "generating",
// "validating".
func (p *Pipeline) AnalyzeWithProgress(ctx context.Context, medicalFindings string, onStage func(stage string)) (*Result, error) {
	return p.analyze(ctx, medicalFindings, onStage)
}

func (p *Pipeline) analyze(ctx context.Context, medicalFindings string, onStage func(string)) (*Result, error) {
	start := time.Now()

	medicalFindings = strings.TrimSpace(medicalFindings)
	if medicalFindings == "" {
		return nil, ErrEmptyFindings
	}
	if len(medicalFindings) < 20 {
		return nil, ErrShortFindings
	}

	findingsHash := utils.HashString(medicalFindings)
	if p.cache != nil {
		var cached Result
		if ok, err := p.cache.GetAnalysis(ctx, findingsHash, &cached); err == nil && ok {
			metrics.CacheHits.WithLabelValues("analysis").Inc()
			logger.Info("Analysis served from cache", zap.String("analysis_id", cached.ID))
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("analysis").Inc()
	}

	analysisID := uuid.New().String()
	log := logger.GetLogger().With(zap.String("analysis_id", analysisID))

	reportStage(onStage, "retrieving")
	docs, err := p.searcher.Search(ctx, medicalFindings)
	if err != nil {
		p.finish(analysisID, medicalFindings, "", StatusError, nil, 0, start)
		return nil, fmt.Errorf("database search failed: %w (make sure the index has been built)", err)
	}
	metrics.RetrievedDocuments.Observe(float64(len(docs)))

	if len(docs) == 0 {
		result := &Result{
			ID:              analysisID,
			Status:          StatusNoResults,
			Analysis:        "No matching Blue Book listings were found for the provided medical findings.",
			MatchedListings: []string{},
			RetrievedCount:  0,
			Disclaimer:      disclaimerShort,
		}
		p.finish(analysisID, medicalFindings, result.Analysis, StatusNoResults, nil, 0, start)
		log.Info("Analysis finished with no results")
		return result, nil
	}

	req := assembler.Build(medicalFindings, docs)

	reportStage(onStage, "generating")
	analysisText, err := p.generator.Complete(ctx, req.SystemPrompt, req.UserPrompt)
	if err != nil {
		p.finish(analysisID, medicalFindings, "", StatusError, nil, len(docs), start)
		return nil, err
	}

	reportStage(onStage, "validating")
	warnings := validator.Validate(analysisText, medicalFindings)
	for _, w := range warnings {
		metrics.ValidationWarnings.WithLabelValues(warningKind(w)).Inc()
	}

	if len(warnings) > 0 {
		var block strings.Builder
		block.WriteString("\n\n---\n⚠️ **AUTOMATED VALIDATION FLAGS:**\n")
		for _, w := range warnings {
			block.WriteString("- ")
			block.WriteString(w)
			block.WriteString("\n")
		}
		analysisText += block.String()
		log.Warn("Validation flagged analysis", zap.Int("warnings", len(warnings)))
	}

	result := &Result{
		ID:                 analysisID,
		Status:             StatusSuccess,
		Analysis:           analysisText,
		MatchedListings:    extractListingNumbers(analysisText),
		RetrievedCount:     len(docs),
		Sources:            buildSources(docs),
		ValidationWarnings: warnings,
		Disclaimer:         disclaimerFull,
	}

	if p.cache != nil {
		if err := p.cache.SetAnalysis(ctx, findingsHash, result, p.cacheTTL); err != nil {
			log.Warn("Failed to cache analysis", zap.Error(err))
		}
	}

	p.finish(analysisID, medicalFindings, analysisText, StatusSuccess, result, len(docs), start)

	log.Info("Analysis completed",
		zap.Int("retrieved", len(docs)),
		zap.Int("matched_listings", len(result.MatchedListings)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("latency", time.Since(start)),
	)

	return result, nil
}

// finish records metrics and, when history is configured, the audit row.
func (p *Pipeline) finish(analysisID, findings, analysis, status string, result *Result, docCount int, start time.Time) {
	elapsed := time.Since(start)
	metrics.AnalysisTotal.WithLabelValues(status).Inc()
	metrics.AnalysisDuration.WithLabelValues(status).Observe(elapsed.Seconds())

	if p.history == nil {
		return
	}

	warningCount := 0
	if result != nil {
		warningCount = len(result.ValidationWarnings)
	}

	record := &models.AnalysisRecord{
		ID:              analysisID,
		MedicalFindings: findings,
		Analysis:        analysis,
		Status:          status,
		WarningCount:    warningCount,
		DocumentCount:   docCount,
		LatencyMS:       int(elapsed.Milliseconds()),
		CreatedAt:       time.Now(),
	}
	if err := p.history.InsertAnalysisRecord(record); err != nil {
		logger.Warn("Failed to record analysis", zap.Error(err))
		return
	}

	if result == nil {
		return
	}
	for _, src := range result.Sources {
		if err := p.history.InsertAnalysisSource(&models.AnalysisSource{
			AnalysisID:    analysisID,
			ListingNumber: src.ListingNumber,
			SourceURL:     src.SourceURL,
		}); err != nil {
			logger.Warn("Failed to record analysis source", zap.Error(err))
		}
	}
	for _, w := range result.ValidationWarnings {
		if err := p.history.InsertAnalysisWarning(&models.AnalysisWarning{
			AnalysisID: analysisID,
			Warning:    w,
		}); err != nil {
			logger.Warn("Failed to record analysis warning", zap.Error(err))
		}
	}
}

// extractListingNumbers pulls every cited listing number out of the
// analysis text, deduplicated and sorted.
func extractListingNumbers(analysis string) []string {
	seen := make(map[string]bool)
	var numbers []string
	for _, m := range listingNumberPattern.FindAllStringSubmatch(analysis, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			numbers = append(numbers, m[1])
		}
	}
	sort.Strings(numbers)
	if numbers == nil {
		numbers = []string{}
	}
	return numbers
}

// buildSources maps each retrieved listing to its Blue Book link.
// First occurrence wins; section intros carry no listing number and
// are skipped.
func buildSources(docs []retrieval.ScoredDocument) map[string]Source {
	sources := make(map[string]Source)
	for _, doc := range docs {
		num := doc.Metadata[retrieval.MetaListingNumber]
		url := doc.Metadata[retrieval.MetaSourceURL]
		if num == "" || url == "" {
			continue
		}
		if _, ok := sources[num]; ok {
			continue
		}
		sources[num] = Source{
			ListingNumber: num,
			BodySystem:    doc.Metadata[retrieval.MetaBodySystem],
			SourceURL:     url,
		}
	}
	return sources
}

func warningKind(warning string) string {
	switch {
	case strings.HasPrefix(warning, "AGE ERROR"):
		return "age_error"
	case strings.HasPrefix(warning, "CALCULATION GAP"):
		return "calculation_gap"
	case strings.HasPrefix(warning, "CONTAMINATION WARNING"):
		return "contamination"
	default:
		return "missing_section"
	}
}

func reportStage(onStage func(string), stage string) {
	if onStage != nil {
		onStage(stage)
	}
}
