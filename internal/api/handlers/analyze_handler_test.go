package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebook-agent/backend/internal/pipeline"
)

type stubAnalyzer struct {
	result *pipeline.Result
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, medicalFindings string) (*pipeline.Result, error) {
	return s.result, s.err
}

func (s *stubAnalyzer) AnalyzeWithProgress(ctx context.Context, medicalFindings string, onStage func(string)) (*pipeline.Result, error) {
	return s.result, s.err
}

func newTestApp(analyzer Analyzer) *fiber.App {
	app := fiber.New()
	h := NewAnalyzeHandler(analyzer)
	app.Post("/api/v1/analyze", h.HandleAnalyze)
	return app
}

func postAnalyze(t *testing.T, app *fiber.App, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))

	return resp.StatusCode, parsed
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{result: &pipeline.Result{
		ID:              "run-1",
		Status:          pipeline.StatusSuccess,
		Analysis:        "analysis text",
		MatchedListings: []string{"2.02"},
		RetrievedCount:  3,
		Disclaimer:      "This is a research aid for attorneys.",
	}}
	app := newTestApp(analyzer)

	status, body := postAnalyze(t, app, `{"medical_findings": "62-year-old with diabetic retinopathy, acuity 20/200"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "analysis text", body["analysis"])
	assert.Equal(t, float64(3), body["retrieved_count"])
}

func TestHandleAnalyzeEmptyFindingsIsBadRequest(t *testing.T) {
	analyzer := &stubAnalyzer{err: pipeline.ErrEmptyFindings}
	app := newTestApp(analyzer)

	status, body := postAnalyze(t, app, `{"medical_findings": ""}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, pipeline.ErrEmptyFindings.Error(), body["error"])
}

func TestHandleAnalyzeShortFindingsIsBadRequest(t *testing.T) {
	analyzer := &stubAnalyzer{err: pipeline.ErrShortFindings}
	app := newTestApp(analyzer)

	status, body := postAnalyze(t, app, `{"medical_findings": "back pain"}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "more detailed medical findings")
}

func TestHandleAnalyzePipelineErrorIsServerError(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("database search failed: collection not loaded")}
	app := newTestApp(analyzer)

	status, body := postAnalyze(t, app, `{"medical_findings": "62-year-old with chronic heart failure, EF 30%"}`)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Contains(t, body["error"], "database search failed")
}

func TestHandleAnalyzeMalformedBody(t *testing.T) {
	app := newTestApp(&stubAnalyzer{})

	status, body := postAnalyze(t, app, `{not json`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestHandleAnalyzeNoResultsStatusPassedThrough(t *testing.T) {
	analyzer := &stubAnalyzer{result: &pipeline.Result{
		ID:              "run-2",
		Status:          pipeline.StatusNoResults,
		Analysis:        "No matching Blue Book listings were found for the provided medical findings.",
		MatchedListings: []string{},
	}}
	app := newTestApp(analyzer)

	status, body := postAnalyze(t, app, `{"medical_findings": "extremely rare condition description here"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "no_results", body["status"])
}
