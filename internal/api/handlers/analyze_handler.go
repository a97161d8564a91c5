package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/pipeline"
	"github.com/bluebook-agent/backend/pkg/logger"
)

// Analyzer is the pipeline surface the HTTP layer needs.
type Analyzer interface {
	Analyze(ctx context.Context, medicalFindings string) (*pipeline.Result, error)
	AnalyzeWithProgress(ctx context.Context, medicalFindings string, onStage func(stage string)) (*pipeline.Result, error)
}

type AnalyzeHandler struct {
	analyzer Analyzer
}

func NewAnalyzeHandler(analyzer Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer}
}

func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	var req struct {
		MedicalFindings string `json:"medical_findings"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.analyzer.Analyze(c.Context(), req.MedicalFindings)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyFindings) || errors.Is(err, pipeline.ErrShortFindings) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Analysis failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}
