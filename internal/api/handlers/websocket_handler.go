package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/pipeline"
	"github.com/bluebook-agent/backend/pkg/logger"
)

var stageMessages = map[string]string{
	"retrieving": "Searching Blue Book listings...",
	"generating": "Analyzing medical findings...",
	"validating": "Validating analysis...",
}

type WebSocketHandler struct {
	analyzer Analyzer
}

func NewWebSocketHandler(analyzer Analyzer) *WebSocketHandler {
	return &WebSocketHandler{analyzer: analyzer}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type            string `json:"type"`
			MedicalFindings string `json:"medical_findings"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "analyze" {
			continue
		}

		if err := h.streamAnalysis(c, msg.MedicalFindings); err != nil {
			logger.Error("Failed to stream analysis", zap.Error(err))
		}
	}
}

func (h *WebSocketHandler) streamAnalysis(c *websocket.Conn, medicalFindings string) error {
	ctx := context.Background()

	result, err := h.analyzer.AnalyzeWithProgress(ctx, medicalFindings, func(stage string) {
		h.send(c, "status", stageMessages[stage])
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyFindings) || errors.Is(err, pipeline.ErrShortFindings) {
			h.sendError(c, err.Error())
			return nil
		}
		h.sendError(c, err.Error())
		return err
	}

	// The analysis is generated in one shot; streaming it paragraph by
	// paragraph keeps the frontend responsive on long reports.
	for _, paragraph := range strings.Split(result.Analysis, "\n\n") {
		if err := h.send(c, "chunk", paragraph+"\n\n"); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":                "complete",
		"analysis_id":         result.ID,
		"status":              result.Status,
		"matched_listings":    result.MatchedListings,
		"sources":             result.Sources,
		"validation_warnings": result.ValidationWarnings,
		"disclaimer":          result.Disclaimer,
	})
}

func (h *WebSocketHandler) send(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
