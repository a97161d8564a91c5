package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Findings text is free-form clinical prose, so only script-injection
// patterns are rejected; medical vocabulary overlaps too much with SQL
// keywords ("select", "insert") for keyword screens to be safe here.
var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxFindingsLength int
	Logger            *zap.Logger
}

// Middleware screens analyze requests before they reach the pipeline:
// JSON content type, a medical_findings string field, a length cap,
// and no embedded markup.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxFindingsLength == 0 {
		cfg.MaxFindingsLength = 50000
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || !strings.Contains(c.Path(), "/api/v1/analyze") {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		findings, ok := req["medical_findings"].(string)
		if !ok || strings.TrimSpace(findings) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "medical_findings is required and must be a string",
			})
		}

		if len(findings) > cfg.MaxFindingsLength {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "Medical findings exceed maximum length",
			})
		}

		if xssPattern.MatchString(findings) {
			cfg.Logger.Warn("Markup rejected in findings",
				zap.String("ip", c.IP()),
			)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid findings content",
			})
		}

		return c.Next()
	}
}
