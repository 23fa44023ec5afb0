package enrich

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/logger"
)

// decodeStage decodes a structured stage output into T. Providers wrap JSON
// in markdown fences often enough that the fence is stripped first. A decode
// failure is logged and yields the zero value; it never fails the run.
func decodeStage[T any](log *zap.Logger, stage, raw string) *T {
	out := new(T)

	cleaned := extractJSON(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		log.Warn("stage output is not valid JSON, keeping empty result",
			zap.String("stage", stage),
			zap.String("output", logger.TruncateForLog(raw, 200)),
			zap.Error(err),
		)
		return new(T)
	}
	return out
}

// clampMatchScore bounds a model-reported compatibility score to 0-100.
func clampMatchScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
