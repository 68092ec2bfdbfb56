package session

import (
	"fmt"
	"strings"

	"survey-assistant-be/internal/entity"
)

const (
	lowTokenUsage    = 1000
	mediumTokenUsage = 5000
)

// DerivePatterns lists the pattern tags a reasoning result contributes.
func DerivePatterns(result *entity.ReasoningResult) []string {
	if result == nil {
		return nil
	}

	var tags []string
	if result.Complexity.Level != "" {
		tags = append(tags, "complexity:"+strings.ToLower(string(result.Complexity.Level)))
	}
	for _, p := range result.Phases {
		if p.Type != "" {
			tags = append(tags, "phase:"+strings.ToLower(p.Type))
		}
	}
	if n := result.CorrectionCount(); n > 0 {
		tags = append(tags, fmt.Sprintf("self_corrections:%d", n))
	}
	tags = append(tags, "tokens:"+tokenBucket(result.TotalTokens))
	return tags
}

func tokenBucket(tokens int) string {
	switch {
	case tokens < lowTokenUsage:
		return "low"
	case tokens < mediumTokenUsage:
		return "medium"
	default:
		return "high"
	}
}

// mergePatterns appends tags not already present and keeps the newest max.
func mergePatterns(existing, incoming []string, max int) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}
	for _, t := range incoming {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		existing = append(existing, t)
	}
	return keepLast(existing, max)
}
