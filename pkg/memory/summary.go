package memory

import (
	"strings"
	"unicode/utf8"

	"survey-assistant-be/internal/entity"
)

const (
	summaryTopics   = 3
	summaryMaxRunes = 280
)

// Summarize condenses a session into its durable record.
func Summarize(s entity.Session) entity.HistoricalSession {
	summary := entity.HistoricalSession{
		Id:           s.Id,
		UserId:       s.UserId,
		MessageCount: len(s.Messages),
		Patterns:     append([]string(nil), s.Patterns...),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.LastActivity,
	}

	var topics []string
	var levels []entity.ComplexityLevel
	for _, msg := range s.Messages {
		summary.TotalTokens += msg.TokenCount
		if msg.Result != nil {
			summary.TotalCost += msg.Result.TotalCost
			levels = append(levels, msg.Result.Complexity.Level)
		}
		if msg.Role == entity.MessageRoleUser && len(topics) < summaryTopics {
			if t := strings.TrimSpace(msg.Content); t != "" {
				topics = append(topics, t)
			}
		}
	}
	summary.Summary = truncateRunes(strings.Join(topics, " | "), summaryMaxRunes)

	history := make([]entity.ComplexityLevel, 0, len(s.ComplexityHistory))
	for _, a := range s.ComplexityHistory {
		history = append(history, a.Level)
	}
	if level := dominant(history); level != "" {
		summary.DominantComplexity = level
	} else {
		summary.DominantComplexity = dominant(levels)
	}
	return summary
}

// dominant returns the most frequent level; ties go to the one seen last.
func dominant(levels []entity.ComplexityLevel) entity.ComplexityLevel {
	counts := make(map[entity.ComplexityLevel]int)
	lastSeen := make(map[entity.ComplexityLevel]int)
	for i, l := range levels {
		if l == "" {
			continue
		}
		counts[l]++
		lastSeen[l] = i
	}

	var best entity.ComplexityLevel
	for l, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && lastSeen[l] > lastSeen[best]) {
			best = l
		}
	}
	return best
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
