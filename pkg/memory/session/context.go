package session

import (
	"context"
	"sort"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/pkg/memory/relevance"
)

const (
	relevanceWeight = 0.7
	recencyWeight   = 0.3
)

type rankedMessage struct {
	index    int
	message  entity.Message
	score    float64
	combined float64
}

// SelectContext picks the messages most worth carrying into the next
// reasoning call, within budget estimated tokens, oldest first.
//
// Messages are ranked by 0.7*relevance + 0.3*(timestamp/now) and accepted
// greedily until the next one would overflow the budget. Equal scores keep
// insertion order. A zero budget means the configured default.
func (m *Memory) SelectContext(ctx context.Context, id, query string, budget int) ([]entity.Message, error) {
	if budget < 0 {
		return nil, ErrNegativeBudget
	}
	if budget == 0 {
		budget = m.cfg.ContextBudget
	}

	st, ok := m.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	messages := append([]entity.Message(nil), st.session.Messages...)
	st.mu.Unlock()

	if len(messages) == 0 {
		return []entity.Message{}, nil
	}

	texts := make([]string, len(messages))
	for i, msg := range messages {
		texts[i] = msg.Content
	}
	scores := m.relevanceScores(ctx, query, texts)

	nowMs := float64(m.cfg.Now().UnixMilli())
	ranked := make([]rankedMessage, len(messages))
	for i, msg := range messages {
		recency := 0.0
		if nowMs > 0 {
			recency = float64(msg.Timestamp.UnixMilli()) / nowMs
		}
		ranked[i] = rankedMessage{
			index:    i,
			message:  msg,
			score:    scores[i],
			combined: relevanceWeight*scores[i] + recencyWeight*recency,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].combined > ranked[j].combined
	})

	selected := make([]rankedMessage, 0, len(ranked))
	used := 0
	for _, r := range ranked {
		cost := m.estimator.Estimate(r.message.Content)
		if used+cost > budget {
			break
		}
		used += cost
		selected = append(selected, r)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if !a.message.Timestamp.Equal(b.message.Timestamp) {
			return a.message.Timestamp.Before(b.message.Timestamp)
		}
		return a.index < b.index
	})

	out := make([]entity.Message, len(selected))
	for i, r := range selected {
		score := r.score
		out[i] = r.message
		out[i].Relevance = &score
	}
	return out, nil
}

func (m *Memory) relevanceScores(ctx context.Context, query string, texts []string) []float64 {
	if m.scorer != nil {
		if scores := m.scorer.ScoreMany(ctx, query, texts); len(scores) == len(texts) {
			return scores
		}
	}
	scores := make([]float64, len(texts))
	for i := range scores {
		scores[i] = relevance.DefaultFallbackScore
	}
	return scores
}
