package entity

import (
	"time"

	"github.com/google/uuid"
)

type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "SIMPLE"
	ComplexityModerate ComplexityLevel = "MODERATE"
	ComplexityComplex  ComplexityLevel = "COMPLEX"
	ComplexityCreative ComplexityLevel = "CREATIVE"
)

// ComplexityAssessment is produced by the external classifier.
type ComplexityAssessment struct {
	Level      ComplexityLevel
	Confidence float64
	AssessedAt time.Time
}

type ReasoningPhase struct {
	Id          uuid.UUID
	Type        string // "analysis" | "planning" | "execution" | "reflection" ...
	Content     string
	TokenCount  int
	Duration    time.Duration
	Corrections int
}

// ReasoningResult is the output of one run of the external reasoning pipeline.
// CanUseCache is decided by the pipeline; the memory layer only honours it.
type ReasoningResult struct {
	Id              uuid.UUID
	Query           string
	Phases          []ReasoningPhase
	TotalTokens     int
	TotalCost       float64
	Duration        time.Duration
	Confidence      float64
	Complexity      ComplexityAssessment
	ModelId         string
	TemplateId      string
	SelfCorrections int
	CanUseCache     bool
	CreatedAt       time.Time
}

// CorrectionCount sums the explicit self-correction counter and the per-phase corrections.
func (r *ReasoningResult) CorrectionCount() int {
	total := r.SelfCorrections
	for _, p := range r.Phases {
		total += p.Corrections
	}
	return total
}

// FinalContent is the content of the last non-empty phase.
func (r *ReasoningResult) FinalContent() string {
	for i := len(r.Phases) - 1; i >= 0; i-- {
		if r.Phases[i].Content != "" {
			return r.Phases[i].Content
		}
	}
	return ""
}
