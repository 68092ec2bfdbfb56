package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	EstimatorChars    = "chars"
	EstimatorTiktoken = "tiktoken"
)

// Estimator approximates how many model tokens a text occupies.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator is the reference heuristic: one token per four characters, rounded up.
type CharEstimator struct{}

func (CharEstimator) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TiktokenEstimator counts BPE tokens with a tiktoken encoding.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}

// New returns the estimator named by kind, falling back to CharEstimator when
// the tiktoken encoding cannot be loaded.
func New(kind string) (Estimator, error) {
	switch kind {
	case "", EstimatorChars:
		return CharEstimator{}, nil
	case EstimatorTiktoken:
		est, err := NewTiktokenEstimator("")
		if err != nil {
			return CharEstimator{}, err
		}
		return est, nil
	default:
		return CharEstimator{}, fmt.Errorf("unknown token estimator %q", kind)
	}
}
