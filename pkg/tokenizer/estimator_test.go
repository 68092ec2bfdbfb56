package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharEstimator(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "a", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: strings.Repeat("x", 400), want: 100},
		{text: "ééééé", want: 2},
	}

	est := CharEstimator{}
	for _, tt := range tests {
		assert.Equal(t, tt.want, est.Estimate(tt.text), "text %q", tt.text)
	}
}

func TestNew(t *testing.T) {
	est, err := New("")
	require.NoError(t, err)
	assert.IsType(t, CharEstimator{}, est)

	est, err = New("bogus")
	require.Error(t, err)
	assert.IsType(t, CharEstimator{}, est)
}
