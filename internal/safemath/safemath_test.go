package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiv(t *testing.T) {
	assert.Equal(t, 2.5, Div(5, 2))
	assert.Equal(t, 0.0, Div(5, 0), "zero denominator yields exactly 0")
	assert.Equal(t, 0.0, Div(0, 0))
	assert.Equal(t, 0.0, Div(math.Inf(1), 1))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.5, Ratio(1, 2))
	assert.Equal(t, 0.0, Ratio(3, 0))
	assert.Equal(t, 0.0, Ratio(0, 10))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, 42.0, Sanitize(42))
	assert.Equal(t, 0.0, Sanitize(math.NaN()))
	assert.Equal(t, 0.0, Sanitize(math.Inf(1)))
	assert.Equal(t, 0.0, Sanitize(math.Inf(-1)))
}
