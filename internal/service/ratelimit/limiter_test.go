package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_BucketStartsFull(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("finnhub", 2, 0))
	assert.True(t, l.Allow("finnhub", 2, 0))
	assert.False(t, l.Allow("finnhub", 2, 0))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("finnhub", 1, 0))
	assert.False(t, l.Allow("finnhub", 1, 0))
	assert.True(t, l.Allow("alphavantage", 1, 0))
}

func TestAllow_ZeroCapacityNeverAllows(t *testing.T) {
	l := New()
	assert.False(t, l.Allow("finnhub", 0, 0))
}
