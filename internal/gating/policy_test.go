package gating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
)

func TestPolicyDecide(t *testing.T) {
	policy := NewPolicy(config.GatingConfig{
		Threshold:   0.5,
		NoiseLabels: []string{"spam", "promotional"},
	})

	tests := []struct {
		name       string
		label      string
		confidence float64
		want       bool
	}{
		{"confident career mail accepted", "career", 0.9, true},
		{"spam rejected despite high confidence", "spam", 0.95, false},
		{"low confidence event rejected", "event", 0.4, false},
		{"confidence exactly at threshold accepted", "deadline", 0.5, true},
		{"confidence just below threshold rejected", "deadline", 0.49, false},
		{"promotional rejected", "promotional", 1.0, false},
		{"noise label match is case-insensitive", "SPAM", 0.99, false},
		{"general label over threshold accepted", "general", 0.75, true},
		{"zero confidence rejected", "career", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Decide(tt.label, tt.confidence))
		})
	}
}

func TestPolicyDefaults(t *testing.T) {
	policy := NewPolicy(config.GatingConfig{})

	assert.Equal(t, DefaultThreshold, policy.Threshold())
	assert.False(t, policy.Decide("spam", 0.99))
	assert.False(t, policy.Decide("promotional", 0.99))
	assert.True(t, policy.Decide("career", 0.6))
	assert.False(t, policy.Decide("career", 0.4))
}
