// Package gating decides whether a classified mail item becomes a stored
// update. The decision is a pure function of (label, confidence);
// threshold and noise labels are deployment configuration, not per-user.
package gating

import (
	"strings"

	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
)

const DefaultThreshold = 0.5

// DefaultNoiseLabels are rejected outright regardless of confidence.
var DefaultNoiseLabels = []string{"spam", "promotional"}

type Policy struct {
	threshold float64
	noise     map[string]struct{}
}

func NewPolicy(cfg config.GatingConfig) Policy {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	labels := cfg.NoiseLabels
	if len(labels) == 0 {
		labels = DefaultNoiseLabels
	}

	noise := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		noise[strings.ToLower(l)] = struct{}{}
	}

	return Policy{threshold: threshold, noise: noise}
}

// Decide reports whether an item with the given label and confidence is
// accepted. Noise labels lose unconditionally; everything else needs
// confidence at or above the threshold.
func (p Policy) Decide(label string, confidence float64) bool {
	if _, isNoise := p.noise[strings.ToLower(label)]; isNoise {
		return false
	}
	return confidence >= p.threshold
}

// Threshold returns the configured confidence threshold.
func (p Policy) Threshold() float64 { return p.threshold }
