package pipeline

import (
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
)

// Gate decides when sustained face presence justifies starting a session
// and when face loss must abort a running one.
type Gate struct {
	requiredHits int
	threshold    float64

	hits    int
	latched bool
}

func NewGate(params config.GateParameters) *Gate {
	return &Gate{
		requiredHits: params.RequiredHits,
		threshold:    params.ConfidenceThreshold,
	}
}

// OnSample folds one detection into the gate. active reports whether a
// recording is in progress.
func (g *Gate) OnSample(sample model.DetectionSample, active bool) GateDecision {
	if active {
		if !sample.Detected {
			return GateAbortActiveSession
		}
		return GateContinue
	}

	if !g.qualifies(sample) {
		g.hits = 0
		g.latched = false
		return GateContinue
	}

	if g.latched {
		return GateContinue
	}

	g.hits++
	if g.hits >= g.requiredHits {
		g.latched = true
		return GateRequestSessionStart
	}
	return GateContinue
}

func (g *Gate) Reset() {
	g.hits = 0
	g.latched = false
}

func (g *Gate) Hits() int {
	return g.hits
}

func (g *Gate) qualifies(sample model.DetectionSample) bool {
	return sample.Detected && sample.Confidence > g.threshold
}
