package pipeline

import (
	"testing"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/stretchr/testify/assert"
)

var (
	face   = model.DetectionSample{Detected: true, Confidence: 0.9}
	weak   = model.DetectionSample{Detected: true, Confidence: 0.7}
	noFace = model.DetectionSample{Detected: false}
)

func newTestGate() *Gate {
	return NewGate(config.NewHardCoded().GetGateParameters())
}

func feed(g *Gate, samples ...model.DetectionSample) []GateDecision {
	out := make([]GateDecision, 0, len(samples))
	for _, s := range samples {
		out = append(out, g.OnSample(s, false))
	}
	return out
}

func repeat(s model.DetectionSample, n int) []model.DetectionSample {
	out := make([]model.DetectionSample, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func countStarts(decisions []GateDecision) int {
	n := 0
	for _, d := range decisions {
		if d == GateRequestSessionStart {
			n++
		}
	}
	return n
}

func TestGateRequestsStartOnTenthHit(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	decisions := feed(g, repeat(face, 10)...)

	for i, d := range decisions[:9] {
		assert.Equal(t, GateContinue, d, "sample %d", i)
	}
	assert.Equal(t, GateRequestSessionStart, decisions[9])
	assert.Equal(t, 10, g.Hits())
}

func TestGateLatchesUntilBrokenStreak(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	assert.Equal(t, 1, countStarts(feed(g, repeat(face, 30)...)))

	feed(g, noFace)
	assert.Equal(t, 0, g.Hits())
	assert.Equal(t, 1, countStarts(feed(g, repeat(face, 10)...)))
}

func TestGateConfidenceMustExceedThreshold(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	assert.Equal(t, 0, countStarts(feed(g, repeat(weak, 20)...)))
	assert.Equal(t, 0, g.Hits())
}

func TestGateStreakResetByNonQualifyingSample(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	samples := append(repeat(face, 9), weak)
	samples = append(samples, repeat(face, 9)...)
	assert.Equal(t, 0, countStarts(feed(g, samples...)))
	assert.Equal(t, 9, g.Hits())

	assert.Equal(t, GateRequestSessionStart, g.OnSample(face, false))
}

// Start is requested exactly when the ten most recent samples qualify and
// the previous request was not already issued for the same streak.
func TestGateMatchesStreakModel(t *testing.T) {
	t.Parallel()

	patterns := []model.DetectionSample{face, face, face, weak, face, noFace, face}
	g := newTestGate()
	streak, fired := 0, false
	for i := 0; i < 500; i++ {
		// Deterministic pseudo random walk with long qualifying runs
		s := face
		if (i*7+i/13)%17 == 0 {
			s = patterns[i%len(patterns)]
		}

		got := g.OnSample(s, false)

		want := GateContinue
		if s.Detected && s.Confidence > 0.7 {
			streak++
			if streak >= 10 && !fired {
				want = GateRequestSessionStart
				fired = true
			}
		} else {
			streak, fired = 0, false
		}
		assert.Equal(t, want, got, "sample %d", i)
	}
}

func TestGateAbortsOnSingleMiss(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	feed(g, repeat(face, 10)...)

	assert.Equal(t, GateContinue, g.OnSample(face, true))
	assert.Equal(t, GateContinue, g.OnSample(weak, true))
	assert.Equal(t, GateAbortActiveSession, g.OnSample(noFace, true))
}

func TestGateReset(t *testing.T) {
	t.Parallel()

	g := newTestGate()
	feed(g, repeat(face, 10)...)
	g.Reset()
	assert.Equal(t, 0, g.Hits())
	assert.Equal(t, 1, countStarts(feed(g, repeat(face, 10)...)))
}
