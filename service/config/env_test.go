package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvKeepsHardcodedDefaults(t *testing.T) {
	svc, err := NewEnv()
	require.NoError(t, err)

	defaults := NewHardCoded()
	assert.Equal(t, defaults.GetServiceBaseURL(), svc.GetServiceBaseURL())
	assert.Equal(t, defaults.GetTargetFPS(), svc.GetTargetFPS())
	assert.Equal(t, 10, svc.GetGateParameters().RequiredHits)
	assert.InDelta(t, 0.7, svc.GetGateParameters().ConfidenceThreshold, 1e-9)
	assert.Equal(t, 15, svc.GetRecordingParameters().Seconds)
	assert.Equal(t, 2*time.Second, svc.GetRetrieverParameters().Backoff)
	assert.Zero(t, svc.GetRetrieverParameters().MaxAttempts)
}

func TestNewEnvAppliesOverrides(t *testing.T) {
	t.Setenv("LIVENESS_SERVICE_URL", "http://liveness.internal:9000")
	t.Setenv("LIVENESS_TARGET_FPS", "30")
	t.Setenv("LIVENESS_GATE_REQUIRED_HITS", "5")
	t.Setenv("LIVENESS_GATE_CONFIDENCE", "0.8")
	t.Setenv("LIVENESS_RECORDING_SECONDS", "10")
	t.Setenv("LIVENESS_RETRIEVER_BACKOFF", "500ms")
	t.Setenv("LIVENESS_RETRIEVER_MAX_ATTEMPTS", "20")

	svc, err := NewEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://liveness.internal:9000", svc.GetServiceBaseURL())
	assert.Equal(t, 30, svc.GetTargetFPS())
	assert.Equal(t, 5, svc.GetGateParameters().RequiredHits)
	assert.InDelta(t, 0.8, svc.GetGateParameters().ConfidenceThreshold, 1e-9)
	assert.Equal(t, 10, svc.GetRecordingParameters().Seconds)
	assert.Equal(t, 500*time.Millisecond, svc.GetRetrieverParameters().Backoff)
	assert.Equal(t, 20, svc.GetRetrieverParameters().MaxAttempts)
}

func TestNewEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("LIVENESS_GATE_CONFIDENCE", "1.5")

	_, err := NewEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence threshold")
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	t.Parallel()

	settings := Snapshot(NewHardCoded())
	settings.Recording.Tick = time.Millisecond

	assert.Equal(t, time.Millisecond, settings.GetRecordingParameters().Tick)
	assert.Equal(t, time.Second, NewHardCoded().GetRecordingParameters().Tick)
}
