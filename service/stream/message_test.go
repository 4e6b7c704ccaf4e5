package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretCompletion(t *testing.T) {
	t.Parallel()

	msg, err := Interpret(`{"status":"completed"}`)
	require.NoError(t, err)
	assert.Equal(t, MessageCompleted, msg.Kind)
}

func TestInterpretResult(t *testing.T) {
	t.Parallel()

	msg, err := Interpret(`{"frame_number":12,"liveness_score":0.87,"decision":"LIVE","blink_detected":true,"blink_count":2,"current_fps":23.5}`)
	require.NoError(t, err)
	require.Equal(t, MessageResult, msg.Kind)
	assert.Equal(t, 12, msg.Result.FrameNumber)
	assert.InDelta(t, 0.87, msg.Result.LivenessScore, 0.0001)
	assert.Equal(t, "LIVE", msg.Result.Decision)
	assert.True(t, msg.Result.BlinkDetected)
	assert.Equal(t, 2, msg.Result.BlinkCount)
	assert.InDelta(t, 23.5, msg.Result.CurrentFPS, 0.0001)
}

func TestInterpretRejects(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"not json":         `stop`,
		"array":            `[1,2]`,
		"other status":     `{"status":"processing"}`,
		"status wins":      `{"status":"error","frame_number":3}`,
		"no frame number":  `{"liveness_score":0.5}`,
		"string frame":     `{"frame_number":"7"}`,
		"mistyped payload": `{"frame_number":7,"decision":5}`,
	} {
		raw := raw
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Interpret(raw)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}
