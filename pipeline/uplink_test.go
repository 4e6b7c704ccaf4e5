package pipeline

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	messages []string
	err      error
}

func (s *recordingSender) Send(message string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestUplinkInactiveDiscards(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	u := NewUplink(sender, 25, time.Second)

	sent, err := u.Offer(model.OutboundFrame{Payload: []byte("x"), At: epoch})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, sender.messages)
}

func TestUplinkEncodesBase64(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	u := NewUplink(sender, 25, time.Second)
	u.Start("abc", epoch)

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}
	sent, err := u.Offer(model.OutboundFrame{Payload: payload, At: epoch})
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, sender.messages, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), sender.messages[0])
}

func TestUplinkThrottleBound(t *testing.T) {
	t.Parallel()

	for _, step := range []time.Duration{time.Millisecond, 7 * time.Millisecond, 39 * time.Millisecond} {
		sender := &recordingSender{}
		u := NewUplink(sender, 25, time.Second)
		u.Start("abc", epoch)
		require.Equal(t, 40*time.Millisecond, u.Interval())

		window := time.Second
		for at := time.Duration(0); at < window; at += step {
			_, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(at)})
			require.NoError(t, err)
		}

		bound := int(window/u.Interval()) + 1
		assert.LessOrEqual(t, len(sender.messages), bound, "step %s", step)
		assert.NotEmpty(t, sender.messages)

		stats := u.Stop(epoch.Add(window))
		assert.Equal(t, len(sender.messages), stats.Sent)
		assert.Positive(t, stats.Throttled)
	}
}

func TestUplinkMeasuresThroughput(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	u := NewUplink(sender, 25, time.Second)
	u.Start("abc", epoch)

	// 26 frames exactly 40ms apart span one second; the first opens the window
	for i := 0; i <= 25; i++ {
		_, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(time.Duration(i) * 40 * time.Millisecond)})
		require.NoError(t, err)
	}

	assert.InDelta(t, 25.0, u.CurrentFPS(), 0.01)

	// The second window runs at the same pace
	for i := 26; i <= 50; i++ {
		_, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(time.Duration(i) * 40 * time.Millisecond)})
		require.NoError(t, err)
	}
	assert.InDelta(t, 25.0, u.CurrentFPS(), 0.01)
}

func TestUplinkRateRefreshesOnThrottledOffers(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	u := NewUplink(sender, 25, time.Second)
	u.Start("abc", epoch)

	for i := 0; i <= 25; i++ {
		_, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(time.Duration(i) * 40 * time.Millisecond)})
		require.NoError(t, err)
	}
	require.InDelta(t, 25.0, u.CurrentFPS(), 0.01)

	// One send late in the next window, then only frames that arrive too early
	sent, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(1990 * time.Millisecond)})
	require.NoError(t, err)
	require.True(t, sent)

	sent, err = u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(2010 * time.Millisecond)})
	require.NoError(t, err)
	require.False(t, sent)

	assert.InDelta(t, 1/1.01, u.CurrentFPS(), 0.01)
}

func TestUplinkSendFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("broken pipe")
	sender := &recordingSender{err: boom}
	u := NewUplink(sender, 25, time.Second)
	u.Start("abc", epoch)

	sent, err := u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch})
	assert.False(t, sent)
	assert.ErrorIs(t, err, boom)

	stats := u.Stop(epoch.Add(time.Second))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Sent)
	assert.False(t, u.Active())

	sent, err = u.Offer(model.OutboundFrame{Payload: []byte("f"), At: epoch.Add(2 * time.Second)})
	assert.False(t, sent)
	assert.NoError(t, err)
}
