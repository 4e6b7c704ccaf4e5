package lgr

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerWritesMessageAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: replaceAttr}))

	logger.With(slog.String("controller", "c-1")).Info("session started", slog.String("sessionID", "abc"))

	out := buf.String()
	assert.Contains(t, out, "session started")
	assert.Contains(t, out, `"sessionID":"abc"`)
	assert.Contains(t, out, `"controller":"c-1"`)
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestReplaceAttrExpandsErrors(t *testing.T) {
	t.Parallel()

	attr := replaceAttr(nil, slog.Any("error", errors.New("boom")))
	require.Equal(t, slog.KindGroup, attr.Value.Kind())

	group := attr.Value.Group()
	require.NotEmpty(t, group)
	assert.Equal(t, "msg", group[0].Key)
	assert.Equal(t, "boom", group[0].Value.String())
}

func TestStackCapturesTrace(t *testing.T) {
	t.Parallel()

	err := Stack(errors.New("dial failed"))
	require.Error(t, err)
	assert.NotEmpty(t, marshalStack(err))
	assert.Nil(t, Stack(nil))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
