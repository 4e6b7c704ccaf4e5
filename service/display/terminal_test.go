package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestRenderPrintsStateChanges(t *testing.T) {
	var buf bytes.Buffer
	svc := NewTerminal(config.NewHardCoded(), &buf)

	svc.Render(model.ControllerState{State: model.StateWaitingForFace, TimeLeft: 15})
	svc.Render(model.ControllerState{State: model.StateWaitingForFace, TimeLeft: 15, FaceConfidence: 0.9})
	svc.Render(model.ControllerState{State: model.StateSessionActive, SessionID: "abc", IsConnected: true})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "waiting_for_face"))
	assert.Contains(t, out, "session_active connected session=abc")
}

func TestRenderReportsErrorsAndArtifacts(t *testing.T) {
	var buf bytes.Buffer
	svc := NewTerminal(config.NewHardCoded(), &buf)

	svc.Render(model.ControllerState{State: model.StateWaitingForFace, Error: "failed to start session"})
	svc.Render(model.ControllerState{State: model.StateWaitingForFace, Error: "failed to start session"})
	svc.Render(model.ControllerState{State: model.StateWaitingForFace, SavedFilePath: "/tmp/r.xlsx"})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "error: failed to start session"))
	assert.Contains(t, out, "results saved to /tmp/r.xlsx")
}

func TestRenderCountdownBar(t *testing.T) {
	var buf bytes.Buffer
	svc := NewTerminal(config.NewHardCoded(), &buf)

	svc.Render(model.ControllerState{State: model.StateSessionActive, SessionID: "abc", IsConnected: true, IsRecording: true, TimeLeft: 15})
	svc.Render(model.ControllerState{State: model.StateSessionActive, SessionID: "abc", IsConnected: true, IsRecording: true, TimeLeft: 5})
	svc.Render(model.ControllerState{State: model.StateSessionActive, SessionID: "abc", IsConnected: true, TimeLeft: 0})
	svc.Close()

	assert.Contains(t, buf.String(), "recording abc")
}

func TestStatusListsHistory(t *testing.T) {
	var buf bytes.Buffer
	svc := NewTerminal(config.NewHardCoded(), &buf)

	svc.Status("abc", model.SessionStatus{Status: "completed", FrameCount: 370, CurrentFPS: 24.6}, []model.SessionStats{
		{SessionID: "abc", Outcome: "completed", FrameCount: 370, Decision: "LIVE", ArtifactPath: "/tmp/r.xlsx"},
	})

	out := buf.String()
	assert.Contains(t, out, "abc inactive status=completed")
	assert.Contains(t, out, "frames=370")
	assert.Contains(t, out, "artifact=/tmp/r.xlsx")
}
