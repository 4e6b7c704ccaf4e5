package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/schollz/progressbar/v3"
)

type terminalService struct {
	w       io.Writer
	seconds int

	mu   sync.Mutex
	last model.ControllerState
	seen bool
	bar  *progressbar.ProgressBar
}

// NewTerminal prints one line per meaningful state change and a countdown
// bar while recording.
func NewTerminal(cfgSvc config.IService, w io.Writer) IService {
	return &terminalService{
		w:       w,
		seconds: cfgSvc.GetRecordingParameters().Seconds,
	}
}

func (svc *terminalService) Render(state model.ControllerState) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	prev := svc.last
	first := !svc.seen
	svc.last = state
	svc.seen = true

	if state.IsRecording && (first || !prev.IsRecording) {
		svc.bar = progressbar.NewOptions(svc.seconds,
			progressbar.OptionSetDescription("recording "+state.SessionID),
			progressbar.OptionSetWriter(svc.w),
			progressbar.OptionShowCount(),
		)
	}
	if svc.bar != nil {
		_ = svc.bar.Set(svc.seconds - state.TimeLeft)
		if !state.IsRecording {
			svc.finishBar()
		}
	}

	if first || changed(prev, state) {
		svc.line(state)
	}
	if state.Error != "" && (first || state.Error != prev.Error) {
		fmt.Fprintln(svc.w, color.RedString("error: %s", state.Error))
	}
	if state.SavedFilePath != "" && (first || state.SavedFilePath != prev.SavedFilePath) {
		fmt.Fprintln(svc.w, color.GreenString("results saved to %s", state.SavedFilePath))
	}
}

func (svc *terminalService) Status(sessionID string, status model.SessionStatus, history []model.SessionStats) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	active := color.YellowString("inactive")
	if status.IsActive {
		active = color.GreenString("active")
	}
	fmt.Fprintf(svc.w, "%s %s status=%s created=%s frames=%d fps=%.1f\n",
		color.CyanString(sessionID), active, status.Status, status.CreatedAt, status.FrameCount, status.CurrentFPS)

	for _, h := range history {
		fmt.Fprintf(svc.w, "  %s frames=%d score=%.2f decision=%s blinks=%d artifact=%s\n",
			h.Outcome, h.FrameCount, h.LivenessScore, h.Decision, h.BlinkCount, h.ArtifactPath)
	}
}

func (svc *terminalService) Saved(sessionID string, path string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	fmt.Fprintln(svc.w, color.GreenString("%s results saved to %s", sessionID, path))
}

func (svc *terminalService) Close() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.finishBar()
}

func (svc *terminalService) finishBar() {
	if svc.bar == nil {
		return
	}
	_ = svc.bar.Finish()
	fmt.Fprintln(svc.w)
	svc.bar = nil
}

func (svc *terminalService) line(state model.ControllerState) {
	conn := color.RedString("disconnected")
	if state.IsConnected {
		conn = color.GreenString("connected")
	}
	fmt.Fprintf(svc.w, "%s %s session=%s frames=%d score=%.2f decision=%s blinks=%d\n",
		color.CyanString(string(state.State)), conn, state.SessionID, state.FrameCount, state.LivenessScore, state.Decision, state.BlinkCount)
}

// changed ignores the fields that move on every frame
func changed(a, b model.ControllerState) bool {
	return a.State != b.State ||
		a.IsConnected != b.IsConnected ||
		a.IsRecording != b.IsRecording ||
		a.SessionID != b.SessionID ||
		a.Decision != b.Decision ||
		a.BlinkCount != b.BlinkCount
}
