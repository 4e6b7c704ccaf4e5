package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/pipeline"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"github.com/khaledhikmat/vs-liveness/service/stream"
)

const (
	frameInbox   = 4
	commandInbox = 16
	asyncInbox   = 16

	stopSignal = "stop"

	errFaceLost = "face lost during recording"
)

// Controller is the liveness session state machine. All state is owned by
// the goroutine running Run; the exported methods only enqueue messages.
type Controller struct {
	ID string

	svcs        ServicesFactory
	errorStream chan interface{}
	statsStream chan interface{}

	gate      *pipeline.Gate
	uplink    *pipeline.Uplink
	retriever *pipeline.Retriever
	countdown pipeline.Countdown

	samples  chan model.DetectionSample
	frames   chan model.OutboundFrame
	commands chan command
	async    chan interface{}
	updates  chan model.ControllerState
	done     chan struct{}

	mu        sync.RWMutex
	published model.ControllerState

	// Owned by Run
	runCtx          context.Context
	cur             model.ControllerState
	gen             uint64
	sessionCtx      context.Context
	sessionCancel   context.CancelFunc
	countdownCancel context.CancelFunc
	ticks           <-chan int
	connecting      bool
	connID          uint64
	recordOnOpen    bool
	stopSent        bool
	sessionStarted  time.Time
	startTime       time.Time
	stats           model.ControllerStats
	remote          sync.WaitGroup
}

// NewController wires a controller. errorStream and statsStream may be nil.
func NewController(svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) *Controller {
	cfg := svcs.CfgSvc
	id := uuid.NewString()

	c := &Controller{
		ID:          id,
		svcs:        svcs,
		errorStream: errorStream,
		statsStream: statsStream,
		gate:        pipeline.NewGate(cfg.GetGateParameters()),
		uplink:      pipeline.NewUplink(svcs.StreamSvc, cfg.GetTargetFPS(), cfg.GetRecordingParameters().MeasurementWindow),
		retriever:   pipeline.NewRetriever(svcs.LivenessSvc, cfg.GetRetrieverParameters()),
		countdown:   pipeline.NewCountdown(cfg.GetRecordingParameters()),
		samples:     make(chan model.DetectionSample),
		frames:      make(chan model.OutboundFrame, frameInbox),
		commands:    make(chan command, commandInbox),
		async:       make(chan interface{}, asyncInbox),
		updates:     make(chan model.ControllerState, 1),
		done:        make(chan struct{}),
		stats:       model.ControllerStats{ControllerID: id},
	}
	c.cur = c.idleState()
	c.published = c.cur
	return c
}

// OnSample hands one detection result to the controller. Samples are never
// dropped, so this blocks until the controller takes it.
func (c *Controller) OnSample(sample model.DetectionSample) {
	select {
	case c.samples <- sample:
	case <-c.done:
	}
}

// SendFrame offers an encoded image for upload. It never blocks; frames that
// find the inbox full are dropped.
func (c *Controller) SendFrame(payload []byte) {
	select {
	case c.frames <- model.OutboundFrame{Payload: payload, At: time.Now()}:
	default:
	}
}

func (c *Controller) StartRecording() { c.command(cmdStartRecording) }
func (c *Controller) StopRecording()  { c.command(cmdStopRecording) }
func (c *Controller) ResetSession()   { c.command(cmdResetSession) }

// State returns the latest published snapshot.
func (c *Controller) State() model.ControllerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}

// Updates delivers snapshots as they change. Slow readers only see the most
// recent one.
func (c *Controller) Updates() <-chan model.ControllerState {
	return c.updates
}

func (c *Controller) command(cmd command) {
	select {
	case c.commands <- cmd:
	case <-c.done:
	}
}

// Run processes inputs until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.runCtx = ctx
	c.startTime = time.Now()
	defer close(c.done)

	lgr.Logger.Info("session controller started",
		slog.String("controllerID", c.ID),
	)

	events := c.svcs.StreamSvc.Events()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil

		case sample := <-c.samples:
			c.onSample(sample)

		case frame := <-c.frames:
			c.onFrame(frame)

		case cmd := <-c.commands:
			c.onCommand(cmd)

		case ev := <-events:
			c.onStreamEvent(ev)

		case msg := <-c.async:
			switch v := msg.(type) {
			case handshakeDone:
				c.onHandshake(v)
			case connectDone:
				c.onConnect(v)
			case fetchDone:
				c.onFetch(v)
			}

		case left, ok := <-c.ticks:
			if !ok {
				c.ticks = nil
				break
			}
			c.cur.TimeLeft = left
			if left == 0 {
				lgr.Logger.Info("recording time elapsed",
					slog.String("sessionID", c.cur.SessionID),
				)
				c.stopRecording(true)
			}
		}

		c.publish()
	}
}

func (c *Controller) onSample(sample model.DetectionSample) {
	c.cur.FaceDetected = sample.Detected
	c.cur.FaceConfidence = sample.Confidence

	switch c.gate.OnSample(sample, c.cur.IsRecording) {
	case pipeline.GateRequestSessionStart:
		c.onGateTrigger()
	case pipeline.GateAbortActiveSession:
		lgr.Logger.Warn("face lost during recording",
			slog.String("sessionID", c.cur.SessionID),
		)
		c.cur.Error = errFaceLost
		c.stopRecording(true)
	}
	c.cur.ConsecutiveHits = c.gate.Hits()
}

func (c *Controller) onGateTrigger() {
	switch {
	case c.cur.State == model.StateWaitingForFace:
		c.cur.State = model.StateFaceDetected
		c.recordOnOpen = true
		c.beginSession()
	case c.retainedDisconnected():
		c.recordOnOpen = true
		c.connect()
	}
}

func (c *Controller) onFrame(frame model.OutboundFrame) {
	if !c.cur.IsRecording {
		if c.retainedDisconnected() {
			lgr.Logger.Debug("frame arrived while disconnected, reconnecting",
				slog.String("sessionID", c.cur.SessionID),
			)
			c.connect()
		}
		return
	}

	if _, err := c.uplink.Offer(frame); err != nil {
		lgr.Logger.Warn("frame dropped",
			slog.String("sessionID", c.cur.SessionID),
			slog.Any("error", err),
		)
	}
	c.cur.CurrentFPS = c.uplink.CurrentFPS()
}

func (c *Controller) onCommand(cmd command) {
	lgr.Logger.Debug("controller command",
		slog.String("command", cmd.String()),
		slog.String("state", string(c.cur.State)),
	)

	switch cmd {
	case cmdStartRecording:
		switch {
		case c.cur.State == model.StateWaitingForFace:
			c.recordOnOpen = true
			c.beginSession()
		case c.retainedDisconnected():
			c.recordOnOpen = true
			c.connect()
		case c.stopSent:
			// The server is finishing this session
			lgr.Logger.Info("recording already stopped, waiting for completion",
				slog.String("sessionID", c.cur.SessionID),
			)
		case c.cur.State == model.StateSessionActive && c.cur.IsConnected && !c.cur.IsRecording:
			c.beginRecording()
		}

	case cmdStopRecording:
		c.stopRecording(true)

	case cmdResetSession:
		c.reset()
	}
}

// beginSession starts the handshake for a brand new session.
func (c *Controller) beginSession() {
	c.newSessionContext()
	c.clearSessionFields()
	c.cur.State = model.StateSessionStarting
	c.stopSent = false
	c.sessionStarted = time.Now()
	c.stats.SessionsStarted++

	lgr.Logger.Info("starting session",
		slog.String("controllerID", c.ID),
	)

	gen, ctx := c.gen, c.sessionCtx
	go func() {
		id, err := c.svcs.LivenessSvc.StartSession(ctx)
		c.post(handshakeDone{gen: gen, sessionID: id, err: err})
	}()
}

func (c *Controller) onHandshake(res handshakeDone) {
	if res.gen != c.gen {
		return
	}

	if res.err != nil {
		lgr.Logger.Error("session start failed", slog.Any("error", res.err))
		c.fail(res.err, "", "failed to start session: %v", res.err)
		c.toWaiting()
		return
	}

	lgr.Logger.Info("session created",
		slog.String("sessionID", res.sessionID),
	)
	c.cur.SessionID = res.sessionID
	c.connect()
}

// connect dials the streaming connection for the current session.
func (c *Controller) connect() {
	c.cur.State = model.StateSessionStarting
	c.connecting = true
	c.connID = 0

	gen, ctx, id := c.gen, c.sessionCtx, c.cur.SessionID
	go func() {
		err := c.svcs.StreamSvc.Connect(ctx, id)
		c.post(connectDone{gen: gen, sessionID: id, err: err})
	}()
}

func (c *Controller) onConnect(res connectDone) {
	if res.gen != c.gen || res.sessionID != c.cur.SessionID {
		return
	}
	if res.err == nil {
		// The open event finishes the transition
		return
	}

	lgr.Logger.Error("stream connect failed",
		slog.String("sessionID", res.sessionID),
		slog.Any("error", res.err),
	)
	c.connecting = false
	c.fail(res.err, res.sessionID, "failed to connect: %v", res.err)
	c.stopRemote(res.sessionID, false)
	c.toWaiting()
}

func (c *Controller) onStreamEvent(ev stream.Event) {
	if c.cur.SessionID == "" || ev.SessionID != c.cur.SessionID {
		return
	}

	if ev.Kind == stream.EventOpen {
		if !c.connecting {
			return
		}
		c.connecting = false
		c.connID = ev.ConnID
		c.cur.IsConnected = true
		c.cur.Error = ""
		c.cur.State = model.StateSessionActive
		if c.recordOnOpen {
			c.recordOnOpen = false
			c.beginRecording()
		}
		return
	}

	if ev.ConnID != c.connID {
		return
	}

	switch ev.Kind {
	case stream.EventResult:
		r := ev.Result
		// Results may arrive out of order; the count only moves forward
		if r.FrameNumber > c.cur.FrameCount {
			c.cur.FrameCount = r.FrameNumber
		}
		c.cur.LivenessScore = r.LivenessScore
		c.cur.Decision = r.Decision
		c.cur.BlinkDetected = r.BlinkDetected
		c.cur.BlinkCount = r.BlinkCount
		c.cur.ServerFPS = r.CurrentFPS

	case stream.EventCompleted:
		if c.cur.State != model.StateSessionActive {
			return
		}
		lgr.Logger.Info("session completed, retrieving results",
			slog.String("sessionID", c.cur.SessionID),
			slog.Int("frames", c.cur.FrameCount),
		)
		c.stopRecording(false)
		c.cur.State = model.StateSessionCompleted
		c.fetch()

	case stream.EventClosed, stream.EventError:
		c.connID = 0
		c.cur.IsConnected = false
		if c.cur.State != model.StateSessionActive {
			return
		}

		reason := ev.Reason
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		lgr.Logger.Warn("stream lost",
			slog.String("sessionID", c.cur.SessionID),
			slog.String("reason", reason),
		)
		c.stopRecording(false)
		c.fail(ev.Err, c.cur.SessionID, "connection lost: %s", reason)
	}
}

func (c *Controller) beginRecording() {
	now := time.Now()
	params := c.svcs.CfgSvc.GetRecordingParameters()

	c.cur.IsRecording = true
	c.cur.TimeLeft = params.Seconds
	c.cur.CurrentFPS = 0
	c.uplink.Start(c.cur.SessionID, now)

	ctx, cancel := context.WithCancel(c.sessionCtx)
	c.countdownCancel = cancel
	c.ticks = c.countdown.Run(ctx)

	lgr.Logger.Info("recording started",
		slog.String("sessionID", c.cur.SessionID),
		slog.Int("seconds", params.Seconds),
	)
}

// stopRecording ends the upload. signal sends the stop control message so
// the server finishes processing.
func (c *Controller) stopRecording(signal bool) {
	if !c.cur.IsRecording {
		return
	}
	c.cur.IsRecording = false
	c.cancelCountdown()

	stats := c.uplink.Stop(time.Now())
	c.cur.CurrentFPS = stats.FPS
	c.report(c.statsStream, stats)

	if !signal {
		return
	}
	if err := c.svcs.StreamSvc.Send(stopSignal); err != nil {
		lgr.Logger.Warn("stop signal not delivered",
			slog.String("sessionID", c.cur.SessionID),
			slog.Any("error", err),
		)
		c.report(c.errorStream, model.GenError("session_controller", err, map[string]interface{}{
			"sessionID": c.cur.SessionID,
		}, "stop signal not delivered"))
		return
	}
	c.stopSent = true
	lgr.Logger.Info("stop signal sent",
		slog.String("sessionID", c.cur.SessionID),
		slog.Int("sent", stats.Sent),
		slog.Int("throttled", stats.Throttled),
	)
}

func (c *Controller) fetch() {
	gen, ctx, id := c.gen, c.sessionCtx, c.cur.SessionID
	go func() {
		res := fetchDone{gen: gen, sessionID: id}
		res.artifact, res.err = c.retriever.Fetch(ctx, id)
		if res.err == nil {
			res.path, res.err = c.svcs.StorageSvc.Persist(res.artifact)
		}
		c.post(res)
	}()
}

func (c *Controller) onFetch(res fetchDone) {
	if res.gen != c.gen || res.sessionID != c.cur.SessionID {
		return
	}

	outcome := "completed"
	if res.err != nil {
		outcome = "failed"
		lgr.Logger.Error("results retrieval failed",
			slog.String("sessionID", res.sessionID),
			slog.Any("error", res.err),
		)
		c.fail(res.err, res.sessionID, "failed to get session results: %v", res.err)
	} else {
		c.stats.SessionsCompleted++
		c.cur.SavedFilePath = res.path
		lgr.Logger.Info("results saved",
			slog.String("sessionID", res.sessionID),
			slog.String("path", res.path),
		)
	}

	c.report(c.statsStream, c.sessionStats(outcome))

	c.svcs.StreamSvc.Close()
	c.stopRemote(res.sessionID, true)
	c.toWaiting()
}

func (c *Controller) reset() {
	lgr.Logger.Info("session reset",
		slog.String("controllerID", c.ID),
		slog.String("sessionID", c.cur.SessionID),
	)
	c.stats.Resets++
	if c.cur.SessionID != "" {
		c.report(c.statsStream, c.sessionStats("reset"))
	}

	// Invalidate in-flight work before tearing down
	c.gen++
	c.stopRecording(false)
	c.cancelSession()
	c.svcs.StreamSvc.Close()
	c.gate.Reset()
	c.recordOnOpen = false
	c.stopSent = false
	c.connecting = false
	c.connID = 0
	c.cur = c.idleState()
}

// toWaiting ends the current session but keeps its last results visible.
func (c *Controller) toWaiting() {
	c.gen++
	c.stopRecording(false)
	c.cancelSession()
	c.gate.Reset()
	c.recordOnOpen = false
	c.stopSent = false
	c.connecting = false
	c.connID = 0

	c.cur.State = model.StateWaitingForFace
	c.cur.SessionID = ""
	c.cur.IsConnected = false
	c.cur.IsRecording = false
	c.cur.ConsecutiveHits = 0
	c.report(c.statsStream, c.controllerStats())
}

func (c *Controller) shutdown() {
	lgr.Logger.Info("session controller stopping",
		slog.String("controllerID", c.ID),
	)
	c.stopRecording(false)
	c.cancelSession()
	c.svcs.StreamSvc.Close()
	c.report(c.statsStream, c.controllerStats())
	c.remote.Wait()
}

// fail records a session-ending or session-degrading condition.
func (c *Controller) fail(err error, sessionID string, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.cur.Error = msg
	if c.cur.State != model.StateSessionActive {
		c.stats.SessionsFailed++
	}
	c.report(c.errorStream, model.GenError("session_controller", err, map[string]interface{}{
		"sessionID":    sessionID,
		"controllerID": c.ID,
	}, "%s", msg))
}

// stopRemote asks the server to end sessionID. Failures are only logged.
func (c *Controller) stopRemote(sessionID string, keep bool) {
	timeout := c.svcs.CfgSvc.GetRequestTimeout()
	parent := context.WithoutCancel(c.runCtx)

	c.remote.Add(1)
	go func() {
		defer c.remote.Done()

		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		msg, err := c.svcs.LivenessSvc.StopSession(ctx, sessionID, keep)
		if err != nil {
			lgr.Logger.Warn("stop session failed",
				slog.String("sessionID", sessionID),
				slog.Bool("keep", keep),
				slog.Any("error", err),
			)
			return
		}
		lgr.Logger.Info("session stopped",
			slog.String("sessionID", sessionID),
			slog.Bool("keep", keep),
			slog.String("message", msg),
		)
	}()
}

func (c *Controller) retainedDisconnected() bool {
	return c.cur.State == model.StateSessionActive &&
		c.cur.SessionID != "" &&
		!c.cur.IsConnected &&
		!c.connecting
}

func (c *Controller) newSessionContext() {
	c.cancelSession()
	c.sessionCtx, c.sessionCancel = context.WithCancel(c.runCtx)
}

func (c *Controller) cancelSession() {
	c.cancelCountdown()
	if c.sessionCancel != nil {
		c.sessionCancel()
		c.sessionCancel = nil
	}
}

func (c *Controller) cancelCountdown() {
	if c.countdownCancel != nil {
		c.countdownCancel()
		c.countdownCancel = nil
	}
	c.ticks = nil
}

func (c *Controller) clearSessionFields() {
	idle := c.idleState()
	idle.State = c.cur.State
	idle.FaceDetected = c.cur.FaceDetected
	idle.FaceConfidence = c.cur.FaceConfidence
	idle.ConsecutiveHits = c.cur.ConsecutiveHits
	c.cur = idle
}

func (c *Controller) idleState() model.ControllerState {
	return model.ControllerState{
		State:    model.StateWaitingForFace,
		TimeLeft: c.svcs.CfgSvc.GetRecordingParameters().Seconds,
	}
}

func (c *Controller) sessionStats(outcome string) model.SessionStats {
	return model.SessionStats{
		ControllerID:  c.ID,
		SessionID:     c.cur.SessionID,
		Outcome:       outcome,
		FrameCount:    c.cur.FrameCount,
		LivenessScore: c.cur.LivenessScore,
		Decision:      c.cur.Decision,
		BlinkCount:    c.cur.BlinkCount,
		ArtifactPath:  c.cur.SavedFilePath,
		Duration:      int64(time.Since(c.sessionStarted).Seconds()),
	}
}

func (c *Controller) controllerStats() model.ControllerStats {
	s := c.stats
	s.Uptime = int64(time.Since(c.startTime).Seconds())
	return s
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.published = c.cur
	c.mu.Unlock()

	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- c.cur:
	default:
	}
}

func (c *Controller) post(msg interface{}) {
	select {
	case c.async <- msg:
	case <-c.done:
	}
}

// report forwards to an optional sink without stalling the loop.
func (c *Controller) report(sink chan interface{}, v interface{}) {
	if sink == nil {
		return
	}
	select {
	case sink <- v:
	default:
		lgr.Logger.Debug("report dropped", slog.String("type", fmt.Sprintf("%T", v)))
	}
}
