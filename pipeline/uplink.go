package pipeline

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
)

// Uplink throttles encoded frames to the target cadence and measures the
// achieved send rate. Frames arriving too early are dropped, never queued.
type Uplink struct {
	sender   Sender
	interval time.Duration
	window   time.Duration

	mu           sync.Mutex
	active       bool
	sessionID    string
	startedAt    time.Time
	lastSentAt   time.Time
	attempted    bool
	windowStart  time.Time
	sentInWindow int
	currentFPS   float64
	sent         int
	throttled    int
	failed       int
}

func NewUplink(sender Sender, targetFPS int, window time.Duration) *Uplink {
	if targetFPS <= 0 {
		targetFPS = 25
	}
	if window <= 0 {
		window = time.Second
	}
	return &Uplink{
		sender:   sender,
		interval: time.Second / time.Duration(targetFPS),
		window:   window,
	}
}

func (u *Uplink) Interval() time.Duration {
	return u.interval
}

// Start activates the uplink for sessionID and clears its counters.
func (u *Uplink) Start(sessionID string, now time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.active = true
	u.sessionID = sessionID
	u.startedAt = now
	u.lastSentAt = time.Time{}
	u.attempted = false
	u.windowStart = now
	u.sentInWindow = 0
	u.currentFPS = 0
	u.sent = 0
	u.throttled = 0
	u.failed = 0
}

// Stop deactivates the uplink and reports what it did since Start.
func (u *Uplink) Stop(now time.Time) model.UplinkStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return model.UplinkStats{SessionID: u.sessionID}
	}
	u.active = false

	return model.UplinkStats{
		SessionID: u.sessionID,
		Sent:      u.sent,
		Throttled: u.throttled,
		Failed:    u.failed,
		FPS:       u.currentFPS,
		Uptime:    int64(now.Sub(u.startedAt).Seconds()),
	}
}

func (u *Uplink) Active() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.active
}

func (u *Uplink) CurrentFPS() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.currentFPS
}

// Offer sends frame when the interval since the previous attempt has
// elapsed. A send failure drops the frame and is returned to the caller.
func (u *Uplink) Offer(frame model.OutboundFrame) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.active {
		return false, nil
	}

	if u.attempted && frame.At.Sub(u.lastSentAt) < u.interval {
		u.throttled++
		u.roll(frame.At)
		return false, nil
	}
	u.attempted = true
	u.lastSentAt = frame.At

	err := u.sender.Send(base64.StdEncoding.EncodeToString(frame.Payload))
	if err != nil {
		u.failed++
	} else {
		u.sent++
		// A send at the window boundary belongs to the window it closes
		if frame.At.After(u.windowStart) {
			u.sentInWindow++
		}
	}
	u.roll(frame.At)

	return err == nil, err
}

// roll closes the measurement window once it has elapsed at now.
func (u *Uplink) roll(now time.Time) {
	elapsed := now.Sub(u.windowStart)
	if elapsed < u.window {
		return
	}
	u.currentFPS = float64(u.sentInWindow) / elapsed.Seconds()
	u.windowStart = now
	u.sentInWindow = 0
}
