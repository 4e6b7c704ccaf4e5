package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

type UplinkStats struct {
	SessionID string  `json:"sessionId"`
	Sent      int     `json:"sent"`
	Throttled int     `json:"throttled"`
	Failed    int     `json:"failed"`
	FPS       float64 `json:"fps"`
	Uptime    int64   `json:"uptime"`
	Timestamp int64   `json:"timestamp"`
}

type SessionStats struct {
	ControllerID  string  `json:"controllerId"`
	SessionID     string  `json:"sessionId"`
	Outcome       string  `json:"outcome"`
	FrameCount    int     `json:"frameCount"`
	LivenessScore float64 `json:"livenessScore"`
	Decision      string  `json:"decision"`
	BlinkCount    int     `json:"blinkCount"`
	ArtifactPath  string  `json:"artifactPath"`
	Duration      int64   `json:"duration"`
	Timestamp     int64   `json:"timestamp"`
}

type ControllerStats struct {
	ControllerID      string `json:"controllerId"`
	SessionsStarted   int64  `json:"sessionsStarted"`
	SessionsCompleted int64  `json:"sessionsCompleted"`
	SessionsFailed    int64  `json:"sessionsFailed"`
	Resets            int64  `json:"resets"`
	Uptime            int64  `json:"uptime"`
	Timestamp         int64  `json:"timestamp"`
}

type FramerStats struct {
	Name      string `json:"name"`
	Device    string `json:"device"`
	Frames    int    `json:"frames"`
	Dropped   int    `json:"dropped"`
	Errors    int    `json:"errors"`
	Uptime    int64  `json:"uptime"`
	FPS       int    `json:"fps"`
	Timestamp int64  `json:"timestamp"`
}
