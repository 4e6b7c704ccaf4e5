package model

import "time"

type SessionState string

const (
	StateWaitingForFace   SessionState = "waiting_for_face"
	StateFaceDetected     SessionState = "face_detected"
	StateSessionStarting  SessionState = "session_starting"
	StateSessionActive    SessionState = "session_active"
	StateSessionCompleted SessionState = "session_completed"
)

// Produced once per analyzed image by the detector
type DetectionSample struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

type OutboundFrame struct {
	Payload []byte
	At      time.Time
}

// Per-frame result streamed back by the liveness service
type InboundResult struct {
	FrameNumber   int     `json:"frame_number"`
	LivenessScore float64 `json:"liveness_score"`
	Decision      string  `json:"decision"`
	BlinkDetected bool    `json:"blink_detected"`
	BlinkCount    int     `json:"blink_count"`
	CurrentFPS    float64 `json:"current_fps"`
}

type ResultArtifact struct {
	Filename string
	Bytes    []byte
}

type SessionStatus struct {
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	FrameCount int     `json:"frame_count"`
	IsActive   bool    `json:"is_active"`
	CurrentFPS float64 `json:"current_fps"`
}

// ControllerState is the snapshot exposed to the presentation layer.
// Only the session controller mutates it.
type ControllerState struct {
	State           SessionState `json:"state"`
	SessionID       string       `json:"sessionId"`
	IsRecording     bool         `json:"isRecording"`
	FrameCount      int          `json:"frameCount"`
	LivenessScore   float64      `json:"livenessScore"`
	Decision        string       `json:"decision"`
	BlinkDetected   bool         `json:"blinkDetected"`
	BlinkCount      int          `json:"blinkCount"`
	TimeLeft        int          `json:"timeLeft"`
	IsConnected     bool         `json:"isConnected"`
	Error           string       `json:"error"`
	FaceDetected    bool         `json:"faceDetected"`
	FaceConfidence  float64      `json:"faceConfidence"`
	CurrentFPS      float64      `json:"currentFps"`
	ServerFPS       float64      `json:"serverFps"`
	SavedFilePath   string       `json:"savedFilePath"`
	// Gate streak observed after the last processed sample
	ConsecutiveHits int          `json:"consecutiveHits"`
}
