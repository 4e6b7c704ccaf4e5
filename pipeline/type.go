package pipeline

import (
	"context"

	"github.com/khaledhikmat/vs-liveness/model"
)

// Sender transmits one text message on the streaming connection
type Sender interface {
	Send(message string) error
}

// Fetcher performs a single results download attempt
type Fetcher interface {
	FetchResults(ctx context.Context, sessionID string) (model.ResultArtifact, error)
}

type GateDecision int

const (
	GateContinue GateDecision = iota
	GateRequestSessionStart
	GateAbortActiveSession
)

func (d GateDecision) String() string {
	switch d {
	case GateRequestSessionStart:
		return "request_session_start"
	case GateAbortActiveSession:
		return "abort_active_session"
	default:
		return "continue"
	}
}
