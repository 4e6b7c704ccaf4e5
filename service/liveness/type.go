package liveness

import (
	"context"

	"github.com/khaledhikmat/vs-liveness/model"
	"golang.org/x/xerrors"
)

var (
	ErrStartFailed = xerrors.New("failed to start session")
	// The results endpoint answered 400: processing has not finished
	ErrNotReady    = xerrors.New("session results not ready")
	ErrFetchFailed = xerrors.New("failed to get session results")
)

type StartResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type StopResponse struct {
	Message string `json:"message"`
}

// IService is the remote liveness service reached over HTTP.
type IService interface {
	StartSession(ctx context.Context) (string, error)
	StopSession(ctx context.Context, sessionID string, keep bool) (string, error)
	SessionStatus(ctx context.Context, sessionID string) (model.SessionStatus, error)
	FetchResults(ctx context.Context, sessionID string) (model.ResultArtifact, error)
}
