package liveness

import (
	"context"
	"sync"

	"github.com/khaledhikmat/vs-liveness/model"
)

// StopCall records one StopSession invocation on a Fake.
type StopCall struct {
	SessionID string
	Keep      bool
}

// Fake is an in-memory IService. Fetch responses are consumed in order and
// the last one repeats once the script runs out.
type Fake struct {
	SessionID string
	StartErr  error
	Status    model.SessionStatus
	Fetches   []FakeFetch

	mu     sync.Mutex
	starts int
	stops  []StopCall
	polls  int
}

type FakeFetch struct {
	Artifact model.ResultArtifact
	Err      error
}

func NewFake() *Fake {
	return &Fake{
		SessionID: "fake-session",
		Status:    model.SessionStatus{Status: "created"},
		Fetches: []FakeFetch{
			{Artifact: model.ResultArtifact{Filename: "LivenessResults.xlsx", Bytes: []byte("results")}},
		},
	}
}

func (f *Fake) StartSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.StartErr != nil {
		return "", f.StartErr
	}
	return f.SessionID, nil
}

func (f *Fake) StopSession(_ context.Context, sessionID string, keep bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, StopCall{SessionID: sessionID, Keep: keep})
	return "Session stopped", nil
}

func (f *Fake) SessionStatus(_ context.Context, _ string) (model.SessionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Status, nil
}

func (f *Fake) FetchResults(ctx context.Context, _ string) (model.ResultArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return model.ResultArtifact{}, err
	}
	if len(f.Fetches) == 0 {
		return model.ResultArtifact{}, ErrNotReady
	}
	idx := f.polls
	if idx >= len(f.Fetches) {
		idx = len(f.Fetches) - 1
	}
	f.polls++
	next := f.Fetches[idx]
	return next.Artifact, next.Err
}

func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *Fake) Stops() []StopCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StopCall(nil), f.stops...)
}

func (f *Fake) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}
