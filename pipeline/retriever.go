package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"github.com/khaledhikmat/vs-liveness/service/liveness"
	"golang.org/x/xerrors"
)

var ErrFetchFailed = xerrors.New("results retrieval failed")

// Retriever downloads the artifact of a completed session. The service
// needs a moment after completion, and answers "not ready" until done.
type Retriever struct {
	Fetcher     Fetcher
	GracePeriod time.Duration
	Backoff     time.Duration
	// Zero polls for as long as the server keeps answering "not ready"
	MaxAttempts int
	Sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetriever(fetcher Fetcher, params config.RetrieverParameters) *Retriever {
	return &Retriever{
		Fetcher:     fetcher,
		GracePeriod: params.GracePeriod,
		Backoff:     params.Backoff,
		MaxAttempts: params.MaxAttempts,
		Sleep:       sleepContext,
	}
}

func (r *Retriever) Fetch(ctx context.Context, sessionID string) (model.ResultArtifact, error) {
	if err := r.sleep(ctx, r.GracePeriod); err != nil {
		return model.ResultArtifact{}, err
	}

	for attempt := 1; ; attempt++ {
		artifact, err := r.Fetcher.FetchResults(ctx, sessionID)
		if err == nil {
			lgr.Logger.Info("results retrieved",
				slog.String("sessionID", sessionID),
				slog.Int("attempt", attempt),
				slog.Int("bytes", len(artifact.Bytes)),
			)
			return artifact, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.ResultArtifact{}, ctxErr
		}

		if !errors.Is(err, liveness.ErrNotReady) {
			return model.ResultArtifact{}, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}

		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			return model.ResultArtifact{}, fmt.Errorf("%w: not ready after %d attempts", ErrFetchFailed, attempt)
		}

		lgr.Logger.Debug("results not ready",
			slog.String("sessionID", sessionID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", r.Backoff),
		)
		if err := r.sleep(ctx, r.Backoff); err != nil {
			return model.ResultArtifact{}, err
		}
	}
}

func (r *Retriever) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return r.Sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
