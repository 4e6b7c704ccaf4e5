package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/pipeline"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"golang.org/x/xerrors"
)

// Results downloads the artifact of a finished session and saves it. When
// release is set the server is told to stop the session afterwards while
// keeping its data.
func Results(canxCtx context.Context, svcs ServicesFactory, sessionID string, release bool) error {
	started := time.Now()

	retriever := pipeline.NewRetriever(svcs.LivenessSvc, svcs.CfgSvc.GetRetrieverParameters())
	artifact, err := retriever.Fetch(canxCtx, sessionID)
	if err != nil {
		return xerrors.Errorf("results %s: %w", sessionID, err)
	}

	path, err := svcs.StorageSvc.Persist(artifact)
	if err != nil {
		return xerrors.Errorf("persist results %s: %w", sessionID, err)
	}

	procStats(svcs.DataSvc, model.SessionStats{
		SessionID:    sessionID,
		Outcome:      "retrieved",
		ArtifactPath: path,
		Duration:     int64(time.Since(started).Seconds()),
		Timestamp:    time.Now().Unix(),
	})

	svcs.DisplaySvc.Saved(sessionID, path)

	if release {
		msg, err := svcs.LivenessSvc.StopSession(canxCtx, sessionID, true)
		if err != nil {
			return xerrors.Errorf("stop session %s: %w", sessionID, err)
		}
		lgr.Logger.Info("session released",
			slog.String("sessionID", sessionID),
			slog.String("message", msg),
		)
	}
	return nil
}
