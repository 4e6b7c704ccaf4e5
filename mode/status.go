package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"golang.org/x/xerrors"
)

// Status prints the server view of a session along with the outcomes
// recorded locally for it.
func Status(canxCtx context.Context, svcs ServicesFactory, sessionID string) error {
	status, err := svcs.LivenessSvc.SessionStatus(canxCtx, sessionID)
	if err != nil {
		return xerrors.Errorf("session status %s: %w", sessionID, err)
	}

	history, err := svcs.DataSvc.RetrieveSessionStats(sessionID)
	if err != nil {
		// The remote status is still worth showing
		lgr.Logger.Warn("unable to read local session history",
			slog.String("sessionID", sessionID),
			slog.Any("error", err),
		)
	}

	svcs.DisplaySvc.Status(sessionID, status, history)
	return nil
}
