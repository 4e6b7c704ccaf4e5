package mode

import (
	"log/slog"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/data"
	"github.com/khaledhikmat/vs-liveness/service/display"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"github.com/khaledhikmat/vs-liveness/service/liveness"
	"github.com/khaledhikmat/vs-liveness/service/storage"
	"github.com/khaledhikmat/vs-liveness/service/stream"
)

// ServicesFactory is everything a mode processor may need. Processors
// only touch the services relevant to them.
type ServicesFactory struct {
	CfgSvc      config.IService
	DataSvc     data.IService
	DisplaySvc  display.IService
	LivenessSvc liveness.IService
	StreamSvc   stream.IService
	StorageSvc  storage.IService
}

func procStats(datasvc data.IService, stats interface{}) {
	var err error
	switch stats := stats.(type) {
	case model.UplinkStats:
		err = datasvc.NewUplinkStats(stats)
	case model.SessionStats:
		err = datasvc.NewSessionStats(stats)
	case model.ControllerStats:
		err = datasvc.NewControllerStats(stats)
	case model.FramerStats:
		err = datasvc.NewFramerStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
		return
	}

	if err != nil {
		lgr.Logger.Error(
			"failed to store stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
