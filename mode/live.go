package mode

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/khaledhikmat/vs-liveness/capture"
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"github.com/khaledhikmat/vs-liveness/session"
)

const streamsBuffer = 64

// Live runs the camera loop: every frame goes through the detector into the
// session controller, and while recording it is also encoded and uploaded.
// Operator commands (start, stop, reset) are read from the cmds reader.
func Live(canxCtx context.Context, svcs ServicesFactory, cmds io.Reader) error {
	cfg := svcs.CfgSvc

	// Create an error stream
	errorStream := make(chan interface{}, streamsBuffer)

	// Create a stats stream
	statsStream := make(chan interface{}, streamsBuffer)

	detector, err := newDetector(svcs)
	if err != nil {
		return err
	}
	defer detector.Close()
	encoder := capture.NewJpegEncoder()

	ctrl := session.NewController(session.ServicesFactory{
		CfgSvc:      cfg,
		LivenessSvc: svcs.LivenessSvc,
		StreamSvc:   svcs.StreamSvc,
		StorageSvc:  svcs.StorageSvc,
	}, errorStream, statsStream)

	ctrlDone := make(chan error, 1)
	go func() {
		ctrlDone <- ctrl.Run(canxCtx)
	}()

	if cmds != nil {
		go readCommands(canxCtx, cmds, ctrl)
	}

	frames := capture.Framer(canxCtx, cfg, errorStream, statsStream)

	lgr.Logger.Info("live mode started",
		slog.String("controllerID", ctrl.ID),
		slog.String("device", cfg.GetCameraDevice()),
	)

	// Wait for cancellation, frames, updates, stats or errors
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"live mode context cancelled",
			)
			goto resume

		case frame, ok := <-frames:
			if !ok {
				lgr.Logger.Info(
					"live mode framer exited",
				)
				goto resume
			}
			processFrame(svcs, ctrl, detector, encoder, frame, errorStream)

		case state := <-ctrl.Updates():
			svcs.DisplaySvc.Render(state)

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for the controller and the framer to exit
	// This is needed because they may need to report stats and errors as they are exiting
resume:
	lgr.Logger.Info(
		"live mode is waiting for all go routines to exit",
	)

	timer := time.NewTimer(time.Duration(cfg.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"live mode shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(cfg.GetModeMaxShutdownTime())*time.Second),
			)
			svcs.DisplaySvc.Close()
			return nil

		case err := <-ctrlDone:
			if err != nil {
				lgr.Logger.Error("session controller exited", slog.Any("error", err))
			}
			ctrlDone = nil

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			frame.Mat.Close()

		case state := <-ctrl.Updates():
			svcs.DisplaySvc.Render(state)

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}

func newDetector(svcs ServicesFactory) (capture.Detector, error) {
	if svcs.CfgSvc.GetCameraDevice() == capture.RandomDevice {
		return capture.NewSyntheticDetector(model.DetectionSample{Detected: true, Confidence: 0.9}), nil
	}
	return capture.NewCascadeDetector(svcs.CfgSvc.GetCascadePath())
}

// processFrame owns frame.Mat and always releases it
func processFrame(svcs ServicesFactory, ctrl *session.Controller, detector capture.Detector, encoder capture.Encoder, frame capture.FrameData, errorStream chan interface{}) {
	defer frame.Mat.Close()

	ctrl.OnSample(detector.Detect(frame.Mat))

	if !ctrl.State().IsRecording {
		return
	}

	payload, err := encoder.Encode(frame.Mat, svcs.CfgSvc.GetJpegQuality())
	if err != nil {
		select {
		case errorStream <- model.GenError("live_mode",
			err,
			map[string]interface{}{},
			"error encoding frame"):
		default:
		}
		return
	}
	ctrl.SendFrame(payload)
}

func readCommands(canxCtx context.Context, r io.Reader, ctrl *session.Controller) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if canxCtx.Err() != nil {
			return
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "s", "start":
			ctrl.StartRecording()
		case "x", "stop":
			ctrl.StopRecording()
		case "r", "reset":
			ctrl.ResetSession()
		case "":
		default:
			lgr.Logger.Warn("unknown command", slog.String("command", scanner.Text()))
		}
	}
}
