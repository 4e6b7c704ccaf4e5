package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/lgr"
	"gocv.io/x/gocv"
)

// RandomDevice selects the synthetic framer, handy without a camera.
const RandomDevice = "random"

// Framer starts capturing from the configured camera device and returns the
// frame channel. The channel is closed when capture ends.
func Framer(canxCtx context.Context, cfgSvc config.IService, errorStream chan interface{}, statsStream chan interface{}) chan FrameData {
	out := make(chan FrameData, 1)
	device := cfgSvc.GetCameraDevice()

	if device == RandomDevice {
		go randomFramer(canxCtx, cfgSvc, statsStream, out)
		return out
	}

	go cameraFramer(canxCtx, cfgSvc, device, errorStream, statsStream, out)
	return out
}

func cameraFramer(canxCtx context.Context, _ config.IService, device string, errorStream chan interface{}, statsStream chan interface{}, out chan FrameData) {
	defer close(out)

	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		errorStream <- model.GenError("camera_framer",
			err,
			map[string]interface{}{"device": device},
			"error opening camera device")
		return
	}
	defer webcam.Close()

	stats := model.FramerStats{Name: "cameraFramer", Device: device}
	startTime := time.Now()
	defer func() {
		reportFramerStats(statsStream, stats, startTime)
	}()

	lgr.Logger.Info("camera framer started", slog.String("device", device))

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("camera framer context cancelled")
			return

		default:
			img := gocv.NewMat()
			if ok := webcam.Read(&img); !ok || img.Empty() {
				stats.Errors++
				img.Close()
				continue
			}
			stats.Frames++

			if !offer(out, img) {
				stats.Dropped++
				img.Close()
			}
		}
	}
}

func randomFramer(canxCtx context.Context, cfgSvc config.IService, statsStream chan interface{}, out chan FrameData) {
	defer close(out)

	stats := model.FramerStats{Name: "randomFramer", Device: RandomDevice}
	startTime := time.Now()
	defer func() {
		reportFramerStats(statsStream, stats, startTime)
	}()

	ticker := time.NewTicker(time.Second / time.Duration(max(cfgSvc.GetTargetFPS(), 1)))
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("random framer context cancelled")
			return

		case <-ticker.C:
			// 480x640 BGR
			img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
			stats.Frames++

			if !offer(out, img) {
				stats.Dropped++
				img.Close()
			}
		}
	}
}

// offer hands img over without blocking the capture loop. The consumer
// always gets the most recent frame.
func offer(out chan FrameData, img gocv.Mat) bool {
	select {
	case out <- FrameData{Mat: img, Timestamp: time.Now()}:
		return true
	default:
		return false
	}
}

func reportFramerStats(statsStream chan interface{}, stats model.FramerStats, startTime time.Time) {
	stats.Uptime = int64(time.Since(startTime).Seconds())
	if stats.Uptime > 0 {
		stats.FPS = int(float64(stats.Frames) / float64(stats.Uptime))
	}

	select {
	case statsStream <- stats:
	default:
	}
}
