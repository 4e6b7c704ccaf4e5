package capture

import (
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"gocv.io/x/gocv"
)

// FrameData is one captured image. The receiver owns Mat and must close it.
type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

type Detector interface {
	Detect(img gocv.Mat) model.DetectionSample
	Close() error
}

type Encoder interface {
	Encode(img gocv.Mat, quality int) ([]byte, error)
}
