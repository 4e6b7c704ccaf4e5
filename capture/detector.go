package capture

import (
	"image"

	"github.com/khaledhikmat/vs-liveness/model"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const (
	// A face seen again near its previous position
	trackedConfidence = 0.9
	// A face seen for the first time
	freshConfidence = 0.7
	trackingOverlap = 0.3
)

type cascadeDetector struct {
	classifier gocv.CascadeClassifier
	previous   image.Rectangle
	tracked    bool
}

// NewCascadeDetector loads a Haar cascade from path.
func NewCascadeDetector(path string) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, xerrors.Errorf("load cascade %s", path)
	}
	return &cascadeDetector{classifier: classifier}, nil
}

func (d *cascadeDetector) Detect(img gocv.Mat) model.DetectionSample {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	faces := d.classifier.DetectMultiScale(gray)
	if len(faces) == 0 {
		d.tracked = false
		return model.DetectionSample{}
	}

	largest := faces[0]
	for _, f := range faces[1:] {
		if area(f) > area(largest) {
			largest = f
		}
	}

	confidence := freshConfidence
	if d.tracked && overlap(d.previous, largest) >= trackingOverlap {
		confidence = trackedConfidence
	}
	d.previous = largest
	d.tracked = true

	return model.DetectionSample{Detected: true, Confidence: confidence}
}

func (d *cascadeDetector) Close() error {
	return d.classifier.Close()
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// overlap is intersection over union
func overlap(a, b image.Rectangle) float64 {
	inter := area(a.Intersect(b))
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

type syntheticDetector struct {
	sample model.DetectionSample
}

// NewSyntheticDetector reports the same sample for every image. It pairs
// with the random framer for runs without a camera.
func NewSyntheticDetector(sample model.DetectionSample) Detector {
	return syntheticDetector{sample: sample}
}

func (d syntheticDetector) Detect(gocv.Mat) model.DetectionSample { return d.sample }
func (d syntheticDetector) Close() error                          { return nil }
