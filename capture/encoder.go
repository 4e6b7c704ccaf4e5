package capture

import (
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

type jpegEncoder struct{}

func NewJpegEncoder() Encoder {
	return jpegEncoder{}
}

func (jpegEncoder) Encode(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, xerrors.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}
