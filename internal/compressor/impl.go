package compressor

import (
	"bytes"
	"context"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Register decoders for formats imaging does not handle natively.
	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// ImagingEngine is the default Engine implementation. Decoding and encoding
// are delegated to the imaging and webp codec libraries; this type only
// sequences decode, orientation fix, resample and encode.
type ImagingEngine struct{}

// NewEngine creates a new ImagingEngine instance.
func NewEngine() *ImagingEngine {
	return &ImagingEngine{}
}

// Compress decodes src, resamples it to the requested scale with Lanczos
// interpolation and re-encodes it in the requested format.
func (e *ImagingEngine) Compress(ctx context.Context, src []byte, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	// Bake the EXIF orientation in before resampling so portrait shots
	// come out upright regardless of output format.
	img = applyOrientation(img, orientationOf(src))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := targetDimension(bounds.Dx(), params.ScalePercent)
	height := targetDimension(bounds.Dy(), params.ScalePercent)
	if width != bounds.Dx() || height != bounds.Dy() {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch params.Format {
	case FormatJPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(qualityPercent(params.Quality)))
	case FormatPNG:
		// Quality is meaningless for a lossless format.
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(qualityPercent(params.Quality))})
	}
	if err != nil {
		return nil, &EncodeError{Format: params.Format, Err: err}
	}

	return &Result{
		Data:   buf.Bytes(),
		Width:  width,
		Height: height,
		Format: params.Format,
	}, nil
}

// targetDimension scales a native dimension by a percentage, floored to 1.
func targetDimension(native, scalePercent int) int {
	d := int(math.Round(float64(native) * float64(scalePercent) / 100))
	if d < 1 {
		d = 1
	}
	return d
}

// qualityPercent maps the [0.1, 1.0] quality factor onto the codec scale.
func qualityPercent(quality float64) int {
	return int(math.Round(quality * 100))
}
