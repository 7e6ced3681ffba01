package compressor

import (
	"context"
	"fmt"
	"strings"
)

// Format is the output encoding for compressed images.
type Format string

const (
	FormatWebP Format = "webp"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ParseFormat converts a user-supplied format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "webp":
		return FormatWebP, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported format: %q (valid: webp, jpeg, png)", s)
	}
}

// Extension returns the filename extension for the format, without a dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Lossy reports whether the quality factor is meaningful for this format.
func (f Format) Lossy() bool {
	return f == FormatWebP || f == FormatJPEG
}

// Params defines a single compression request.
type Params struct {
	Quality      float64 `json:"quality"`
	Format       Format  `json:"format"`
	ScalePercent int     `json:"scale_percent"`
}

// Validate checks that all parameters are within their allowed ranges.
func (p Params) Validate() error {
	if p.Quality < 0.1 || p.Quality > 1.0 {
		return fmt.Errorf("quality %.2f out of range [0.1, 1.0]", p.Quality)
	}
	switch p.Format {
	case FormatWebP, FormatJPEG, FormatPNG:
	default:
		return fmt.Errorf("unsupported format: %q", p.Format)
	}
	if p.ScalePercent < 10 || p.ScalePercent > 100 {
		return fmt.Errorf("scale percent %d out of range [10, 100]", p.ScalePercent)
	}
	return nil
}

// DefaultParams returns the parameters used before the user touches any control.
func DefaultParams() Params {
	return Params{
		Quality:      0.8,
		Format:       FormatWebP,
		ScalePercent: 100,
	}
}

// Result is the outcome of a compression request.
type Result struct {
	Data   []byte
	Width  int
	Height int
	Format Format
}

// DecodeError indicates the source image could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError indicates the resampled image could not be encoded.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode to %s failed: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Engine defines the interface for image compression. Implementations are
// stateless and safe for concurrent use; each call is independent.
type Engine interface {
	Compress(ctx context.Context, src []byte, params Params) (*Result, error)
}
