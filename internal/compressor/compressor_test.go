package compressor_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"pixpress/internal/compressor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "golang.org/x/image/webp"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 11), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func params(quality float64, format compressor.Format, scale int) compressor.Params {
	return compressor.Params{Quality: quality, Format: format, ScalePercent: scale}
}

func TestCompress_ScaleDimensions(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 120, 80)

	for _, format := range []compressor.Format{compressor.FormatWebP, compressor.FormatJPEG, compressor.FormatPNG} {
		res, err := engine.Compress(context.Background(), src, params(0.8, format, 50))
		require.NoError(t, err, "format %s", format)
		assert.Equal(t, 60, res.Width, "format %s", format)
		assert.Equal(t, 40, res.Height, "format %s", format)
		assert.NotEmpty(t, res.Data)
	}
}

func TestCompress_DimensionRounding(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 15, 7)

	// 15*0.5 = 7.5 rounds to 8, 7*0.5 = 3.5 rounds to 4.
	res, err := engine.Compress(context.Background(), src, params(0.8, compressor.FormatPNG, 50))
	require.NoError(t, err)
	assert.Equal(t, 8, res.Width)
	assert.Equal(t, 4, res.Height)
}

func TestCompress_MinimumDimensionIsOne(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 4, 4)

	res, err := engine.Compress(context.Background(), src, params(0.8, compressor.FormatPNG, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Width)
	assert.Equal(t, 1, res.Height)
}

func TestCompress_DimensionsIdempotent(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 33, 21)
	p := params(0.6, compressor.FormatJPEG, 70)

	first, err := engine.Compress(context.Background(), src, p)
	require.NoError(t, err)
	second, err := engine.Compress(context.Background(), src, p)
	require.NoError(t, err)

	assert.Equal(t, first.Width, second.Width)
	assert.Equal(t, first.Height, second.Height)
}

func TestCompress_QualityIgnoredForPNG(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 40, 30)

	low, err := engine.Compress(context.Background(), src, params(0.1, compressor.FormatPNG, 100))
	require.NoError(t, err)
	high, err := engine.Compress(context.Background(), src, params(1.0, compressor.FormatPNG, 100))
	require.NoError(t, err)

	assert.Equal(t, low.Data, high.Data)
}

func TestCompress_WebPOutputDecodes(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 64, 48)

	res, err := engine.Compress(context.Background(), src, params(0.8, compressor.FormatWebP, 50))
	require.NoError(t, err)

	img, kind, err := image.Decode(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, "webp", kind)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())
}

func TestCompress_DecodeError(t *testing.T) {
	engine := compressor.NewEngine()

	_, err := engine.Compress(context.Background(), []byte("not an image"), params(0.8, compressor.FormatWebP, 100))
	var decodeErr *compressor.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestCompress_ContextCancelled(t *testing.T) {
	engine := compressor.NewEngine()
	src := pngBytes(t, 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Compress(ctx, src, params(0.8, compressor.FormatWebP, 100))
	require.ErrorIs(t, err, context.Canceled)
}

func TestParams_Validate(t *testing.T) {
	cases := []struct {
		name    string
		p       compressor.Params
		wantErr bool
	}{
		{"valid", params(0.8, compressor.FormatWebP, 50), false},
		{"quality low", params(0.05, compressor.FormatWebP, 50), true},
		{"quality high", params(1.1, compressor.FormatWebP, 50), true},
		{"quality bounds", params(0.1, compressor.FormatPNG, 100), false},
		{"scale low", params(0.5, compressor.FormatJPEG, 5), true},
		{"scale high", params(0.5, compressor.FormatJPEG, 101), true},
		{"bad format", compressor.Params{Quality: 0.5, Format: "bmp", ScalePercent: 50}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]compressor.Format{
		"webp": compressor.FormatWebP,
		"JPEG": compressor.FormatJPEG,
		"jpg":  compressor.FormatJPEG,
		"png":  compressor.FormatPNG,
	} {
		got, err := compressor.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := compressor.ParseFormat("tiff")
	assert.Error(t, err)
}

func TestFormat_Extension(t *testing.T) {
	assert.Equal(t, "webp", compressor.FormatWebP.Extension())
	assert.Equal(t, "jpg", compressor.FormatJPEG.Extension())
	assert.Equal(t, "png", compressor.FormatPNG.Extension())

	assert.True(t, compressor.FormatWebP.Lossy())
	assert.True(t, compressor.FormatJPEG.Lossy())
	assert.False(t, compressor.FormatPNG.Lossy())
}
