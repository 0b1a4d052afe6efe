package session

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePhoto(t *testing.T) {
	p := DecodePhoto("a.png", pngBytes(t, 64, 48), 0)
	require.NoError(t, p.Err)
	assert.True(t, p.OK())
	assert.Equal(t, "png", p.Format)
	assert.Equal(t, 64, p.Width)
	assert.Equal(t, 48, p.Height)
}

func TestDecodePhotoDownscales(t *testing.T) {
	landscape := DecodePhoto("wide.png", pngBytes(t, 200, 100), 50)
	require.True(t, landscape.OK())
	assert.Equal(t, 50, landscape.Width)
	assert.Equal(t, 25, landscape.Height)

	portrait := DecodePhoto("tall.png", pngBytes(t, 30, 120), 60)
	require.True(t, portrait.OK())
	assert.Equal(t, 15, portrait.Width)
	assert.Equal(t, 60, portrait.Height)

	small := DecodePhoto("small.png", pngBytes(t, 20, 10), 50)
	assert.Equal(t, 20, small.Width)
}

func TestDecodePhotoFailures(t *testing.T) {
	empty := DecodePhoto("empty.jpg", nil, 0)
	assert.False(t, empty.OK())
	assert.Error(t, empty.Err)

	garbage := DecodePhoto("garbage.jpg", []byte("not an image"), 0)
	assert.False(t, garbage.OK())
	assert.ErrorContains(t, garbage.Err, "garbage.jpg")

	_, err := garbage.Thumbnail(32)
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	p := DecodePhoto("a.png", pngBytes(t, 100, 50), 0)
	thumb, err := p.Thumbnail(40)
	require.NoError(t, err)
	assert.Equal(t, 40, thumb.Bounds().Dx())
	assert.Equal(t, 20, thumb.Bounds().Dy())
}
