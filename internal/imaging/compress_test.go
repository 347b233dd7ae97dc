package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noisyDataURL builds a PNG that compresses poorly, so JPEG always wins.
func noisyDataURL(t *testing.T, w, h int) string {
	t.Helper()
	rnd := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(rnd.Intn(256)), G: uint8(rnd.Intn(256)), B: uint8(rnd.Intn(256)), A: 255})
		}
	}
	return encodePNG(t, img)
}

func solidDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 90, A: 255})
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeJPEG(t *testing.T, dataURL string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(dataURL, "data:image/jpeg;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestCompress_DownscalesLongEdge(t *testing.T) {
	c := NewJPEGCompressor(100)

	out, err := c.Compress(context.Background(), noisyDataURL(t, 400, 200), 0.7)
	require.NoError(t, err)

	b := decodeJPEG(t, out).Bounds()
	assert.Equal(t, 100, b.Dx())
	assert.Equal(t, 50, b.Dy())
}

func TestCompress_PortraitKeepsAspect(t *testing.T) {
	c := NewJPEGCompressor(100)

	out, err := c.Compress(context.Background(), noisyDataURL(t, 150, 300), 0.7)
	require.NoError(t, err)

	b := decodeJPEG(t, out).Bounds()
	assert.Equal(t, 50, b.Dx())
	assert.Equal(t, 100, b.Dy())
}

func TestCompress_SmallImageKeepsSize(t *testing.T) {
	in := noisyDataURL(t, 120, 90)
	out, err := NewJPEGCompressor(0).Compress(context.Background(), in, 0.7)
	require.NoError(t, err)

	assert.Less(t, len(out), len(in))
	b := decodeJPEG(t, out).Bounds()
	assert.Equal(t, 120, b.Dx())
	assert.Equal(t, 90, b.Dy())
}

func TestCompress_KeepsInputWhenJPEGIsLarger(t *testing.T) {
	in := solidDataURL(t, 4, 4)
	out, err := NewJPEGCompressor(0).Compress(context.Background(), in, 0.7)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCompress_RejectsBadInput(t *testing.T) {
	c := NewJPEGCompressor(0)
	ctx := context.Background()

	_, err := c.Compress(ctx, "https://cdn.example/a.png", 0.7)
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = c.Compress(ctx, "data:image/png;base64,%%%", 0.7)
	assert.ErrorIs(t, err, ErrNotDataURL)

	_, err = c.Compress(ctx, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("nope")), 0.7)
	assert.Error(t, err)
}
