// Package imaging shrinks inline images before they are posted to the ledger.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrNotDataURL = errors.New("not a base64 image data URL")

const DefaultMaxEdge = 800

// JPEGCompressor re-encodes data URL images as JPEG, scaling the longer edge
// down to MaxEdge.
type JPEGCompressor struct {
	MaxEdge int
}

func NewJPEGCompressor(maxEdge int) *JPEGCompressor {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	return &JPEGCompressor{MaxEdge: maxEdge}
}

// Compress takes quality in (0, 1]. When the re-encoded image is not smaller
// than the input, the input is returned unchanged.
func (c *JPEGCompressor) Compress(ctx context.Context, dataURL string, quality float64) (string, error) {
	raw, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := c.scale(src)

	q := int(quality * 100)
	if q < 1 || q > 100 {
		q = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: q}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	out := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	if len(out) >= len(dataURL) {
		return dataURL, nil
	}
	return out, nil
}

func (c *JPEGCompressor) scale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	maxEdge := c.MaxEdge
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	if w <= maxEdge && h <= maxEdge {
		return src
	}
	if w >= h {
		h = max(1, h*maxEdge/w)
		w = maxEdge
	} else {
		w = max(1, w*maxEdge/h)
		h = maxEdge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:image/") {
		return nil, ErrNotDataURL
	}
	i := strings.Index(s, ";base64,")
	if i < 0 {
		return nil, ErrNotDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(s[i+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	return raw, nil
}
