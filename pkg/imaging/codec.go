// Package imaging measures uploaded images and re-encodes oversized ones.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Dimensions used when an upload cannot be measured.
const (
	DefaultWidth  = 1080
	DefaultHeight = 1350
)

const (
	defaultMaxDimension = 2400
	defaultQuality      = 85
)

var (
	ErrEmpty   = errors.New("image is empty")
	ErrCorrupt = errors.New("image is corrupt")
)

// Image is the processed upload.
type Image struct {
	Width       int
	Height      int
	Data        []byte
	ContentType string
	// Measured is false when the default dimensions were used.
	Measured bool
}

// Codec processes uploads. The zero value is ready to use.
type Codec struct {
	// MaxDimension bounds the longer side; larger images are downsized.
	MaxDimension int
	// Quality is the JPEG quality used when re-encoding.
	Quality int
}

func (c Codec) maxDimension() int {
	if c.MaxDimension > 0 {
		return c.MaxDimension
	}
	return defaultMaxDimension
}

func (c Codec) quality() int {
	if c.Quality > 0 {
		return c.Quality
	}
	return defaultQuality
}

// Process measures data and downsizes it when needed. Input with a known
// image signature that fails to decode is ErrCorrupt; input in a format the
// codec cannot read is passed through with the default dimensions.
func (c Codec) Process(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmpty
	}
	sniffed := http.DetectContentType(data)
	known := isKnownImage(sniffed)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if known {
			return Image{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return Image{
			Width:       DefaultWidth,
			Height:      DefaultHeight,
			Data:        data,
			ContentType: sniffed,
		}, nil
	}

	out := Image{Width: cfg.Width, Height: cfg.Height, Data: data, ContentType: sniffed, Measured: true}
	maxDim := c.maxDimension()
	// GIFs may be animated; re-encoding would keep only the first frame.
	if format == "gif" || (cfg.Width <= maxDim && cfg.Height <= maxDim && format != "webp") {
		return out, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	resized := resizeImage(src, maxDim)
	b := resized.Bounds()
	out.Width, out.Height = b.Dx(), b.Dy()

	buf := &bytes.Buffer{}
	if format == "png" {
		if err := png.Encode(buf, resized); err != nil {
			return Image{}, fmt.Errorf("encode png: %w", err)
		}
		out.ContentType = "image/png"
	} else {
		if err := jpeg.Encode(buf, flatten(resized), &jpeg.Options{Quality: c.quality()}); err != nil {
			return Image{}, fmt.Errorf("encode jpeg: %w", err)
		}
		out.ContentType = "image/jpeg"
	}
	out.Data = buf.Bytes()
	return out, nil
}

func isKnownImage(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// flatten composes img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	imagedraw.Draw(dst, b, &image.Uniform{C: color.White}, b.Min, imagedraw.Src)
	imagedraw.Draw(dst, b, img, b.Min, imagedraw.Over)
	return dst
}
