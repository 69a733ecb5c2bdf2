// Package imaging normalizes uploaded images: content sniffing, transcoding of
// camera-native formats and downscaling of oversized images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrNotImage      = errors.New("imaging: payload is not an image")
	ErrTooManyPixels = errors.New("imaging: image exceeds the pixel limit")
)

// Formats every mainstream browser renders as-is.
var viewerCompatible = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type Image struct {
	Data       []byte
	MimeType   string
	Extension  string
	Width      int
	Height     int
	Transcoded bool
}

type Processor struct {
	maxSide   int
	maxPixels int64
	quality   int
}

// NewProcessor caps the longest side of the output at maxSide. Images whose
// declared width*height exceeds maxPixels are rejected before any decode;
// zero disables either limit.
func NewProcessor(maxSide, maxPixels int) *Processor {
	return &Processor{maxSide: maxSide, maxPixels: int64(maxPixels), quality: 85}
}

// Detect sniffs the content type from magic bytes.
func Detect(data []byte) (mime string, ext string) {
	m := mimetype.Detect(data)
	return m.String(), m.Extension()
}

// Process returns a viewer-compatible image no larger than maxSide on either
// axis. When decoding or re-encoding fails the original bytes are returned
// with their detected type. A non-image payload or one declaring more pixels
// than the limit is an error.
func (p *Processor) Process(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyPayload
	}
	mime, ext := Detect(data)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mime)
	}

	original := Image{Data: data, MimeType: mime, Extension: ext}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Unknown dimensions: never decode blind.
		return original, nil
	}
	original.Width, original.Height = cfg.Width, cfg.Height
	if p.tooManyPixels(cfg.Width, cfg.Height) {
		return Image{}, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	if viewerCompatible[mime] && !p.oversized(cfg.Width, cfg.Height) {
		return original, nil
	}

	out, err := p.transcode(data, mime)
	if err != nil {
		return original, nil
	}
	return out, nil
}

func (p *Processor) oversized(w, h int) bool {
	return p.maxSide > 0 && (w > p.maxSide || h > p.maxSide)
}

func (p *Processor) tooManyPixels(w, h int) bool {
	return p.maxPixels > 0 && int64(w)*int64(h) > p.maxPixels
}

func (p *Processor) transcode(data []byte, mime string) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, err
	}
	src = p.downscale(src)
	b := src.Bounds()

	var buf bytes.Buffer
	if mime == "image/png" {
		if err := png.Encode(&buf, src); err != nil {
			return Image{}, err
		}
		return Image{Data: buf.Bytes(), MimeType: "image/png", Extension: ".png", Width: b.Dx(), Height: b.Dy(), Transcoded: true}, nil
	}
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: p.quality}); err != nil {
		return Image{}, err
	}
	return Image{Data: buf.Bytes(), MimeType: "image/jpeg", Extension: ".jpg", Width: b.Dx(), Height: b.Dy(), Transcoded: true}, nil
}

func (p *Processor) downscale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if !p.oversized(w, h) {
		return src
	}
	nw, nh := p.maxSide, p.maxSide
	if w >= h {
		nh = max(1, h*p.maxSide/w)
	} else {
		nw = max(1, w*p.maxSide/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
