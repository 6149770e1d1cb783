package display

import (
	"image"
	"image/color"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// ImageWriter saves a finished Image to path, in whatever format the
// implementation chooses. Pluggable so a caller can swap in a
// different encoder (e.g. for a test double) without touching Client
// or Manager.
type ImageWriter interface {
	Write(path string, img *Image) error
}

// TIFFWriter is the default ImageWriter, producing TIFFs with origin
// top-left from the Image's 8-bit display buffer. Output is always 8
// bits per channel (RGBA, alpha 255 when the image has no alpha
// channel), whatever sample format was negotiated.
type TIFFWriter struct{}

// Write encodes img as a TIFF to path, colliding filenames suffixed
// via NextFreeName first.
func (TIFFWriter) Write(path string, img *Image) error {
	path = NextFreeName(path)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "display: creating %s", path)
	}
	defer f.Close()
	return encodeTIFF(f, img)
}

func encodeTIFF(w io.Writer, img *Image) error {
	rgba := image.NewNRGBA(image.Rect(0, 0, img.XRes, img.YRes))
	for y := 0; y < img.YRes; y++ {
		for x := 0; x < img.XRes; x++ {
			off := (y*img.XRes + x) * img.Channels
			r, g, b, a := uint8(0), uint8(0), uint8(0), uint8(255)
			if img.Channels >= 1 {
				r = img.display[off]
			}
			if img.Channels >= 2 {
				g = img.display[off+1]
			}
			if img.Channels >= 3 {
				b = img.display[off+2]
			}
			if img.Channels >= 4 {
				a = img.display[off+3]
			}
			rgba.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}
	return tiff.Encode(w, rgba, nil)
}
