package display

import (
	"math"

	"github.com/reyesvm/renderer/linalg"
)

// Image is one display connection's accumulated output: a "real" deep
// buffer at native float precision and a composited 8-bit "display"
// buffer. TIFFWriter saves from the display buffer; the real buffer is
// not read by it.
type Image struct {
	XRes, YRes int
	Channels   int // 3 (RGB) or 4 (RGBA)

	real    []float32 // XRes*YRes*Channels, deep samples
	display []uint8   // XRes*YRes*Channels, 8-bit composited
}

// NewImage allocates a zeroed Image of the given dimensions.
func NewImage(xres, yres, channels int) *Image {
	return &Image{
		XRes: xres, YRes: yres, Channels: channels,
		real:    make([]float32, xres*yres*channels),
		display: make([]uint8, xres*yres*channels),
	}
}

// CompositeBucket blends one rendered bucket's RGBA samples over the
// image at (xmin,ymin)-(xmaxPlus1,ymaxPlus1) using associated-alpha
// premultiplied compositing, `C' = A + B·(1-αA)` — the INT_PRELERP
// rule — with 8-bit saturation for the display buffer and full
// precision retained in the real buffer.
func (img *Image) CompositeBucket(xmin, ymin, xmaxPlus1, ymaxPlus1 int, rgba []float32) {
	w := xmaxPlus1 - xmin
	h := ymaxPlus1 - ymin
	ch := img.Channels
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := xmin+x, ymin+y
			if px < 0 || px >= img.XRes || py < 0 || py >= img.YRes {
				continue
			}
			src := rgba[(y*w+x)*4 : (y*w+x)*4+4]
			dstOff := (py*img.XRes + px) * ch
			alphaA := src[3]
			for c := 0; c < ch; c++ {
				a := src[c]
				b := img.real[dstOff+c]
				composited := a + b*(1-alphaA)
				img.real[dstOff+c] = composited
				img.display[dstOff+c] = saturate8(composited)
			}
		}
	}
}

func saturate8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ReorderToRGBA promotes an arbitrary output-variable set (e.g. just
// Ci, or Ci+Oi) to the wire's fixed RGBA channel order, filling A with
// 1.0 and any other missing channel with 0.0.
func ReorderToRGBA(ci []linalg.Vec3, oi []float64) []float32 {
	n := len(ci)
	out := make([]float32, n*4)
	for i, c := range ci {
		out[i*4+0] = float32(c.X)
		out[i*4+1] = float32(c.Y)
		out[i*4+2] = float32(c.Z)
		if i < len(oi) {
			out[i*4+3] = float32(oi[i])
		} else {
			out[i*4+3] = 1
		}
	}
	return out
}

// EncodeSamples packs rgba samples into the negotiated wire format
// for one bucket rectangle, RGBA order, bytesPerSample matching the
// format.
func EncodeSamples(rgba []float32, format SampleFormat) (data []byte, bytesPerSample int) {
	switch format {
	case FormatFloat32:
		data = make([]byte, len(rgba)*4)
		for i, f := range rgba {
			putLEFloat32(data[i*4:], f)
		}
		return data, 4
	case FormatUnsigned8:
		data = make([]byte, len(rgba))
		for i, f := range rgba {
			data[i] = saturate8(f)
		}
		return data, 1
	case FormatSigned8:
		data = make([]byte, len(rgba))
		for i, f := range rgba {
			data[i] = byte(saturate8(f) / 2)
		}
		return data, 1
	case FormatUnsigned16:
		data = make([]byte, len(rgba)*2)
		for i, f := range rgba {
			byteOrder.PutUint16(data[i*2:], uint16(saturate16(f)))
		}
		return data, 2
	default:
		// FormatSigned16, FormatSigned32 and FormatUnsigned32 have no
		// encoder here: they fall back to 8-bit unsigned samples and
		// report bytesPerSample 1.
		return EncodeSamples(rgba, FormatUnsigned8)
	}
}

func saturate16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 65535
	}
	return uint16(v*65535 + 0.5)
}

func putLEFloat32(b []byte, f float32) {
	byteOrder.PutUint32(b, math.Float32bits(f))
}
