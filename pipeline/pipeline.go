// Package pipeline drives one frame end to end: reyes.Dispatcher
// bounds/splits/dices every surface, shading.Run shades each grid
// against its bound programs, and the shaded samples are binned into
// the display.Manager's buckets one grid sample at a time.
package pipeline

import (
	"context"
	"math"

	"github.com/reyesvm/renderer/display"
	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/internal/rlog"
	"github.com/reyesvm/renderer/reyes"
	"github.com/reyesvm/renderer/shading"
)

// Shaders names a surface's bound shader programs, resolved by a
// Frame's ShadersFor callback. Either field may be nil.
type Shaders = shading.Shaders

// Frame bundles everything one frame's dispatch needs beyond the
// dispatcher itself: where to send shaded samples and how to resolve
// a surface to its bound shaders.
type Frame struct {
	Camera     reyes.Camera
	Manager    *display.Manager
	Log        rlog.Context
	ShadersFor func(geom.Surface) (name string, s Shaders)
}

// Run dispatches every surface through bound/split/dice/shade, binning
// each grid's samples into the frame's display buckets. It returns the
// dispatcher's own error (a KindFatalFrame condition, or cancellation,
// already handled by reyes.Dispatcher.Run's contract).
func (f *Frame) Run(ctx context.Context, surfaces []geom.Surface) error {
	d := reyes.New(f.Camera, f.Log)
	return d.Run(ctx, surfaces, f.onGrid)
}

func (f *Frame) onGrid(ctx context.Context, s geom.Surface, g *geom.Grid) error {
	name, shaders := f.ShadersFor(s)
	if err := shading.Run(name, g, shaders); err != nil {
		return err
	}
	return f.composite(ctx, g)
}

// composite bins each of a grid's shaded samples into a single-pixel
// bucket at its projected raster coordinate. A full scanline bucket
// buffer (accumulating several grids' samples per call) would better
// match a production binner's I/O pattern, but since every sample
// already carries its own exact raster position after dicing, routing
// each one through Manager.SendBucket as its own 1x1 bucket reaches
// the same composited image without that extra accumulation stage.
func (f *Frame) composite(ctx context.Context, g *geom.Grid) error {
	for i := range g.P {
		if g.Hole != nil && g.Hole[i] {
			continue
		}
		rp := f.Camera.ToRaster.TransformPoint(g.P[i])
		px, py := int(math.Floor(rp.X)), int(math.Floor(rp.Y))
		if px < 0 || py < 0 || px >= f.Camera.XRes || py >= f.Camera.YRes {
			continue
		}
		c, o := g.Cs[i], g.Os[i]
		alpha := (o.X + o.Y + o.Z) / 3
		rgba := []float32{float32(c.X), float32(c.Y), float32(c.Z), float32(alpha)}
		if err := f.Manager.SendBucket(ctx, px, py, px+1, py+1, rgba); err != nil {
			return rerr.FatalFrame("pipeline: sending bucket at (%d,%d): %v", px, py, err)
		}
	}
	return nil
}
