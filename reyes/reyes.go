// Package reyes implements the bound/clip/split/dice dispatcher that
// drives every geom.Surface from its initial camera-space bound down
// to shaded micropolygon grids, mirroring the per-surface
// state-machine loop the renderer core runs surfaces through.
package reyes

import (
	"container/heap"
	"context"

	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rerr"
	"github.com/reyesvm/renderer/internal/rlog"
	"github.com/reyesvm/renderer/linalg"
)

// maxSplitDepth caps recursive splitting; beyond it a surface dices at
// maximum grid size regardless of its own diceable test, guaranteeing
// every surface eventually leaves the queue.
const maxSplitDepth = 32

// Camera bundles the transforms and clip planes the dispatcher needs
// to bound, cull, and rasterize surfaces.
type Camera struct {
	ToRaster    linalg.Mat4 // camera-to-raster
	Hither, Yon float64
	XRes, YRes  int
	GridSize    int
}

// GridHandler consumes one diced grid for shading and bucket
// compositing. A KindFatalFrame error aborts the whole Run; any other
// error is logged and the offending surface is dropped, matching
// KindFatalSurface's discard-and-continue propagation rule.
type GridHandler func(ctx context.Context, s geom.Surface, g *geom.Grid) error

// Dispatcher runs the bound/clip/split/dice loop over a frame's
// surfaces, pulling from a single priority queue ordered by raster-space
// top edge so grids leave in roughly top-to-bottom bucket order.
type Dispatcher struct {
	Camera Camera
	Log    rlog.Context
}

// New builds a Dispatcher for one frame.
func New(cam Camera, log rlog.Context) *Dispatcher {
	return &Dispatcher{Camera: cam, Log: log}
}

// Run drains surfaces (and everything they split into) through the
// dispatcher, invoking onGrid for each grid a surface dices into. It
// returns early, without error, if ctx is done by the time the queue
// is next popped — the "abandon" cancellation point, matching the
// per-frame abandon flag's discard-all-remaining-surfaces behavior.
func (d *Dispatcher) Run(ctx context.Context, surfaces []geom.Surface, onGrid GridHandler) error {
	pq := &priorityQueue{}
	heap.Init(pq)
	for _, s := range surfaces {
		d.enqueue(pq, s, 0)
	}

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			d.Log.Info().Logf("reyes: abandoning %d queued surfaces", pq.Len())
			return nil
		}
		it := heap.Pop(pq).(*item)
		if err := d.step(ctx, pq, it, onGrid); err != nil {
			return err
		}
	}
	return nil
}

// enqueue bounds s in camera space, discards it if the bound lies
// entirely outside the hither/yon range or the raster frustum, and
// otherwise pushes it keyed by its raster-space top edge.
func (d *Dispatcher) enqueue(pq *priorityQueue, s geom.Surface, depth int) {
	b := s.Bound()
	if b.Max.Z <= d.Camera.Hither || b.Min.Z >= d.Camera.Yon {
		return
	}
	rb := d.rasterBound(b)
	if rb.Max.X < 0 || rb.Min.X > float64(d.Camera.XRes) ||
		rb.Max.Y < 0 || rb.Min.Y > float64(d.Camera.YRes) {
		return
	}
	heap.Push(pq, &item{surface: s, depth: depth, key: rb.Min.Y})
}

// rasterBound projects a camera-space box's eight corners through the
// camera-to-raster matrix and returns their 2D extent.
func (d *Dispatcher) rasterBound(b geom.Bound) geom.Bound {
	out := geom.EmptyBound()
	for i := 0; i < 8; i++ {
		c := linalg.Vec3{
			X: pick(i&1 != 0, b.Min.X, b.Max.X),
			Y: pick(i&2 != 0, b.Min.Y, b.Max.Y),
			Z: pick(i&4 != 0, b.Min.Z, b.Max.Z),
		}
		out.Expand(d.Camera.ToRaster.TransformPoint(c))
	}
	return out
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return b
	}
	return a
}

// step advances one popped surface one state-machine transition:
// forced dice at the recursion cap, forced split-both-axes when the
// bound straddles the eye plane, or the surface's own diceable verdict.
func (d *Dispatcher) step(ctx context.Context, pq *priorityQueue, it *item, onGrid GridHandler) error {
	if it.depth >= maxSplitDepth {
		grid := it.surface.Dice(d.Camera.GridSize, d.Camera.GridSize)
		return d.shade(ctx, it.surface, grid, onGrid)
	}

	if it.surface.Bound().StraddlesEyePlane() {
		return d.splitBoth(pq, it)
	}

	diceable, uSize, vSize, _ := it.surface.Diceable(d.Camera.ToRaster, d.Camera.GridSize)
	if diceable {
		grid := it.surface.Dice(uSize, vSize)
		return d.shade(ctx, it.surface, grid, onGrid)
	}

	for _, c := range it.surface.Split() {
		d.enqueue(pq, c, it.depth+1)
	}
	return nil
}

// splitBoth runs Split twice in sequence, shrinking the surface along
// whichever axis each call acts on, so an eye-plane-straddling bound
// shrinks on both parametric axes before its next bound test. (Every
// geom.Surface currently splits a single fixed axis per call rather
// than taking a direction argument; see DESIGN.md.)
func (d *Dispatcher) splitBoth(pq *priorityQueue, it *item) error {
	for _, c := range it.surface.Split() {
		for _, cc := range c.Split() {
			d.enqueue(pq, cc, it.depth+2)
		}
	}
	return nil
}

func (d *Dispatcher) shade(ctx context.Context, s geom.Surface, g *geom.Grid, onGrid GridHandler) error {
	if err := onGrid(ctx, s, g); err != nil {
		if rerr.Is(err, rerr.KindFatalFrame) {
			return err
		}
		d.Log.Warning().Err(err).Logf("reyes: discarding surface after grid handler error")
	}
	return nil
}

// item is one priority-queue entry: a surface awaiting its next
// bound/split/dice transition, its split depth, and its raster-order
// priority key.
type item struct {
	surface geom.Surface
	depth   int
	key     float64
	index   int
}

type priorityQueue []*item

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].key < pq[j].key }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}

func (pq *priorityQueue) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*pq = old[:n-1]
	return it
}
