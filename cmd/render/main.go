// Command render loads a JSON scene description, dispatches it through
// the REYES pipeline, and writes one TIFF per requested display.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reyesvm/renderer/display"
	"github.com/reyesvm/renderer/geom"
	"github.com/reyesvm/renderer/internal/rlog"
	"github.com/reyesvm/renderer/pipeline"
	"github.com/reyesvm/renderer/reyes"
	"github.com/reyesvm/renderer/scene"
	"github.com/reyesvm/renderer/svm"
)

var (
	shaderDir = flag.String("shaderdir", ".", "directory .slx shader programs are loaded from")
	outDir    = flag.String("outdir", ".", "directory TIFF output files are written to")
	port      = flag.Int("port", 0, "display-driver listen port (0 picks a free port)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] scene.json\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	log := rlog.New(os.Stderr)
	if err := run(log, flag.Arg(0)); err != nil {
		log.Fatal().Err(err).Log("render: frame failed")
		os.Exit(1)
	}
}

func run(log rlog.Context, scenePath string) error {
	ctx := context.Background()

	f, err := os.Open(scenePath)
	if err != nil {
		return err
	}
	sc, err := scene.Load(f)
	f.Close()
	if err != nil {
		return err
	}

	instances, err := sc.Instances()
	if err != nil {
		return err
	}
	cam := sc.BuildCamera()
	displayReqs, err := sc.BuildDisplays()
	if err != nil {
		return err
	}

	mgr, err := display.Listen(*port, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	driverErrs, err := negotiate(ctx, mgr, displayReqs, cam)
	if err != nil {
		return err
	}

	shaders := newShaderBinder(*shaderDir)
	surfaces := make([]geom.Surface, len(instances))
	attrsByGeometry := map[geom.Surface]scene.Attributes{}
	for i, inst := range instances {
		surfaces[i] = inst.Geometry
		attrsByGeometry[inst.Geometry] = inst.Attributes
	}

	frame := &pipeline.Frame{
		Camera:  cam,
		Manager: mgr,
		Log:     log,
		ShadersFor: func(g geom.Surface) (string, pipeline.Shaders) {
			attrs := attrsByGeometry[g]
			surf, err := shaders.resolve(attrs.Surface)
			if err != nil {
				log.Warning().Err(err).Log("render: loading surface shader")
			}
			disp, err := shaders.resolve(attrs.Displacement)
			if err != nil {
				log.Warning().Err(err).Log("render: loading displacement shader")
			}
			name := "unnamed"
			if attrs.Surface != nil {
				name = attrs.Surface.Name
			}
			return name, pipeline.Shaders{Surface: surf, Displacement: disp}
		},
	}

	runErr := frame.Run(ctx, surfaces)
	if runErr != nil {
		mgr.AbandonAll()
		return runErr
	}
	if err := mgr.CloseAll(ctx); err != nil {
		return err
	}
	// The loopback drivers only return once they've received Close and
	// sent CloseAcknowledge, which CloseAll just triggered, so draining
	// them here can't block.
	for _, errc := range driverErrs {
		if err := <-errc; err != nil {
			return err
		}
	}
	return writeOutputs(mgr, displayReqs, *outDir)
}

// negotiate pairs one loopback driver per requested display with one
// Manager.Accept call (one at a time, since Accept takes whichever
// connection arrives next on the listener and only one dial is ever in
// flight), then runs the shared handshake and registers each display's
// accumulation image. The drivers keep running past this call, each
// blocked reading the next wire message; their completion channels are
// returned for the caller to drain after the frame's buckets are sent
// and CloseAll has run.
func negotiate(ctx context.Context, mgr *display.Manager, reqs []display.Request, cam reyes.Camera) ([]chan error, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", mgr.Port())
	driverErrs := make([]chan error, 0, len(reqs))
	for _, req := range reqs {
		errc := make(chan error, 1)
		go func() { errc <- display.RunLoopbackDriver(addr) }()
		if _, err := mgr.Accept(req); err != nil {
			return nil, err
		}
		driverErrs = append(driverErrs, errc)
	}

	byName := map[string]display.Request{}
	for _, req := range reqs {
		byName[req.Name] = req
	}
	open := display.Open{
		XRes: int32(cam.XRes), YRes: int32(cam.YRes), Channels: 4,
		CropXMax: int32(cam.XRes), CropYMax: int32(cam.YRes),
	}
	if err := mgr.NegotiateAll(ctx, byName, "frame.tif", [16]float32{}, [16]float32{}, open); err != nil {
		return nil, err
	}
	for _, req := range reqs {
		mgr.RegisterImage(req.Name, cam.XRes, cam.YRes, 4)
	}
	return driverErrs, nil
}

func writeOutputs(mgr *display.Manager, reqs []display.Request, dir string) error {
	w := display.TIFFWriter{}
	for _, req := range reqs {
		img := mgr.Image(req.Name)
		if img == nil {
			continue
		}
		if err := w.Write(filepath.Join(dir, req.Name+".tif"), img); err != nil {
			return err
		}
	}
	return nil
}

// shaderBinder loads and caches compiled shader programs by name,
// resolving a scene.ShaderRef to the *svm.Program its Surface/
// Displacement attribute slots carry.
type shaderBinder struct {
	dir   string
	cache map[string]*svm.Program
}

func newShaderBinder(dir string) *shaderBinder {
	return &shaderBinder{dir: dir, cache: map[string]*svm.Program{}}
}

// resolve returns nil, nil for a nil ref (no shader bound). ref.Params
// is accepted by the scene format but not yet applied to the loaded
// program's locals; every instance referencing the same shader name
// shares that program's own init: defaults.
func (b *shaderBinder) resolve(ref *scene.ShaderRef) (*svm.Program, error) {
	if ref == nil {
		return nil, nil
	}
	if p, ok := b.cache[ref.Name]; ok {
		return p, nil
	}
	f, err := os.Open(filepath.Join(b.dir, ref.Name+".slx"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := svm.Load(f)
	if err != nil {
		return nil, err
	}
	b.cache[ref.Name] = p
	return p, nil
}
