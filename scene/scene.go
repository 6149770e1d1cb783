// Package scene defines the JSON scene-description format cmd/render
// reads in place of a parsed RIB stream: already-typed primitive
// records, attribute state, and display requests, matching the shape
// a RIB-parsing front end would hand the dispatcher.
package scene

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Matrix is a row-major 4x4 transform, the JSON encoding of
// linalg.Mat4.Rows().
type Matrix [16]float64

// Projection selects the camera's lens model and its parameters.
type Projection struct {
	Kind string  `json:"kind"` // "perspective" or "orthographic"
	FOV  float64 `json:"fov"`  // degrees, perspective only
}

// Camera bundles everything Scene.BuildCamera needs to derive a
// reyes.Camera: the world-to-camera transform, clipping planes,
// screen window, and output resolution.
type Camera struct {
	WorldToCamera Matrix     `json:"world_to_camera"`
	Projection    Projection `json:"projection"`
	Hither        float64    `json:"hither"`
	Yon           float64    `json:"yon"`
	XRes          int        `json:"xres"`
	YRes          int        `json:"yres"`
	CropXMin      float64    `json:"crop_x_min"`
	CropXMax      float64    `json:"crop_x_max"`
	CropYMin      float64    `json:"crop_y_min"`
	CropYMax      float64    `json:"crop_y_max"`
	GridSize      int        `json:"grid_size"`
}

// Display is one requested output target (spec.md §6 Input's
// "Display" request record).
type Display struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Mode     string         `json:"mode"`
	Required bool           `json:"required"`
	Formats  []string       `json:"formats"`
	Params   map[string]any `json:"params"`
	Quantize map[string]int `json:"quantize"`
}

// ShaderRef names a compiled .slx program and its bound parameters,
// the common shape of Surface/Displacement/LightSource/Atmosphere
// bindings (spec.md §6 Input).
type ShaderRef struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

// Light is a LightSource declaration plus its Illuminate state at
// WorldEnd.
type Light struct {
	Shader      ShaderRef `json:"shader"`
	Illuminated bool      `json:"illuminated"`
}

// Attributes is the graphics-state snapshot attached to a primitive at
// the point it was declared: bound shaders and the inherited
// transform, RenderMan's Attribute/Transform stack collapsed to the
// values actually in effect (this format carries already-resolved
// state rather than the push/pop instruction stream that produced it).
type Attributes struct {
	Transform    Matrix      `json:"transform"`
	Surface      *ShaderRef  `json:"surface,omitempty"`
	Displacement *ShaderRef  `json:"displacement,omitempty"`
	Color        *[3]float64 `json:"color,omitempty"`
	Opacity      *[3]float64 `json:"opacity,omitempty"`
}

// Primitive is one already-typed geometric primitive record. Kind
// selects which of the embedded parameter blocks is populated; exactly
// one should be non-nil, matching the "each primitive constructor" line
// of spec.md §6 Input.
type Primitive struct {
	Kind       string      `json:"kind"`
	Attributes Attributes  `json:"attributes"`
	Quadric    *QuadricDef `json:"quadric,omitempty"`
	Patch      *PatchDef   `json:"patch,omitempty"`
	NURBS      *NURBSDef   `json:"nurbs,omitempty"`
	Curves     *CurvesDef  `json:"curves,omitempty"`
}

// QuadricDef carries the parameters of one of the seven standard
// RenderMan quadrics: RiSphere, RiCone, RiCylinder, RiHyperboloid,
// RiParaboloid, RiTorus, RiDisk.
type QuadricDef struct {
	Type        string  `json:"type"`
	Radius      float64 `json:"radius"`
	MinorRadius float64 `json:"minor_radius"`
	ZMin        float64 `json:"zmin"`
	ZMax        float64 `json:"zmax"`
	Height      float64 `json:"height"`
	ThetaMin    float64 `json:"thetamin"`
	ThetaMax    float64 `json:"thetamax"`
	PhiMin      float64 `json:"phimin"`
	PhiMax      float64 `json:"phimax"`
}

// PatchDef carries RiPatch ("bilinear") or RiPatch ("bicubic")
// control points, row-major.
type PatchDef struct {
	Type    string `json:"type"` // "bilinear" or "bicubic"
	Points  []Vec3 `json:"points"`
	Basis   string `json:"basis"` // "bezier" (identity conversion) only, for now
	Phantom bool   `json:"phantom"`
	Missing int    `json:"missing_corner"`
}

// NURBSDef carries an RiNuPatch surface definition.
type NURBSDef struct {
	UOrder  int       `json:"uorder"`
	VOrder  int       `json:"vorder"`
	UKnots  []float64 `json:"uknots"`
	VKnots  []float64 `json:"vknots"`
	CUVerts int       `json:"uverts"`
	CVVerts int       `json:"vverts"`
	Control []HPoint  `json:"control"`
}

// CurvesDef carries an RiCurves group.
type CurvesDef struct {
	Type     string    `json:"type"` // "linear" or "cubic"
	Lengths  []int     `json:"lengths"`
	Points   []Vec3    `json:"points"`
	Widths   []float64 `json:"widths"`
	VStep    int       `json:"vstep"`
	Periodic bool      `json:"periodic"`
	Normal   *Vec3     `json:"normal,omitempty"`
}

// Vec3 is the JSON encoding of linalg.Vec3.
type Vec3 struct{ X, Y, Z float64 }

// HPoint is the JSON encoding of geom.HPoint.
type HPoint struct{ X, Y, Z, W float64 }

// World is the WorldBegin/WorldEnd block: lights and primitives in
// declaration order.
type World struct {
	Lights     []Light     `json:"lights"`
	Primitives []Primitive `json:"primitives"`
}

// Scene is the top-level JSON document cmd/render loads: one frame's
// camera, display requests, and world content.
type Scene struct {
	Camera   Camera    `json:"camera"`
	Displays []Display `json:"displays"`
	World    World     `json:"world"`
}

// Load decodes a Scene from r.
func Load(r io.Reader) (*Scene, error) {
	var s Scene
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "scene: decoding JSON")
	}
	return &s, nil
}
