package morph

import (
	"fmt"
	"log/slog"

	"github.com/notargets/meshrom/rbf"
	"github.com/notargets/meshrom/readfiles"
	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

/*
Geometry describes the channel with a backward facing step that is morphed.
Control points are the vertices lying exactly on

	y == Bottom                             channel floor
	y == Top                                top wall, displaced by mu
	y == Step && StepXMin <= x <= StepXMax  top of the step

Comparisons are exact, so values must match the mesh coordinates bit for bit.
*/
type Geometry struct {
	Bottom, Top, Step  float64
	StepXMin, StepXMax float64
}

func DefaultGeometry() Geometry {
	return Geometry{
		Bottom:   0,
		Top:      5,
		Step:     2,
		StepXMin: 0,
		StepXMax: 4,
	}
}

const DefaultRadius = 100.

type Morpher struct {
	Geometry Geometry
	Config   rbf.Config
}

// NewMorpher returns a thin plate spline morpher with an affine tail over
// the default channel geometry.
func NewMorpher(radius float64) (mm *Morpher) {
	cfg := rbf.DefaultConfig()
	cfg.Radius = radius
	mm = &Morpher{
		Geometry: DefaultGeometry(),
		Config:   cfg,
	}
	return
}

func (mm *Morpher) SelectControlPoints(points types.PointCloud) (mask types.ControlMask) {
	g := mm.Geometry
	mask = make(types.ControlMask, len(points))
	for i, p := range points {
		x, y := p.X(), p.Y()
		mask[i] = y == g.Bottom || y == g.Top ||
			(y == g.Step && x >= g.StepXMin && x <= g.StepXMax)
	}
	return
}

// FitControlPoints fits the morphing RBF from the control points of points to
// their positions with the top wall moved by mu. displaced is ordered like
// mask.Index().
func (mm *Morpher) FitControlPoints(points types.PointCloud, mu float64) (interp *rbf.Interpolator,
	mask types.ControlMask, displaced types.PointCloud, err error) {
	mask = mm.SelectControlPoints(points)
	nc := mask.Count()
	if nc == 0 {
		return nil, nil, nil, fmt.Errorf("no control points found among %d mesh points", len(points))
	}
	original := points.Subset(mask)
	displaced = original.Copy()
	for i := range displaced {
		if displaced[i].Y() == mm.Geometry.Top {
			displaced[i][1] += mu
		}
	}
	slog.Debug("morphing mesh", "mu", mu, "points", len(points), "controlPoints", nc,
		"radius", mm.Config.Radius)

	interp = rbf.NewInterpolator(mm.Config)
	if err = interp.Fit(original.ToMatrix(), displaced.ToMatrix()); err != nil {
		return nil, nil, nil, fmt.Errorf("fitting morphing RBF: %w", err)
	}
	return
}

// Deform moves the top wall by mu along y and carries the rest of the mesh
// along with an RBF fit on the control points. points is not modified.
func (mm *Morpher) Deform(points types.PointCloud, mu float64) (R types.PointCloud, err error) {
	var (
		interp    *rbf.Interpolator
		mask      types.ControlMask
		displaced types.PointCloud
	)
	if interp, mask, displaced, err = mm.FitControlPoints(points, mu); err != nil {
		return nil, err
	}
	var moved utils.Matrix
	if moved, err = interp.Predict(points.ToMatrix()); err != nil {
		return nil, fmt.Errorf("evaluating morphing RBF: %w", err)
	}
	R = types.NewPointCloudFromMatrix(moved)
	// Control points land exactly on their prescribed positions
	for k, i := range mask.Index() {
		R[i] = displaced[k]
	}
	return
}

// MorphFile deforms points and writes them to outPath using headerPath as the
// points file template.
func (mm *Morpher) MorphFile(mu float64, points types.PointCloud, outPath, headerPath string) (R types.PointCloud, err error) {
	if R, err = mm.Deform(points, mu); err != nil {
		return nil, err
	}
	if err = readfiles.WritePointsFile(outPath, R, headerPath); err != nil {
		return nil, err
	}
	return
}
