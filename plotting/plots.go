package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

var (
	Red  = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	Blue = color.RGBA{R: 30, G: 60, B: 200, A: 255}
)

func meshXYs(pts types.PointCloud) (xys plotter.XYs) {
	xys = make(plotter.XYs, len(pts))
	for i, p := range pts {
		xys[i].X, xys[i].Y = p.X(), p.Y()
	}
	return
}

// PlotMesh scatters the (x, y) projection of the mesh points.
func PlotMesh(pts types.PointCloud, clr color.Color, title, file string) (err error) {
	var (
		s *plotter.Scatter
	)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())
	if s, err = plotter.NewScatter(meshXYs(pts)); err != nil {
		return fmt.Errorf("mesh scatter: %w", err)
	}
	s.GlyphStyle.Color = clr
	s.GlyphStyle.Radius = vg.Points(0.5)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	if err = p.Save(12*vg.Inch, 8*vg.Inch, file); err != nil {
		return fmt.Errorf("save mesh plot: %w", err)
	}
	return
}

/*
PlotField colors each mesh point by its field value on a diverging blue to
red map and places a color bar on the right.
*/
func PlotField(pts types.PointCloud, values []float64, title, file string) (err error) {
	var (
		s *plotter.Scatter
	)
	if len(values) != len(pts) {
		return fmt.Errorf("field has %d values for %d points", len(values), len(pts))
	}
	cm := moreland.SmoothBlueRed()
	lo, hi := fieldRange(values)
	cm.SetMin(lo)
	cm.SetMax(hi)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	if s, err = plotter.NewScatter(meshXYs(pts)); err != nil {
		return fmt.Errorf("field scatter: %w", err)
	}
	s.GlyphStyle.Radius = vg.Points(1)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		gs := s.GlyphStyle
		gs.Color = colorAt(cm, values[i])
		return gs
	}
	p.Add(s)

	cb := plot.New()
	cb.HideX()
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	const (
		width   = 8 * vg.Inch
		height  = 6 * vg.Inch
		barSize = 1 * vg.Inch
	)
	img := vgimg.New(width, height)
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -barSize, 0, 0))
	cb.Draw(draw.Crop(dc, width-barSize, 0, 0, 0))
	return savePNG(img, file)
}

func fieldRange(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return
}

func colorAt(cm palette.ColorMap, v float64) color.Color {
	c, err := cm.At(v)
	if err != nil {
		return color.Gray{Y: 128}
	}
	return c
}

func savePNG(img *vgimg.Canvas, file string) (err error) {
	var (
		f *os.File
	)
	if f, err = os.Create(file); err != nil {
		return
	}
	if _, err = (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", file, err)
	}
	return f.Close()
}

// PlotSingularValues draws the normalized singular values on a log axis.
// Values that are not positive are left out.
func PlotSingularValues(normalized []float64, file string) (err error) {
	var (
		line *plotter.Line
		pts  *plotter.Scatter
		xys  plotter.XYs
	)
	for i, v := range normalized {
		if v > 0 {
			xys = append(xys, plotter.XY{X: float64(i), Y: v})
		}
	}
	if len(xys) == 0 {
		return fmt.Errorf("no positive singular values to plot")
	}
	p := plot.New()
	p.Title.Text = "Normalized singular values"
	p.X.Label.Text = "Latent dimension"
	p.Y.Label.Text = "Singular value"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())
	if line, pts, err = plotter.NewLinePoints(xys); err != nil {
		return
	}
	line.Color, pts.GlyphStyle.Color = Blue, Blue
	p.Add(line, pts)
	padLogRange(&p.Y)
	if err = p.Save(8*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save singular value plot: %w", err)
	}
	return
}

// PlotModes writes outputDir/pod_mode_<i>.png for every row of basis.
func PlotModes(pts types.PointCloud, basis utils.Matrix, outputDir string) (files []string, err error) {
	nr, _ := basis.Dims()
	for i := 0; i < nr; i++ {
		file := filepath.Join(outputDir, fmt.Sprintf("pod_mode_%d.png", i+1))
		if err = PlotField(pts, basis.Row(i), fmt.Sprintf("POD Mode %d", i+1), file); err != nil {
			return
		}
		files = append(files, file)
	}
	return
}

// Series is one named curve of an error plot.
type Series struct {
	Name   string
	Values []float64
	Color  color.Color
	Marked bool
}

// PlotErrors draws error curves against the POD rank on a log axis.
func PlotErrors(ranks []int, series []Series, title, ylabel, file string) (err error) {
	var (
		nCurves int
	)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "POD rank"
	p.Y.Label.Text = ylabel
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())
	for _, sr := range series {
		if len(sr.Values) != len(ranks) {
			return fmt.Errorf("series %s has %d values for %d ranks", sr.Name, len(sr.Values), len(ranks))
		}
		xys := make(plotter.XYs, 0, len(ranks))
		for i, r := range ranks {
			// the log axis cannot place zeros
			if sr.Values[i] > 0 {
				xys = append(xys, plotter.XY{X: float64(r), Y: sr.Values[i]})
			}
		}
		if len(xys) == 0 {
			continue
		}
		var (
			line *plotter.Line
			pts  *plotter.Scatter
		)
		if sr.Marked {
			if line, pts, err = plotter.NewLinePoints(xys); err != nil {
				return
			}
			line.Color, pts.GlyphStyle.Color = sr.Color, sr.Color
			p.Add(line, pts)
			p.Legend.Add(sr.Name, line, pts)
		} else {
			if line, err = plotter.NewLine(xys); err != nil {
				return
			}
			line.Color = sr.Color
			p.Add(line)
			p.Legend.Add(sr.Name, line)
		}
		nCurves++
	}
	if nCurves == 0 {
		return fmt.Errorf("no positive errors to plot")
	}
	padLogRange(&p.Y)
	p.Legend.Top = true
	if err = p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save error plot: %w", err)
	}
	return
}

// padLogRange widens a degenerate log axis range by a decade on each side.
func padLogRange(ax *plot.Axis) {
	if ax.Max <= ax.Min*(1+1.e-9) {
		ax.Min /= 10
		ax.Max *= 10
	}
}
