package plotting

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

func grid() (pc types.PointCloud) {
	for _, y := range utils.Linspace(0, 5, 6) {
		for _, x := range utils.Linspace(0, 22, 12) {
			pc = append(pc, types.Point{x, y, 0})
		}
	}
	return
}

func assertNonEmptyFile(t *testing.T, file string) {
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotMeshAndField(t *testing.T) {
	dir := t.TempDir()
	pc := grid()
	mesh := filepath.Join(dir, "mesh_0.5.png")
	require.NoError(t, PlotMesh(pc, Red, "Deformed Mesh", mesh))
	assertNonEmptyFile(t, mesh)

	vals := make([]float64, pc.Len())
	for i, p := range pc {
		vals[i] = math.Sin(p.X()) * p.Y()
	}
	field := filepath.Join(dir, "predicted_velocity_rank1.png")
	require.NoError(t, PlotField(pc, vals, "Predicted Velocity Magnitude", field))
	assertNonEmptyFile(t, field)
	{ // Constant and NaN fields still plot
		flat := filepath.Join(dir, "flat.png")
		vals := make([]float64, pc.Len())
		vals[3] = math.NaN()
		require.NoError(t, PlotField(pc, vals, "flat", flat))
		assertNonEmptyFile(t, flat)
	}
	assert.Error(t, PlotField(pc, vals[:3], "short", filepath.Join(dir, "short.png")))
	assert.Error(t, PlotMesh(pc, Blue, "nowhere", filepath.Join(dir, "missing", "mesh.png")))
}

func TestPlotSingularValuesAndModes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "singular_values.png")
	require.NoError(t, PlotSingularValues([]float64{1, 0.3, 0.01, 1.e-5, 0}, file))
	assertNonEmptyFile(t, file)
	require.NoError(t, PlotSingularValues([]float64{1}, filepath.Join(dir, "one.png")))
	assert.Error(t, PlotSingularValues([]float64{0}, filepath.Join(dir, "zero.png")))

	pc := grid()
	basis := utils.NewMatrix(2, pc.Len())
	for j, p := range pc {
		basis.Set(0, j, p.Y()/5)
		basis.Set(1, j, math.Cos(p.X()/4))
	}
	files, err := PlotModes(pc, basis, dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "pod_mode_1.png"), filepath.Join(dir, "pod_mode_2.png")}, files)
	for _, f := range files {
		assertNonEmptyFile(t, f)
	}
}

func TestPlotErrors(t *testing.T) {
	dir := t.TempDir()
	ranks := []int{1, 2, 3, 4}
	file := filepath.Join(dir, "relative_error.png")
	require.NoError(t, PlotErrors(ranks, []Series{
		{Name: "POD error", Values: []float64{0.2, 0.05, 0.01, 0.004}, Color: Red, Marked: true},
		{Name: "Morphed mesh error", Values: []float64{0.03, 0.03, 0.03, 0.03}, Color: Blue},
	}, "Relative error of POD-RBF and morphed mesh", "Relative error", file))
	assertNonEmptyFile(t, file)
	assert.Error(t, PlotErrors(ranks, []Series{{Name: "short", Values: []float64{1}}}, "", "", file))
	assert.Error(t, PlotErrors(ranks, []Series{{Name: "zeros", Values: make([]float64, 4)}}, "", "", file))
}
