package dataset

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/meshrom/morph"
	"github.com/notargets/meshrom/readfiles"
	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

func channelPoints() (pc types.PointCloud) {
	for _, z := range []float64{-0.5, 0.5} {
		for _, y := range utils.Linspace(0, 5, 6) {
			for _, x := range utils.Linspace(0, 10, 11) {
				pc = append(pc, types.Point{x, y, z})
			}
		}
	}
	return
}

func pointsText(pc types.PointCloud) string {
	var sb strings.Builder
	sb.WriteString("FoamFile\n{\n    class vectorField;\n    object points;\n}\n\n")
	fmt.Fprintf(&sb, "%d\n(\n", len(pc))
	for _, p := range pc {
		fmt.Fprintf(&sb, "(%g %g %g)\n", p[0], p[1], p[2])
	}
	sb.WriteString(")\n\n// end\n")
	return sb.String()
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSampleParameters(t *testing.T) {
	mus, err := SampleParameters(rand.New(rand.NewSource(7)), 10)
	require.NoError(t, err)
	require.Len(t, mus, 12)
	assert.Equal(t, []float64{-1, 1}, mus[10:])
	for _, mu := range mus {
		assert.GreaterOrEqual(t, mu, -1.)
		assert.LessOrEqual(t, mu, 1.)
	}
	// Seeded generators reproduce the draw
	again, err := SampleParameters(rand.New(rand.NewSource(7)), 10)
	require.NoError(t, err)
	assert.Equal(t, mus, again)
	ends, err := SampleParameters(rand.New(rand.NewSource(1)), 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 1}, ends)
	// A negative count is an error, not an allocation failure
	mus, err = SampleParameters(rand.New(rand.NewSource(1)), -3)
	assert.Error(t, err)
	assert.Nil(t, mus)
}

func TestSetupSimulations(t *testing.T) {
	var (
		root   = t.TempDir()
		layout = Layout{
			ReferenceDir:  filepath.Join(root, "reference_simulation"),
			SimulationDir: filepath.Join(root, "openfoam_simulations"),
			ImageDir:      filepath.Join(root, "openfoam_simulations", "img"),
		}
		pc     = channelPoints()
		header = filepath.Join(layout.ReferenceDir, PointsPath)
	)
	writeFile(t, header, pointsText(pc))
	writeFile(t, filepath.Join(layout.ReferenceDir, "system", "controlDict"), "application simpleFoam;\n")

	var hooked []float64
	hook := func(mu float64, deformed types.PointCloud) error {
		hooked = append(hooked, mu)
		assert.Equal(t, pc.Len(), deformed.Len())
		return nil
	}
	mus := []float64{0.25, -1, 1}
	dirs, err := SetupSimulations(layout, morph.NewMorpher(morph.DefaultRadius), pc, header, mus, hook)
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	assert.Equal(t, mus, hooked)
	assert.Equal(t, filepath.Join(layout.SimulationDir, "simulation_mu_0.250000"), dirs[0])
	assert.Equal(t, filepath.Join(layout.SimulationDir, "simulation_mu_-1.000000"), dirs[1])
	assert.DirExists(t, layout.ImageDir)

	param, err := os.ReadFile(filepath.Join(dirs[0], ParameterFile))
	require.NoError(t, err)
	assert.Equal(t, "Deformation parameter along the y direction: 0.25\n", string(param))
	assert.FileExists(t, filepath.Join(dirs[2], "system", "controlDict"))

	moved, err := readfiles.ReadPointsFile(filepath.Join(dirs[0], PointsPath))
	require.NoError(t, err)
	require.Equal(t, pc.Len(), moved.Len())
	for i, p := range pc {
		if p.Y() == 5 {
			assert.InDelta(t, 5.25, moved[i].Y(), 1.e-6)
		}
	}
	// The reference case is untouched
	ref, err := readfiles.ReadPointsFile(header)
	require.NoError(t, err)
	assert.Equal(t, pc, ref)

	{ // Hook failures stop the setup
		_, err := SetupSimulations(layout, morph.NewMorpher(morph.DefaultRadius), pc, header, []float64{0.5},
			func(float64, types.PointCloud) error { return fmt.Errorf("no plot") })
		assert.Error(t, err)
	}
	{
		bad := layout
		bad.ReferenceDir = filepath.Join(root, "missing")
		_, err := SetupSimulations(bad, morph.NewMorpher(morph.DefaultRadius), pc, header, mus, nil)
		assert.Error(t, err)
	}
}

func vtuText(mu float64, nPts int) string {
	var pts, vel strings.Builder
	for i := 0; i < nPts; i++ {
		fmt.Fprintf(&pts, "%d 0 0 ", i)
		fmt.Fprintf(&vel, "%g %g 7 ", 3*(1+mu), 4*float64(i))
	}
	return fmt.Sprintf(`<?xml version="1.0"?>
<VTKFile type="UnstructuredGrid" version="1.0" byte_order="LittleEndian">
  <UnstructuredGrid>
    <Piece NumberOfPoints="%d" NumberOfCells="0">
      <PointData>
        <DataArray type="Float64" Name="U" NumberOfComponents="3" format="ascii">%s</DataArray>
      </PointData>
      <Points>
        <DataArray type="Float64" Name="Points" NumberOfComponents="3" format="ascii">%s</DataArray>
      </Points>
    </Piece>
  </UnstructuredGrid>
</VTKFile>
`, nPts, vel.String(), pts.String())
}

func simulationVTU(root string, mu float64, step int) string {
	name := SimulationDirName(mu)
	return filepath.Join(root, name, "VTK", fmt.Sprintf("%s_%d", name, step), "internal.vtu")
}

func TestLoadSnapshots(t *testing.T) {
	root := t.TempDir()
	for _, mu := range []float64{0.5, -1, 1, 0.25} {
		writeFile(t, simulationVTU(root, mu, 100), vtuText(mu, 4))
	}
	// Failures are skipped: unreadable file, wrong mesh size
	writeFile(t, simulationVTU(root, 0.75, 100), "not a vtu file")
	writeFile(t, simulationVTU(root, 0.8, 100), vtuText(0.8, 3))

	S, err := LoadSnapshots(context.Background(), root, 3)
	require.NoError(t, err)
	require.Equal(t, 4, S.Len())
	nr, nc := S.Velocity.Dims()
	assert.Equal(t, 4, nr)
	assert.Equal(t, 4, nc)
	// Sorted by path: -1, 0.25, 0.5, 1
	assert.Equal(t, []float64{-1, 0.25, 0.5, 1}, S.Parameters.Col(0))
	for i, s := range S.Samples {
		for j := 0; j < 4; j++ {
			want := math.Hypot(3*(1+s.Mu), 4*float64(j))
			assert.InDelta(t, want, S.Velocity.At(i, j), 1.e-12)
		}
		assert.Equal(t, 4, s.Points.Len())
	}
	{ // Nothing to load
		_, err := LoadSnapshots(context.Background(), t.TempDir(), 2)
		assert.Error(t, err)
	}
	{ // A cancelled context stops the load
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := LoadSnapshots(ctx, root, 2)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestLoadTestData(t *testing.T) {
	testDir := t.TempDir()
	for _, label := range []string{"foam", "pygem"} {
		grid := label + "_grid"
		writeFile(t, filepath.Join(testDir, grid, "VTK", grid+"_200", "internal.vtu"), vtuText(0.1, 5))
	}
	writeFile(t, filepath.Join(testDir, "img", "mesh_-0.3741.png"), "")
	writeFile(t, filepath.Join(testDir, "img", "notes.txt"), "")

	byLabel, err := LoadTestData(context.Background(), testDir)
	require.NoError(t, err)
	require.Len(t, byLabel, 2)
	assert.Equal(t, 5, len(byLabel["foam_grid"].Velocity))
	assert.Equal(t, "pygem_grid", byLabel["pygem_grid"].Label)

	mu, err := MuFromImageDir(filepath.Join(testDir, "img"))
	require.NoError(t, err)
	assert.Equal(t, -0.3741, mu)
	_, err = MuFromImageDir(testDir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMuFromPath(t *testing.T) {
	mu, err := MuFromPath(simulationVTU("sims", -0.123456, 10))
	require.NoError(t, err)
	assert.Equal(t, -0.123456, mu)
	_, err = MuFromPath("sims/other/internal.vtu")
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	ref := []float64{1, 2, 0, 4}
	pred := []float64{1.5, 2, 0, 3}
	e, err := RelativeError(pred, ref)
	require.NoError(t, err)
	assert.InDelta(t, (0.5+0+0+0.25)/4, e, 1.e-12)
	mse, err := MSE(pred, ref)
	require.NoError(t, err)
	assert.InDelta(t, (0.25+1)/4, mse, 1.e-15)
	{ // A vanishing reference keeps the error finite
		e, err := RelativeError([]float64{1e-14}, []float64{0})
		require.NoError(t, err)
		assert.InDelta(t, 0.1, e, 1.e-12)
	}
	_, err = MSE(pred, ref[:3])
	assert.Error(t, err)
	_, err = RelativeError(nil, nil)
	assert.Error(t, err)
}

func TestCopyTree(t *testing.T) {
	src, dst := t.TempDir(), filepath.Join(t.TempDir(), "copy")
	writeFile(t, filepath.Join(src, "a", "b", "c.txt"), "c")
	writeFile(t, filepath.Join(src, "top.txt"), "top")
	require.NoError(t, CopyTree(src, dst))
	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "c", string(data))
	assert.FileExists(t, filepath.Join(dst, "top.txt"))
}

func TestPredictionFiles(t *testing.T) {
	dir := t.TempDir()
	pr := Prediction{Rank: 3, Param: -0.42, Velocity: []float64{0, 1.5, 2.25}}
	file, err := SavePrediction(dir, pr)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pod_results_rank3.yaml"), file)
	back, err := LoadPrediction(dir, 3)
	require.NoError(t, err)
	assert.Equal(t, pr, back)
	_, err = LoadPrediction(dir, 4)
	assert.Error(t, err)
	require.NoError(t, os.WriteFile(PredictionFile(dir, 5), []byte("Rank: 6\n"), 0644))
	_, err = LoadPrediction(dir, 5)
	assert.Error(t, err)
}
