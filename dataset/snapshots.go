package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/meshrom/readfiles"
	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

const VelocityField = "U"

var (
	simulationMu = regexp.MustCompile(`simulation_mu_(-?\d*\.?\d*)`)
	imageMu      = regexp.MustCompile(`^mesh_(-?\d+(?:\.\d+)?)\.png$`)
)

// Snapshot is the velocity magnitude of one simulation on its own mesh.
type Snapshot struct {
	Path     string
	Label    string
	Mu       float64
	Points   types.PointCloud
	Velocity []float64
}

// Snapshots stacks the samples that share one mesh size, sorted by path.
type Snapshots struct {
	Samples    []Snapshot
	Parameters utils.Matrix // [n, 1]
	Velocity   utils.Matrix // [n, nPoints]
}

func (s Snapshots) Len() int { return len(s.Samples) }

// VelocityMagnitude is |(Ux, Uy)| per point, the in-plane speed.
func VelocityMagnitude(U utils.Matrix) (v []float64) {
	nr, nc := U.Dims()
	v = make([]float64, nr)
	for i := range v {
		var ux, uy float64
		ux = U.At(i, 0)
		if nc > 1 {
			uy = U.At(i, 1)
		}
		v[i] = math.Hypot(ux, uy)
	}
	return
}

// ReadSnapshot reads the mesh and velocity magnitude of one VTU file.
func ReadSnapshot(path string) (s Snapshot, err error) {
	var U utils.Matrix
	s.Path = path
	if s.Points, U, err = readfiles.ReadVTUFile(path, VelocityField); err != nil {
		return
	}
	s.Velocity = VelocityMagnitude(U)
	return
}

// MuFromPath parses mu out of the first simulation_mu_<mu> element of path.
func MuFromPath(path string) (mu float64, err error) {
	m := simulationMu.FindStringSubmatch(filepath.ToSlash(path))
	if m == nil {
		return 0, fmt.Errorf("no simulation_mu_<mu> in %s", path)
	}
	if mu, err = strconv.ParseFloat(m[1], 64); err != nil {
		return 0, fmt.Errorf("parsing mu in %s: %w", path, err)
	}
	return
}

// LoadSnapshots reads root/simulation_mu_*/VTK/simulation_mu_*_*/internal.vtu
// with up to workers concurrent readers. A sample that fails to load, or whose
// mesh size differs from the first good sample, is logged and skipped. An
// error is returned only when no sample loads.
func LoadSnapshots(ctx context.Context, root string, workers int) (S Snapshots, err error) {
	var (
		paths []string
	)
	pattern := filepath.Join(root, "simulation_mu_*", "VTK", "simulation_mu_*_*", "internal.vtu")
	if paths, err = filepath.Glob(pattern); err != nil {
		return
	}
	samples := loadAll(ctx, paths, workers, func(path string) (s Snapshot, err error) {
		if s, err = ReadSnapshot(path); err != nil {
			return
		}
		s.Mu, err = MuFromPath(path)
		return
	})
	if err = ctx.Err(); err != nil {
		return
	}
	if len(samples) == 0 {
		return S, fmt.Errorf("no snapshots loaded from %d files matching %s", len(paths), pattern)
	}
	nPts := len(samples[0].Velocity)
	for _, s := range samples {
		if len(s.Velocity) != nPts {
			slog.Error("skipping snapshot", "path", s.Path,
				"error", fmt.Sprintf("%d points, expected %d", len(s.Velocity), nPts))
			continue
		}
		S.Samples = append(S.Samples, s)
	}
	S.Parameters = utils.NewMatrix(len(S.Samples), 1)
	S.Velocity = utils.NewMatrix(len(S.Samples), nPts)
	for i, s := range S.Samples {
		S.Parameters.Set(i, 0, s.Mu)
		S.Velocity.SetRow(i, s.Velocity)
	}
	slog.Info("loaded snapshots", "samples", len(S.Samples), "files", len(paths), "points", nPts)
	return
}

// LoadTestData reads testDir/<label>_grid/VTK/<label>_grid_*/internal.vtu and
// returns the samples keyed by label (foam_grid, pygem_grid, ...).
func LoadTestData(ctx context.Context, testDir string) (byLabel map[string]Snapshot, err error) {
	var (
		paths []string
	)
	pattern := filepath.Join(testDir, "*_grid", "VTK", "*_grid_*", "internal.vtu")
	if paths, err = filepath.Glob(pattern); err != nil {
		return
	}
	samples := loadAll(ctx, paths, len(paths), func(path string) (s Snapshot, err error) {
		if s, err = ReadSnapshot(path); err != nil {
			return
		}
		rel, _ := filepath.Rel(testDir, path)
		s.Label = firstElement(rel)
		return
	})
	if err = ctx.Err(); err != nil {
		return
	}
	byLabel = make(map[string]Snapshot, len(samples))
	for _, s := range samples {
		if _, dup := byLabel[s.Label]; dup {
			slog.Warn("duplicate test sample", "label", s.Label, "path", s.Path)
			continue
		}
		byLabel[s.Label] = s
	}
	if len(byLabel) == 0 {
		return nil, fmt.Errorf("no test samples loaded from %d files matching %s", len(paths), pattern)
	}
	return
}

func firstElement(rel string) string {
	for {
		dir := filepath.Dir(rel)
		if dir == "." || dir == string(filepath.Separator) {
			return rel
		}
		rel = dir
	}
}

// loadAll applies load to every path with bounded concurrency. Failures are
// logged and dropped; the result is sorted by path.
func loadAll(ctx context.Context, paths []string, workers int, load func(string) (Snapshot, error)) (samples []Snapshot) {
	var (
		results = make([]*Snapshot, len(paths))
	)
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			s, err := load(path)
			if err != nil {
				slog.Error("skipping snapshot", "path", path, "error", err)
				return nil
			}
			results[i] = &s
			return nil
		})
	}
	_ = g.Wait()
	for _, s := range results {
		if s != nil {
			samples = append(samples, *s)
		}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return
}

// MuFromImageDir finds mesh_<mu>.png in dir and returns mu.
func MuFromImageDir(dir string) (mu float64, err error) {
	var (
		entries []os.DirEntry
	)
	if entries, err = os.ReadDir(dir); err != nil {
		return
	}
	for _, e := range entries {
		if m := imageMu.FindStringSubmatch(e.Name()); m != nil {
			return strconv.ParseFloat(m[1], 64)
		}
	}
	return 0, fmt.Errorf("no mesh_<mu>.png file found in %s: %w", dir, os.ErrNotExist)
}
