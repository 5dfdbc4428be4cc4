package dataset

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/notargets/meshrom/morph"
	"github.com/notargets/meshrom/types"
)

const (
	PointsPath    = "constant/polyMesh/points"
	ParameterFile = "parameter.txt"
)

// Layout names the directories of a parametric study.
type Layout struct {
	ReferenceDir  string // undeformed reference case, copied per sample
	SimulationDir string // one simulation_mu_<mu> directory per sample
	ImageDir      string
}

func DefaultLayout() Layout {
	return Layout{
		ReferenceDir:  "reference_simulation",
		SimulationDir: "openfoam_simulations",
		ImageDir:      filepath.Join("openfoam_simulations", "img"),
	}
}

func SimulationDirName(mu float64) string { return fmt.Sprintf("simulation_mu_%.6f", mu) }

// FormatMu is the shortest decimal form of mu, used in parameter files and
// image names.
func FormatMu(mu float64) string { return strconv.FormatFloat(mu, 'f', -1, 64) }

// SampleParameters draws n values uniformly from [-1, 1) and appends the
// interval ends -1 and 1.
func SampleParameters(rng *rand.Rand, n int) (mus []float64, err error) {
	if n < 0 {
		return nil, fmt.Errorf("number of sampled parameters must be non-negative, have %d", n)
	}
	mus = make([]float64, 0, n+2)
	for i := 0; i < n; i++ {
		mus = append(mus, 2*rng.Float64()-1)
	}
	return append(mus, -1, 1), nil
}

// MeshHook is called with every deformed mesh, e.g. to plot it.
type MeshHook func(mu float64, deformed types.PointCloud) error

/*
SetupSimulations creates one simulation directory per mu under
layout.SimulationDir. A directory is copied from layout.ReferenceDir when it
does not already exist, then parameter.txt and the deformed points file are
(re)written. headerFile is the points template, usually the reference case
points file. It returns the directories in the order of mus.
*/
func SetupSimulations(layout Layout, mm *morph.Morpher, points types.PointCloud, headerFile string,
	mus []float64, hook MeshHook) (dirs []string, err error) {
	if _, err = os.Stat(layout.ReferenceDir); err != nil {
		return nil, fmt.Errorf("reference simulation directory: %w", err)
	}
	if err = os.MkdirAll(layout.SimulationDir, 0755); err != nil {
		return
	}
	if layout.ImageDir != "" {
		if err = os.MkdirAll(layout.ImageDir, 0755); err != nil {
			return
		}
	}
	for _, mu := range mus {
		simDir := filepath.Join(layout.SimulationDir, SimulationDirName(mu))
		if _, statErr := os.Stat(simDir); os.IsNotExist(statErr) {
			if err = CopyTree(layout.ReferenceDir, simDir); err != nil {
				return nil, fmt.Errorf("copying reference case to %s: %w", simDir, err)
			}
		}
		param := fmt.Sprintf("Deformation parameter along the y direction: %s\n", FormatMu(mu))
		if err = os.WriteFile(filepath.Join(simDir, ParameterFile), []byte(param), 0644); err != nil {
			return
		}
		var deformed types.PointCloud
		if deformed, err = mm.MorphFile(mu, points, filepath.Join(simDir, PointsPath), headerFile); err != nil {
			return nil, fmt.Errorf("mu = %v: %w", mu, err)
		}
		if hook != nil {
			if err = hook(mu, deformed); err != nil {
				return nil, fmt.Errorf("mu = %v: %w", mu, err)
			}
		}
		slog.Info("prepared simulation", "dir", simDir, "mu", mu)
		dirs = append(dirs, simDir)
	}
	return
}

// CopyTree copies the regular files and directories below src into dst.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) (err error) {
	var (
		in, out *os.File
		info    os.FileInfo
	)
	if in, err = os.Open(src); err != nil {
		return
	}
	defer in.Close()
	if info, err = in.Stat(); err != nil {
		return
	}
	if out, err = os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()); err != nil {
		return
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return
	}
	return out.Close()
}
