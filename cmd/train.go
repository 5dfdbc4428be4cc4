/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/meshrom/InputParameters"
	"github.com/notargets/meshrom/dataset"
	"github.com/notargets/meshrom/morph"
	"github.com/notargets/meshrom/plotting"
	"github.com/notargets/meshrom/pod"
	"github.com/notargets/meshrom/rbf"
	"github.com/notargets/meshrom/surrogate"
	"github.com/notargets/meshrom/types"
)

// TrainCmd represents the train command
var TrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit POD-RBF surrogates of rank 1..PODRank and predict a test mu",
	Long: `
Loads the simulated velocity magnitudes, plots the singular values and POD
modes, morphs the reference mesh for a test mu (random unless --mu is given)
into TestDir/points and stores the prediction of every rank in
TestDir/pod_results_rank<r>.yaml.

meshrom train -I params.yaml --mu 0.3`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp *InputParameters.RunParameters
			mu float64
		)
		if rp, err = loadRunParameters(); err != nil {
			return
		}
		if cmd.Flags().Changed("rank") {
			if rp.PODRank, err = cmd.Flags().GetInt("rank"); err != nil {
				return
			}
		}
		if err = rp.Validate(); err != nil {
			return
		}
		if cmd.Flags().Changed("mu") {
			if mu, err = cmd.Flags().GetFloat64("mu"); err != nil {
				return
			}
		} else {
			mu = 2*rand.New(rand.NewSource(rp.Seed+1)).Float64() - 1
		}
		rp.Print()
		var preds []dataset.Prediction
		if preds, err = RunTrain(context.Background(), rp, mu); err != nil {
			return
		}
		fmt.Printf("Predicted mu = %v for ranks 1..%d\n", mu, len(preds))
		return
	},
}

func init() {
	rootCmd.AddCommand(TrainCmd)
	TrainCmd.Flags().IntP("rank", "r", 10, "largest POD rank")
	TrainCmd.Flags().Float64("mu", 0, "test deformation parameter, random in [-1, 1] when not set")
}

// RunTrain fits one surrogate per rank and saves its prediction at mu.
func RunTrain(ctx context.Context, rp *InputParameters.RunParameters, mu float64) (preds []dataset.Prediction, err error) {
	var (
		S        dataset.Snapshots
		header   string
		pc       types.PointCloud
		cfg      rbf.Config
		testMesh types.PointCloud
		imgDir   = filepath.Join(rp.TestDir, "img")
	)
	if err = rp.Validate(); err != nil {
		return
	}
	if cfg, err = rp.RBFConfig(); err != nil {
		return
	}
	if err = os.MkdirAll(imgDir, 0755); err != nil {
		return
	}
	if S, err = dataset.LoadSnapshots(ctx, rp.SimulationDir, rp.Workers); err != nil {
		return
	}
	if header, pc, err = referencePoints(rp); err != nil {
		return
	}
	if err = plotSpectrum(S, pc, rp.ImageDir); err != nil {
		return
	}

	// The test geometry, its mu is recovered from the image name later on
	mm := morph.NewMorpher(rp.MorphRadius)
	if testMesh, err = mm.MorphFile(mu, pc, filepath.Join(rp.TestDir, "points"), header); err != nil {
		return
	}
	if err = plotting.PlotMesh(testMesh, plotting.Red, "Deformed Mesh",
		filepath.Join(imgDir, "mesh_"+dataset.FormatMu(mu)+".png")); err != nil {
		return
	}

	for rank := 1; rank <= rp.PODRank; rank++ {
		s := surrogate.New(rank, cfg)
		if rp.NoCoefficientScaling {
			s = s.WithoutCoefficientScaling()
		}
		if err = s.Fit(S.Parameters, S.Velocity); err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		var vel []float64
		if vel, err = s.Predict(mu); err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		img := filepath.Join(imgDir, fmt.Sprintf("predicted_velocity_rank%d.png", rank))
		if plotErr := plotting.PlotField(testMesh, vel, "Predicted Velocity Magnitude", img); plotErr != nil {
			slog.Warn("prediction not plotted", "rank", rank, "error", plotErr)
		}
		pr := dataset.Prediction{Rank: rank, Param: mu, Velocity: vel}
		var file string
		if file, err = dataset.SavePrediction(rp.TestDir, pr); err != nil {
			return
		}
		slog.Info("saved prediction", "rank", rank, "mu", mu, "file", file)
		preds = append(preds, pr)
	}
	return
}

// plotSpectrum plots the normalized singular values of the full rank POD
// and its modes on the reference mesh.
func plotSpectrum(S dataset.Snapshots, pc types.PointCloud, outputDir string) (err error) {
	var (
		n, f = S.Velocity.Dims()
	)
	if err = os.MkdirAll(outputDir, 0755); err != nil {
		return
	}
	pr := pod.NewReducer(min(n, f), false)
	if err = pr.Fit(S.Velocity); err != nil {
		return
	}
	if err = plotting.PlotSingularValues(pr.NormalizedSingularValues(),
		filepath.Join(outputDir, "singular_values.png")); err != nil {
		return
	}
	if pc.Len() != f {
		slog.Warn("POD modes not plotted, mesh and snapshot sizes differ", "points", pc.Len(), "field", f)
		return
	}
	_, err = plotting.PlotModes(pc, pr.Basis(), outputDir)
	return
}
