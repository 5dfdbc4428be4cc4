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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/meshrom/InputParameters"
	"github.com/notargets/meshrom/dataset"
	"github.com/notargets/meshrom/plotting"
)

const (
	GroundTruthLabel = "foam_grid"
	BaselineLabel    = "pygem_grid"
)

// EvaluateCmd represents the evaluate command
var EvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare the surrogate and the morphed mesh baseline against the ground truth",
	Long: `
Reads TestDir/pod_results_rank<r>.yaml for r = 1..PODRank and the test
simulations TestDir/foam_grid (ground truth, meshed with the deformed
blockMeshDict) and TestDir/pygem_grid (simulated on the morphed mesh), then
prints and plots the relative error and MSE of both.

meshrom evaluate -I params.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp     *InputParameters.RunParameters
			report []RankErrors
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
		if report, err = RunEvaluate(context.Background(), rp); err != nil {
			return
		}
		PrintErrors(report)
		return
	},
}

func init() {
	rootCmd.AddCommand(EvaluateCmd)
	EvaluateCmd.Flags().IntP("rank", "r", 10, "largest POD rank")
}

type RankErrors struct {
	Rank                  int
	RelativePOD, MSEPOD   float64
	RelativeBase, MSEBase float64
}

// RunEvaluate scores every stored prediction and writes
// TestDir/img/relative_error.png and TestDir/img/mse.png.
func RunEvaluate(ctx context.Context, rp *InputParameters.RunParameters) (report []RankErrors, err error) {
	var (
		byLabel map[string]dataset.Snapshot
	)
	if err = rp.Validate(); err != nil {
		return
	}
	if byLabel, err = dataset.LoadTestData(ctx, rp.TestDir); err != nil {
		return
	}
	truth, ok := byLabel[GroundTruthLabel]
	if !ok {
		return nil, fmt.Errorf("no %s test simulation in %s", GroundTruthLabel, rp.TestDir)
	}
	base, ok := byLabel[BaselineLabel]
	if !ok {
		return nil, fmt.Errorf("no %s test simulation in %s", BaselineLabel, rp.TestDir)
	}

	for rank := 1; rank <= rp.PODRank; rank++ {
		var pr dataset.Prediction
		if pr, err = dataset.LoadPrediction(rp.TestDir, rank); err != nil {
			return
		}
		re := RankErrors{Rank: rank}
		if re.RelativePOD, err = dataset.RelativeError(pr.Velocity, truth.Velocity); err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		if re.MSEPOD, err = dataset.MSE(pr.Velocity, truth.Velocity); err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		if re.RelativeBase, err = dataset.RelativeError(base.Velocity, truth.Velocity); err != nil {
			return
		}
		if re.MSEBase, err = dataset.MSE(base.Velocity, truth.Velocity); err != nil {
			return
		}
		report = append(report, re)
	}

	var (
		ranks           = make([]int, len(report))
		relPOD, relBase = make([]float64, len(report)), make([]float64, len(report))
		msePOD, mseBase = make([]float64, len(report)), make([]float64, len(report))
		imgDir          = filepath.Join(rp.TestDir, "img")
	)
	if err = os.MkdirAll(imgDir, 0755); err != nil {
		return
	}
	for i, re := range report {
		ranks[i] = re.Rank
		relPOD[i], relBase[i] = re.RelativePOD, re.RelativeBase
		msePOD[i], mseBase[i] = re.MSEPOD, re.MSEBase
	}
	if err = plotting.PlotErrors(ranks, []plotting.Series{
		{Name: "POD error", Values: relPOD, Color: plotting.Red, Marked: true},
		{Name: "Morphed mesh error", Values: relBase, Color: plotting.Blue},
	}, "Relative error of POD-RBF and morphed mesh", "Relative error",
		filepath.Join(imgDir, "relative_error.png")); err != nil {
		return
	}
	err = plotting.PlotErrors(ranks, []plotting.Series{
		{Name: "POD MSE", Values: msePOD, Color: plotting.Red, Marked: true},
		{Name: "Morphed mesh MSE", Values: mseBase, Color: plotting.Blue},
	}, "MSE of POD-RBF and morphed mesh", "MSE", filepath.Join(imgDir, "mse.png"))
	return
}

func PrintErrors(report []RankErrors) {
	fmt.Println("Errors:")
	for _, re := range report {
		fmt.Printf("Rank %d:\n", re.Rank)
		fmt.Printf("    Relative error: POD = %.2e, Morphed mesh = %.2e\n", re.RelativePOD, re.RelativeBase)
		fmt.Printf("    MSE: POD = %.2e, Morphed mesh = %.2e\n\n", re.MSEPOD, re.MSEBase)
	}
}
