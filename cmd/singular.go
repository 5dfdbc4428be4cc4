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

	"github.com/spf13/cobra"

	"github.com/notargets/meshrom/InputParameters"
	"github.com/notargets/meshrom/dataset"
	"github.com/notargets/meshrom/types"
)

// SingularCmd represents the singular command
var SingularCmd = &cobra.Command{
	Use:   "singular",
	Short: "Plot the singular values and POD modes of the snapshots",
	Long: `
Writes ImageDir/singular_values.png and ImageDir/pod_mode_<i>.png for the
full rank POD of the simulated velocity magnitudes.

meshrom singular -I params.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp *InputParameters.RunParameters
		)
		if rp, err = loadRunParameters(); err != nil {
			return
		}
		return RunSingular(context.Background(), rp)
	},
}

func init() {
	rootCmd.AddCommand(SingularCmd)
}

func RunSingular(ctx context.Context, rp *InputParameters.RunParameters) (err error) {
	var (
		S  dataset.Snapshots
		pc types.PointCloud
	)
	if err = rp.Validate(); err != nil {
		return
	}
	if S, err = dataset.LoadSnapshots(ctx, rp.SimulationDir, rp.Workers); err != nil {
		return
	}
	if _, pc, err = referencePoints(rp); err != nil {
		return
	}
	if err = plotSpectrum(S, pc, rp.ImageDir); err != nil {
		return
	}
	fmt.Printf("Wrote spectrum of %d snapshots to %s\n", S.Len(), rp.ImageDir)
	return
}
