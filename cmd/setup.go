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
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/meshrom/InputParameters"
	"github.com/notargets/meshrom/dataset"
	"github.com/notargets/meshrom/morph"
	"github.com/notargets/meshrom/plotting"
	"github.com/notargets/meshrom/readfiles"
	"github.com/notargets/meshrom/types"
)

// SetupCmd represents the setup command
var SetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create one deformed simulation case per sampled mu",
	Long: `
Copies the reference case once per mu, writes parameter.txt and the morphed
constant/polyMesh/points, and plots every deformed mesh. NDeformations values
of mu are drawn uniformly from [-1, 1] and the ends -1 and 1 are always added.

meshrom setup -I params.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp *InputParameters.RunParameters
		)
		if rp, err = loadRunParameters(); err != nil {
			return
		}
		if cmd.Flags().Changed("n") {
			if rp.NDeformations, err = cmd.Flags().GetInt("n"); err != nil {
				return
			}
		}
		if cmd.Flags().Changed("seed") {
			if rp.Seed, err = cmd.Flags().GetInt64("seed"); err != nil {
				return
			}
		}
		if err = rp.Validate(); err != nil {
			return
		}
		rp.Print()
		_, err = RunSetup(rp)
		return
	},
}

func init() {
	rootCmd.AddCommand(SetupCmd)
	SetupCmd.Flags().IntP("n", "n", 10, "number of random deformations, -1 and 1 are added")
	SetupCmd.Flags().Int64("seed", 1, "seed of the parameter sampler")
}

func layoutFrom(rp *InputParameters.RunParameters) dataset.Layout {
	return dataset.Layout{
		ReferenceDir:  rp.ReferenceDir,
		SimulationDir: rp.SimulationDir,
		ImageDir:      rp.ImageDir,
	}
}

func referencePoints(rp *InputParameters.RunParameters) (header string, pc types.PointCloud, err error) {
	header = filepath.Join(rp.ReferenceDir, dataset.PointsPath)
	if pc, err = readfiles.ReadPointsFile(header); err != nil {
		return "", nil, fmt.Errorf("reference mesh: %w", err)
	}
	return
}

// RunSetup lays out the simulation cases and returns their directories.
func RunSetup(rp *InputParameters.RunParameters) (dirs []string, err error) {
	var (
		header string
		pc     types.PointCloud
		layout = layoutFrom(rp)
		mm     = morph.NewMorpher(rp.MorphRadius)
		mus    []float64
	)
	if err = rp.Validate(); err != nil {
		return
	}
	if mus, err = dataset.SampleParameters(rand.New(rand.NewSource(rp.Seed)), rp.NDeformations); err != nil {
		return
	}
	if header, pc, err = referencePoints(rp); err != nil {
		return
	}
	plotMesh := func(mu float64, deformed types.PointCloud) error {
		file := filepath.Join(layout.ImageDir, "mesh_"+dataset.FormatMu(mu)+".png")
		return plotting.PlotMesh(deformed, plotting.Red, "Deformed Mesh", file)
	}
	return dataset.SetupSimulations(layout, mm, pc, header, mus, plotMesh)
}
