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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/notargets/meshrom/InputParameters"
	"github.com/notargets/meshrom/dataset"
	"github.com/notargets/meshrom/morph"
	"github.com/notargets/meshrom/readfiles"
)

// BlockMeshCmd represents the blockmesh command
var BlockMeshCmd = &cobra.Command{
	Use:   "blockmesh",
	Short: "Move the top vertices of the ground truth blockMeshDict by the test mu",
	Long: `
Reads the test mu from TestDir/img/mesh_<mu>.png, written by train, and moves
the vertices on the top wall of TestDir/foam_grid/system/blockMeshDict so the
simulator meshes the deformed geometry directly.

meshrom blockmesh -I params.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			rp    *InputParameters.RunParameters
			file  string
			mu    float64
			moved int
		)
		if rp, err = loadRunParameters(); err != nil {
			return
		}
		if file, err = cmd.Flags().GetString("file"); err != nil {
			return
		}
		if len(file) == 0 {
			file = filepath.Join(rp.TestDir, "foam_grid", "system", "blockMeshDict")
		}
		if cmd.Flags().Changed("mu") {
			if mu, err = cmd.Flags().GetFloat64("mu"); err != nil {
				return
			}
		} else if mu, err = dataset.MuFromImageDir(filepath.Join(rp.TestDir, "img")); err != nil {
			return
		}
		if moved, err = RunBlockMesh(file, mu); err != nil {
			return
		}
		fmt.Printf("Moved %d vertices of %s by mu = %v\n", moved, file, mu)
		return
	},
}

func init() {
	rootCmd.AddCommand(BlockMeshCmd)
	BlockMeshCmd.Flags().StringP("file", "F", "", "blockMeshDict to edit in place, default TestDir/foam_grid/system/blockMeshDict")
	BlockMeshCmd.Flags().Float64("mu", 0, "deformation parameter, read from TestDir/img when not set")
}

// RunBlockMesh edits file in place, shifting the top wall vertices by mu.
func RunBlockMesh(file string, mu float64) (moved int, err error) {
	return readfiles.MoveBlockVerticesFile(file, file, morph.DefaultGeometry().Top, mu)
}
