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
	"log/slog"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshrom/InputParameters"
)

var (
	cfgFile  string
	profiler interface{ Stop() }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meshrom",
	Short: "POD-RBF reduced order model of a parametrized channel flow",
	Long: `
Builds a parametric study of the flow over a backward facing step whose top
wall is displaced by mu, trains a POD-RBF surrogate on the simulated velocity
magnitudes and compares it against a morphed mesh baseline.

meshrom setup      # deformed simulation cases from the reference case
meshrom singular   # singular values and POD modes of the snapshots
meshrom train      # surrogate predictions for ranks 1..PODRank
meshrom blockmesh  # ground truth geometry for the test mu
meshrom evaluate   # relative error and MSE against the ground truth`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		setupLogging(viper.GetBool("verbose"))
		switch mode := viper.GetString("profile"); mode {
		case "":
		case "cpu":
			profiler = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		case "mem":
			profiler = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		default:
			err = fmt.Errorf("unknown profile mode %q, use cpu or mem", mode)
		}
		return
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if profiler != nil {
			profiler.Stop()
			profiler = nil
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.meshrom.yaml)")
	rootCmd.PersistentFlags().StringP("inputParameters", "I", "", "YAML file for run parameters like:\n\t- PODRank\n\t- MorphRadius")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the working directory")
	for _, name := range []string{"inputParameters", "verbose", "profile"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".meshrom" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".meshrom")
	}

	viper.SetEnvPrefix("MESHROM")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadRunParameters overlays the --inputParameters file, when given, on the
// defaults.
func loadRunParameters() (rp *InputParameters.RunParameters, err error) {
	var (
		data []byte
	)
	rp = InputParameters.NewRunParameters()
	file := viper.GetString("inputParameters")
	if len(file) == 0 {
		slog.Debug("no input parameters file, using defaults")
		return rp, rp.Validate()
	}
	if data, err = os.ReadFile(file); err != nil {
		return nil, err
	}
	if err = rp.Parse(data); err != nil {
		return nil, fmt.Errorf("input parameters %s: %w", file, err)
	}
	return
}
