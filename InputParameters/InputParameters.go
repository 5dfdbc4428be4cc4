package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"

	"github.com/notargets/meshrom/rbf"
)

// Parameters obtained from the YAML input file
type RunParameters struct {
	Title                string  `yaml:"Title"`
	PODRank              int     `yaml:"PODRank"`
	Kernel               string  `yaml:"Kernel"`
	PolynomialDegree     int     `yaml:"PolynomialDegree"`
	NoCoefficientScaling bool    `yaml:"NoCoefficientScaling"`
	MorphRadius          float64 `yaml:"MorphRadius"`
	NDeformations        int     `yaml:"NDeformations"`
	Seed                 int64   `yaml:"Seed"`
	Workers              int     `yaml:"Workers"`
	ReferenceDir         string  `yaml:"ReferenceDir"`
	SimulationDir        string  `yaml:"SimulationDir"`
	ImageDir             string  `yaml:"ImageDir"`
	TestDir              string  `yaml:"TestDir"`
}

// NewRunParameters returns the defaults that Parse overlays.
func NewRunParameters() *RunParameters {
	return &RunParameters{
		Title:            "POD-RBF surrogate",
		PODRank:          10,
		Kernel:           "thin_plate_spline",
		PolynomialDegree: 1,
		MorphRadius:      100,
		NDeformations:    10,
		Seed:             1,
		Workers:          4,
		ReferenceDir:     "reference_simulation",
		SimulationDir:    "openfoam_simulations",
		ImageDir:         "openfoam_simulations/img",
		TestDir:          "test",
	}
}

func (rp *RunParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, rp); err != nil {
		return
	}
	return rp.Validate()
}

func (rp *RunParameters) Validate() (err error) {
	switch {
	case rp.PODRank < 1:
		err = fmt.Errorf("PODRank must be at least 1, have %d", rp.PODRank)
	case rp.MorphRadius <= 0:
		err = fmt.Errorf("MorphRadius must be positive, have %v", rp.MorphRadius)
	case rp.NDeformations < 0:
		err = fmt.Errorf("NDeformations must be non-negative, have %d", rp.NDeformations)
	default:
		_, err = rp.RBFConfig()
	}
	return
}

// RBFConfig is the interpolator configuration of the parameter to
// coefficient map.
func (rp *RunParameters) RBFConfig() (cfg rbf.Config, err error) {
	cfg = rbf.DefaultConfig()
	if cfg.Kernel, err = rbf.ParseKernel(rp.Kernel); err != nil {
		return
	}
	cfg.Degree = rp.PolynomialDegree
	err = cfg.Validate()
	return
}

func (rp *RunParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("[%d]\t\t\t\t= POD Rank\n", rp.PODRank)
	fmt.Printf("[%s]\t= RBF Kernel\n", rp.Kernel)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Degree\n", rp.PolynomialDegree)
	fmt.Printf("[%v]\t\t\t= Scale Coefficients\n", !rp.NoCoefficientScaling)
	fmt.Printf("%8.5f\t\t= Morph Radius\n", rp.MorphRadius)
	fmt.Printf("[%d]\t\t\t\t= Deformations\n", rp.NDeformations)
	fmt.Printf("[%d]\t\t\t\t= Seed\n", rp.Seed)
	fmt.Printf("[%s]\t= Reference Case\n", rp.ReferenceDir)
	fmt.Printf("[%s]\t= Simulations\n", rp.SimulationDir)
	fmt.Printf("[%s]\t= Images\n", rp.ImageDir)
	fmt.Printf("[%s]\t\t\t= Test Cases\n", rp.TestDir)
}
