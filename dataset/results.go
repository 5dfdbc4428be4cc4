package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ghodss/yaml"
)

// Prediction is the surrogate output for one parameter at one POD rank.
type Prediction struct {
	Rank     int       `json:"Rank"`
	Param    float64   `json:"Param"`
	Velocity []float64 `json:"Velocity"`
}

func PredictionFile(dir string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf("pod_results_rank%d.yaml", rank))
}

func SavePrediction(dir string, pr Prediction) (file string, err error) {
	var (
		data []byte
	)
	if data, err = yaml.Marshal(pr); err != nil {
		return
	}
	file = PredictionFile(dir, pr.Rank)
	if err = os.WriteFile(file, data, 0644); err != nil {
		return "", err
	}
	return
}

func LoadPrediction(dir string, rank int) (pr Prediction, err error) {
	var (
		data []byte
		file = PredictionFile(dir, rank)
	)
	if data, err = os.ReadFile(file); err != nil {
		return
	}
	if err = yaml.Unmarshal(data, &pr); err != nil {
		return pr, fmt.Errorf("parsing %s: %w", file, err)
	}
	if pr.Rank != rank {
		return pr, fmt.Errorf("%s holds rank %d", file, pr.Rank)
	}
	return
}
