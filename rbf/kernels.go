package rbf

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/notargets/meshrom/utils"
)

// Kernel is a radial function of the scaled distance r = |x - c| / Radius.
type Kernel uint8

const (
	ThinPlateSpline Kernel = iota
	Gaussian
	Multiquadric
	InverseMultiquadric
	Linear
	Cubic
)

var KernelNameMap = map[string]Kernel{
	"thin_plate_spline":    ThinPlateSpline,
	"tps":                  ThinPlateSpline,
	"gaussian":             Gaussian,
	"multiquadric":         Multiquadric,
	"inverse_multiquadric": InverseMultiquadric,
	"linear":               Linear,
	"cubic":                Cubic,
}

func (k Kernel) String() string {
	switch k {
	case ThinPlateSpline:
		return "thin_plate_spline"
	case Gaussian:
		return "gaussian"
	case Multiquadric:
		return "multiquadric"
	case InverseMultiquadric:
		return "inverse_multiquadric"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	}
	return fmt.Sprintf("Kernel(%d)", uint8(k))
}

func ParseKernel(name string) (k Kernel, err error) {
	var ok bool
	if k, ok = KernelNameMap[strings.ToLower(strings.TrimSpace(name))]; !ok {
		names := make([]string, 0, len(KernelNameMap))
		for key := range KernelNameMap {
			names = append(names, key)
		}
		sort.Strings(names)
		err = fmt.Errorf("unknown RBF kernel %q, choose one of %v", name, names)
	}
	return
}

func (k Kernel) Eval(r float64) float64 {
	switch k {
	case ThinPlateSpline:
		if r == 0 {
			return 0
		}
		return r * r * math.Log(r)
	case Gaussian:
		return math.Exp(-r * r)
	case Multiquadric:
		return -math.Sqrt(1 + r*r)
	case InverseMultiquadric:
		return 1. / math.Sqrt(1+r*r)
	case Linear:
		return -r
	case Cubic:
		return utils.POW(r, 3)
	}
	panic(fmt.Errorf("unknown kernel %d", k))
}

// MinDegree is the lowest polynomial degree for which the augmented
// system of a conditionally positive definite kernel is nonsingular.
func (k Kernel) MinDegree() int {
	switch k {
	case ThinPlateSpline, Cubic:
		return 1
	case Linear, Multiquadric:
		return 0
	}
	return -1
}
