package types

import (
	"github.com/notargets/meshrom/utils"
)

// Point is one mesh vertex (x, y, z).
type Point [3]float64

func (p Point) X() float64 { return p[0] }
func (p Point) Y() float64 { return p[1] }
func (p Point) Z() float64 { return p[2] }

/*
PointCloud holds mesh vertices in the mesh's native order. The position of a
point in the slice is its vertex index and transforms must preserve it.
*/
type PointCloud []Point

// Copy returns an independent copy so stages never alias each other.
func (pc PointCloud) Copy() (R PointCloud) {
	if pc == nil {
		return nil
	}
	R = make(PointCloud, len(pc))
	copy(R, pc)
	return
}

func (pc PointCloud) Len() int { return len(pc) }

// ToMatrix returns the cloud as an [N,3] matrix.
func (pc PointCloud) ToMatrix() (M utils.Matrix) {
	M = utils.NewMatrix(len(pc), 3)
	for i, p := range pc {
		M.SetRow(i, p[:])
	}
	return
}

// NewPointCloudFromMatrix reads the first three columns of each row of M.
func NewPointCloudFromMatrix(M utils.Matrix) (pc PointCloud) {
	var (
		nr, nc = M.Dims()
	)
	pc = make(PointCloud, nr)
	for i := range pc {
		for j := 0; j < 3 && j < nc; j++ {
			pc[i][j] = M.At(i, j)
		}
	}
	return
}

// Subset returns the points selected by mask.
func (pc PointCloud) Subset(mask ControlMask) (R PointCloud) {
	R = make(PointCloud, 0, mask.Count())
	for i, p := range pc {
		if mask[i] {
			R = append(R, p)
		}
	}
	return
}

// XY splits the cloud into x and y coordinate slices, used for plotting.
func (pc PointCloud) XY() (X, Y []float64) {
	X, Y = make([]float64, len(pc)), make([]float64, len(pc))
	for i, p := range pc {
		X[i], Y[i] = p[0], p[1]
	}
	return
}

// ControlMask flags the vertices of a PointCloud that act as morphing anchors.
type ControlMask []bool

func (cm ControlMask) Count() (n int) {
	for _, set := range cm {
		if set {
			n++
		}
	}
	return
}

func (cm ControlMask) Index() utils.Index { return utils.NewIndexFromMask(cm) }
