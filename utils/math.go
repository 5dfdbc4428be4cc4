package utils

import (
	"fmt"
	"math"
)

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// Linspace returns N evenly spaced values over [a, b], inclusive.
func Linspace(a, b float64, N int) (v []float64) {
	v = make([]float64, N)
	if N == 1 {
		v[0] = a
		return
	}
	dx := (b - a) / float64(N-1)
	for i := range v {
		v[i] = a + float64(i)*dx
	}
	v[N-1] = b
	return
}

// PairwiseDistance returns the [na, nb] matrix of Euclidean distances
// between the rows of A and the rows of B.
func PairwiseDistance(A, B Matrix) (D Matrix) {
	var (
		na, ncA = A.Dims()
		nb, ncB = B.Dims()
	)
	if na != 0 && nb != 0 && ncA != ncB {
		panic(fmt.Errorf("PairwiseDistance: row widths differ, %d != %d", ncA, ncB))
	}
	D = NewMatrix(na, nb)
	for i := 0; i < na; i++ {
		a := A.M.RawRowView(i)
		d := D.M.RawRowView(i)
		for j := 0; j < nb; j++ {
			b := B.M.RawRowView(j)
			var sum float64
			for k := range a {
				dx := a[k] - b[k]
				sum += dx * dx
			}
			d[j] = math.Sqrt(sum)
		}
	}
	return
}
