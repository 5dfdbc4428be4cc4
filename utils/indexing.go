package utils

type Index []int

func NewIndex(N int) (I Index) {
	return make(Index, N)
}

func NewRange(rmin, rmax int) (r Index) {
	var (
		size = rmax - rmin + 1 // INCLUSIVE RANGE
	)
	if size < 0 {
		size = 0
	}
	r = make(Index, size)
	for i := range r {
		r[i] = i + rmin
	}
	return
}

// NewIndexFromMask returns the positions holding true.
func NewIndexFromMask(mask []bool) (I Index) {
	I = make(Index, 0, len(mask))
	for i, set := range mask {
		if set {
			I = append(I, i)
		}
	}
	return
}
