package segment

import "github.com/MeKo-Tech/eanscan/internal/mempool"

// MorphologicalOp names a binary morphology operation on the mask.
type MorphologicalOp int

const (
	MorphNone MorphologicalOp = iota
	MorphDilate
	MorphErode
	MorphOpening // erode then dilate, removes speckle
	MorphClosing // dilate then erode, bridges gaps between bars
)

// applyMorphology runs op with a size x size square element. Pixels outside
// the mask are ignored, so borders neither grow nor erode spuriously.
func applyMorphology(mask []bool, w, h int, op MorphologicalOp, size int) []bool {
	if op == MorphNone || size <= 1 {
		return mask
	}
	out := make([]bool, len(mask))
	switch op {
	case MorphDilate:
		dilate(out, mask, w, h, size)
	case MorphErode:
		erode(out, mask, w, h, size)
	case MorphOpening, MorphClosing:
		tmp := mempool.GetBool(len(mask))
		defer mempool.PutBool(tmp)
		if op == MorphOpening {
			erode(tmp, mask, w, h, size)
			dilate(out, tmp, w, h, size)
		} else {
			dilate(tmp, mask, w, h, size)
			erode(out, tmp, w, h, size)
		}
	default:
		return mask
	}
	return out
}

// kernelOffsets returns the element's extent relative to its origin. Odd
// sizes are centered; even sizes put the origin right of center for erosion
// (2 -> -1..0) and dilation uses the mirrored extent (2 -> 0..1).
func kernelOffsets(size int, mirrored bool) (lo, hi int) {
	lo = -(size / 2)
	hi = lo + size - 1
	if mirrored {
		lo, hi = -hi, -lo
	}
	return lo, hi
}

// dilate and erode overwrite every element of dst.
func dilate(dst, mask []bool, w, h, size int) {
	lo, hi := kernelOffsets(size, true)
	for y := range h {
		for x := range w {
			dst[y*w+x] = anyInWindow(mask, w, h, x, y, lo, hi)
		}
	}
}

func erode(dst, mask []bool, w, h, size int) {
	lo, hi := kernelOffsets(size, false)
	for y := range h {
		for x := range w {
			dst[y*w+x] = allInWindow(mask, w, h, x, y, lo, hi)
		}
	}
}

func anyInWindow(mask []bool, w, h, x, y, lo, hi int) bool {
	for ky := lo; ky <= hi; ky++ {
		ny := y + ky
		if ny < 0 || ny >= h {
			continue
		}
		for kx := lo; kx <= hi; kx++ {
			nx := x + kx
			if nx >= 0 && nx < w && mask[ny*w+nx] {
				return true
			}
		}
	}
	return false
}

func allInWindow(mask []bool, w, h, x, y, lo, hi int) bool {
	for ky := lo; ky <= hi; ky++ {
		ny := y + ky
		if ny < 0 || ny >= h {
			continue
		}
		for kx := lo; kx <= hi; kx++ {
			nx := x + kx
			if nx >= 0 && nx < w && !mask[ny*w+nx] {
				return false
			}
		}
	}
	return true
}
