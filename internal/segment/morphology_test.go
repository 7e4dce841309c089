package segment

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func maskFrom(rows ...string) ([]bool, int, int) {
	h := len(rows)
	w := len(rows[0])
	m := make([]bool, w*h)
	for y, r := range rows {
		for x, c := range r {
			m[y*w+x] = c == '#'
		}
	}
	return m, w, h
}

func render(m []bool, w int) []string {
	var rows []string
	for y := 0; y*w < len(m); y++ {
		b := make([]byte, w)
		for x := range w {
			if m[y*w+x] {
				b[x] = '#'
			} else {
				b[x] = '.'
			}
		}
		rows = append(rows, string(b))
	}
	return rows
}

func TestKernelOffsets(t *testing.T) {
	tests := []struct {
		size     int
		mirrored bool
		lo, hi   int
	}{
		{3, false, -1, 1},
		{3, true, -1, 1},
		{2, false, -1, 0},
		{2, true, 0, 1},
		{4, false, -2, 1},
		{4, true, -1, 2},
	}
	for _, tt := range tests {
		lo, hi := kernelOffsets(tt.size, tt.mirrored)
		assert.Equal(t, tt.lo, lo, "size %d mirrored %v", tt.size, tt.mirrored)
		assert.Equal(t, tt.hi, hi, "size %d mirrored %v", tt.size, tt.mirrored)
	}
}

func TestClosing_BridgesGap(t *testing.T) {
	m, w, h := maskFrom(
		".........",
		".........",
		"..##.##..",
		"..##.##..",
		".........",
		".........",
	)
	got := applyMorphology(m, w, h, MorphClosing, 3)
	assert.Equal(t, []string{
		".........",
		".........",
		"..#####..",
		"..#####..",
		".........",
		".........",
	}, render(got, w))
}

func TestOpening_RemovesSpeckle(t *testing.T) {
	m, w, h := maskFrom(
		"......",
		".#....",
		"......",
		"...##.",
		"...##.",
		"......",
	)
	got := applyMorphology(m, w, h, MorphOpening, 2)
	assert.Equal(t, []string{
		"......",
		"......",
		"......",
		"...##.",
		"...##.",
		"......",
	}, render(got, w))
}

func TestMorphology_NoneAndSmallKernel(t *testing.T) {
	m, w, h := maskFrom("#.#")
	assert.Equal(t, m, applyMorphology(m, w, h, MorphNone, 3))
	assert.Equal(t, m, applyMorphology(m, w, h, MorphDilate, 1))
}

// TestMorphology_Properties checks the ordering laws of binary morphology.
func TestMorphology_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genMask := gen.SliceOfN(64, gen.Bool())

	properties.Property("erosion is contained in the mask, dilation contains it", prop.ForAll(
		func(m []bool, size int) bool {
			er := applyMorphology(m, 8, 8, MorphErode, size)
			di := applyMorphology(m, 8, 8, MorphDilate, size)
			for i := range m {
				if er[i] && !m[i] {
					return false
				}
				if m[i] && !di[i] {
					return false
				}
			}
			return true
		},
		genMask,
		gen.IntRange(2, 4),
	))

	properties.Property("opening is anti-extensive, closing is extensive", prop.ForAll(
		func(m []bool, size int) bool {
			op := applyMorphology(m, 8, 8, MorphOpening, size)
			cl := applyMorphology(m, 8, 8, MorphClosing, size)
			for i := range m {
				if op[i] && !m[i] {
					return false
				}
				if m[i] && !cl[i] {
					return false
				}
			}
			return true
		},
		genMask,
		gen.IntRange(2, 4),
	))

	properties.TestingRun(t)
}
