package segment

import (
	"container/list"
)

// compStats accumulates what region fitting needs from a component.
type compStats struct {
	label                  int
	count                  int
	sumX, sumY             float64
	minX, minY, maxX, maxY int
}

// connectedComponents labels the 4-connected components of mask. labels
// holds 0 for background and the 1-based component label otherwise.
func connectedComponents(mask []bool, w, h int) ([]compStats, []int) {
	labels := make([]int, w*h)
	var comps []compStats
	label := 1

	for y := range h {
		for x := range w {
			idx := y*w + x
			if mask[idx] && labels[idx] == 0 {
				comps = append(comps, labelComponent(mask, labels, w, h, x, y, label))
				label++
			}
		}
	}
	return comps, labels
}

// labelComponent flood-fills one component breadth first from (startX, startY).
func labelComponent(mask []bool, labels []int, w, h, startX, startY, label int) compStats {
	st := compStats{label: label, minX: startX, minY: startY, maxX: startX, maxY: startY}
	q := list.New()
	start := startY*w + startX
	labels[start] = label
	q.PushBack(start)

	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, _ := e.Value.(int)
		cx, cy := ci%w, ci/w
		st.add(cx, cy)

		for _, d := range dirs {
			nx, ny := cx+d[0], cy+d[1]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if mask[ni] && labels[ni] == 0 {
				labels[ni] = label
				q.PushBack(ni)
			}
		}
	}
	return st
}

func (st *compStats) add(x, y int) {
	st.count++
	st.sumX += float64(x)
	st.sumY += float64(y)
	st.minX = min(st.minX, x)
	st.minY = min(st.minY, y)
	st.maxX = max(st.maxX, x)
	st.maxY = max(st.maxY, y)
}

// largest returns the component with the most pixels; the first one wins
// ties. ok is false when comps is empty.
func largest(comps []compStats) (best compStats, ok bool) {
	for _, c := range comps {
		if c.count > best.count {
			best = c
			ok = true
		}
	}
	return best, ok
}
