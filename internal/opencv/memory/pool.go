package memory

import (
	"denoisefx/internal/opencv/safe"
)

// freeList holds released frames of one size, most recent last.
type freeList struct {
	mats []*safe.Mat
	max  int
}

func newFreeList(max int) *freeList {
	return &freeList{mats: make([]*safe.Mat, 0, max), max: max}
}

// take pops a reusable frame. Frames closed while idle are dropped.
func (f *freeList) take() *safe.Mat {
	for n := len(f.mats); n > 0; n = len(f.mats) {
		mat := f.mats[n-1]
		f.mats = f.mats[:n-1]
		if mat.IsValid() && !mat.Empty() {
			return mat
		}
		mat.Close()
	}
	return nil
}

// put keeps mat unless the list is full or mat is unusable.
func (f *freeList) put(mat *safe.Mat) bool {
	if len(f.mats) >= f.max || !mat.IsValid() || mat.Empty() {
		return false
	}
	f.mats = append(f.mats, mat)
	return true
}

func (f *freeList) len() int { return len(f.mats) }

// drain closes every idle frame and returns how many there were.
func (f *freeList) drain() int {
	n := len(f.mats)
	for _, mat := range f.mats {
		mat.Close()
	}
	f.mats = f.mats[:0]
	return n
}
