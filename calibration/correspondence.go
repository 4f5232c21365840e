package calibration

// NoIndex marks a pixel no point projected onto.
const NoIndex = -1

// CorrespondenceIndex records, for every pixel of the camera image, which point of the cloud
// projected onto it. Storage is a single row major slice.
type CorrespondenceIndex struct {
	rows, cols int
	idx        []int
}

// NewCorrespondenceIndex returns an index of the given size with every pixel set to NoIndex.
func NewCorrespondenceIndex(rows, cols int) *CorrespondenceIndex {
	rows, cols = max(rows, 0), max(cols, 0)
	idx := make([]int, rows*cols)
	for i := range idx {
		idx[i] = NoIndex
	}
	return &CorrespondenceIndex{rows: rows, cols: cols, idx: idx}
}

// Rows returns the image height.
func (ci *CorrespondenceIndex) Rows() int {
	return ci.rows
}

// Cols returns the image width.
func (ci *CorrespondenceIndex) Cols() int {
	return ci.cols
}

// At returns the point index stored at (row, col), NoIndex when none or out of bounds.
func (ci *CorrespondenceIndex) At(row, col int) int {
	if row < 0 || row >= ci.rows || col < 0 || col >= ci.cols {
		return NoIndex
	}
	return ci.idx[row*ci.cols+col]
}

// Set stores a point index at (row, col), replacing any previous one. Out of bounds writes are
// ignored.
func (ci *CorrespondenceIndex) Set(row, col, pointIdx int) {
	if row < 0 || row >= ci.rows || col < 0 || col >= ci.cols {
		return
	}
	ci.idx[row*ci.cols+col] = pointIdx
}

// Count returns the number of pixels holding a point.
func (ci *CorrespondenceIndex) Count() int {
	n := 0
	for _, v := range ci.idx {
		if v != NoIndex {
			n++
		}
	}
	return n
}
