// internal/grid/merge.go - Combining grids of the same zoom
package grid

// Merge returns the cellwise sum of a and b. A cell is present in the result
// when it is present in either input. Neither input is modified.
func Merge(a, b SparseGrid) SparseGrid {
	out := a.Clone()
	for x, col := range b {
		for y, n := range col {
			out.Add(x, y, n)
		}
	}
	return out
}

// MergeAll folds Merge over grids from left to right
func MergeAll(grids ...SparseGrid) SparseGrid {
	out := New()
	for _, g := range grids {
		out = Merge(out, g)
	}
	return out
}
