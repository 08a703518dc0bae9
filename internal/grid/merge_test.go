// internal/grid/merge_test.go - Unit tests for grid merging
package grid

import "testing"

func TestMerge(t *testing.T) {
	got := Merge(fromRows(grid1), fromRows(grid2))
	want := fromRows([][]int{
		{14, 10, 14, 35},
		{17, 31, 27, 24},
		{27, 7, 25, 1},
		{13, 6, 3, 8},
	})

	if len(got) != 4 {
		t.Errorf("Expected 4 columns, got %d", len(got))
	}
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want.Cells(), got.Cells())
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := fromRows(grid1)
	b := fromRows(grid2)
	Merge(a, b)

	if !a.Equal(fromRows(grid1)) || !b.Equal(fromRows(grid2)) {
		t.Error("Expected inputs to be unchanged")
	}
}

func TestMergePresenceIsUnion(t *testing.T) {
	a := New()
	a.Add(0, 0, 0)
	a.Add(1, 1, 2)
	b := New()
	b.Add(2, 2, 0)
	b.Add(1, 1, 3)

	got := Merge(a, b)
	tests := []struct {
		x, y, want int
	}{
		{0, 0, 0},
		{1, 1, 5},
		{2, 2, 0},
	}
	for _, tt := range tests {
		n, ok := got.Get(tt.x, tt.y)
		if !ok || n != tt.want {
			t.Errorf("Cell (%d, %d): expected (%d, true), got (%d, %v)", tt.x, tt.y, tt.want, n, ok)
		}
	}
	if got.Len() != 3 {
		t.Errorf("Expected 3 cells, got %d", got.Len())
	}
}

func TestMergeLaws(t *testing.T) {
	a := fromRows(grid1)
	b := fromRows(grid2)
	c := New()
	c.Add(3, 5, 2)
	c.Add(0, 0, 0)

	if !Merge(a, b).Equal(Merge(b, a)) {
		t.Error("Expected merge to be commutative")
	}
	if !Merge(Merge(a, b), c).Equal(Merge(a, Merge(b, c))) {
		t.Error("Expected merge to be associative")
	}
	if !Merge(a, New()).Equal(a) {
		t.Error("Expected the empty grid to be the identity")
	}
}

func TestMergeAll(t *testing.T) {
	a := fromRows(grid1)
	b := fromRows(grid2)

	if !MergeAll(a, b).Equal(Merge(a, b)) {
		t.Error("Expected MergeAll of two grids to equal Merge")
	}
	if MergeAll().Len() != 0 {
		t.Error("Expected MergeAll of nothing to be empty")
	}
}
