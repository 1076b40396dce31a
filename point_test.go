package zran

import "testing"

// TestGetClosestPoint covers the lookup laws from spec.md section 8:
// with greaterThan false, the unique point with the largest
// Outloc <= offset; with greaterThan true, the smallest with
// Outloc >= offset. Exact matches are returned regardless of
// direction.
func TestGetClosestPoint(t *testing.T) {
	points := []Point{
		{Outloc: 0},
		{Outloc: 10},
		{Outloc: 20},
		{Outloc: 30},
	}

	cases := []struct {
		offset      uint64
		greaterThan bool
		want        uint64
	}{
		{0, false, 0},
		{5, false, 0},
		{10, false, 10},
		{15, false, 10},
		{30, false, 30},
		{100, false, 30},
		{0, true, 0},
		{5, true, 10},
		{10, true, 10},
		{25, true, 30},
		{30, true, 30},
	}
	for _, c := range cases {
		got := GetClosestPoint(points, c.offset, c.greaterThan)
		if got.Outloc != c.want {
			t.Errorf("GetClosestPoint(%d, %v) = %d, want %d", c.offset, c.greaterThan, got.Outloc, c.want)
		}
	}
}

func TestGetClosestPointSingleton(t *testing.T) {
	points := []Point{{Outloc: 0}}
	got := GetClosestPoint(points, 12345, false)
	if got.Outloc != 0 {
		t.Errorf("got %d, want 0", got.Outloc)
	}
	got = GetClosestPoint(points, 12345, true)
	if got.Outloc != 0 {
		t.Errorf("got %d, want 0", got.Outloc)
	}
}
