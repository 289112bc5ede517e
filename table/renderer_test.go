package table

import "testing"

// fixedHeightContent is a scriptable ContentCollaborator: it always reports
// Full at a caller-chosen height, regardless of the offered area (as long
// as the area is tall enough), mirroring the teacher's own hand-rolled test
// doubles rather than a mocking library.
type fixedHeightContent struct {
	height float64
}

func (f fixedHeightContent) Layout(area Rect) CellLayoutResult {
	if area.Height < f.height {
		return CellLayoutResult{Status: Nothing, Cause: &CauseOfNothing{Reason: "not enough room"}}
	}
	return CellLayoutResult{Status: Full, OccupiedArea: Rect{X: area.X, Y: area.Top() - f.height, Width: area.Width, Height: f.height}}
}

func uniform3x3(cellHeight float64, border *Border) *Table {
	rows := make([]Row, 3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			rows[r].Cells = append(rows[r].Cells, &Cell{
				Row: r, Col: c, RowSpan: 1, ColSpan: 1,
				Borders: Borders{Top: border, Right: border, Bottom: border, Left: border},
				Content: fixedHeightContent{height: cellHeight},
			})
		}
	}
	return &Table{
		Columns:    3,
		Rows:       rows,
		Widths:     []Width{Percent(33), Percent(33), Percent(34)},
		IsComplete: true,
	}
}

// S1: uniform 3x3, all borders 1pt, page 100x100, cells 20pt tall.
func TestRenderer_S1_UniformGrid(t *testing.T) {
	border := NewBorder(1, BorderSolid, Color{})
	model := uniform3x3(20, border)

	r, err := New(model)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 100})
	if res.Status != Full {
		t.Fatalf("status = %v, want Full (cause=%v)", res.Status, res.Cause)
	}
	wantHeights := []float64{20, 20, 20}
	if len(r.heights) != len(wantHeights) {
		t.Fatalf("heights = %v, want %v", r.heights, wantHeights)
	}
	for i, h := range wantHeights {
		if r.heights[i] != h {
			t.Errorf("heights[%d] = %v, want %v", i, r.heights[i], h)
		}
	}
	want := Rect{X: 0, Y: 40, Width: 100, Height: 60}
	if res.Occupied != want {
		t.Errorf("occupiedArea = %+v, want %+v", res.Occupied, want)
	}
	if len(r.grids.H) != 4 {
		t.Errorf("H rows = %d, want 4", len(r.grids.H))
	}
}

// S3: border-collapse tie — wider border wins, narrower cell adopts it.
func TestRenderer_S3_BorderCollapseTie(t *testing.T) {
	wide := NewBorder(2, BorderSolid, Color{})
	narrow := NewBorder(1, BorderSolid, Color{})

	left := &Cell{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Borders: Borders{Right: wide}, Content: fixedHeightContent{height: 10}}
	right := &Cell{Row: 0, Col: 1, RowSpan: 1, ColSpan: 1, Borders: Borders{Left: narrow}, Content: fixedHeightContent{height: 10}}
	model := &Table{
		Columns:    2,
		Rows:       []Row{{Cells: []*Cell{left, right}}},
		Widths:     []Width{Percent(50), Percent(50)},
		IsComplete: true,
	}

	r, err := New(model)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 100})
	if res.Status != Full {
		t.Fatalf("status = %v, want Full (cause=%v)", res.Status, res.Cause)
	}

	winner := r.grids.V[1][0]
	if winner == nil || winner.Width != 2 {
		t.Fatalf("interior vertical border = %+v, want width 2 (left's wider border)", winner)
	}
	adopted := r.EffectiveBorder(right, sideLeft)
	if adopted == nil || adopted.Width != 2 {
		t.Fatalf("right cell's adopted left border = %+v, want width 2", adopted)
	}
}

// S5: percent+point mixed widths, tableWidth=200.
func TestRenderer_S5_MixedColumnWidths(t *testing.T) {
	widths := []Width{Percent(50), Point(10), Point(20)}
	out := resolveColumnWidths(widths, 200, 0, 0)
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	want := []float64{100, 100.0 / 3, 200.0 / 3}
	for i := range want {
		if diff := out[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	var sum float64
	for _, w := range out {
		sum += w
	}
	if diff := sum - 200; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("sum(out) = %v, want 200", sum)
	}
}

// S6: KeepTogether refuses a split when a row won't fit.
func TestRenderer_S6_KeepTogetherRefusesSplit(t *testing.T) {
	model := uniform3x3(20, nil)
	// Page only has room for rows 0 and 1 (40pt); row 2 needs another 20pt.
	r, err := New(model, WithKeepTogether(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 40})
	if res.Status != Nothing {
		t.Fatalf("status = %v, want Nothing", res.Status)
	}
	if res.Cause == nil {
		t.Fatalf("expected a non-nil cause of NOTHING")
	}
}

// ForcedPlacement commits row 0 even when nothing at all would otherwise fit.
func TestRenderer_ForcedPlacement(t *testing.T) {
	model := uniform3x3(20, nil)
	r, err := New(model, WithForcedPlacement(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 5})
	if res.Status != Full {
		t.Fatalf("status = %v, want Full", res.Status)
	}
	if len(r.heights) != 1 {
		t.Fatalf("heights = %v, want exactly one forced row", r.heights)
	}
}
