package table

import "testing"

// S4: complete table, footer 10pt, page exactly as tall as the 30pt body —
// engine checks whether the remaining rows fit if the footer is dropped,
// and if so commits FULL without the footer, the body using the reclaimed
// height.
func TestRenderer_S4_SkipLastFooterElision(t *testing.T) {
	body := &Table{
		Columns: 1,
		Rows: []Row{
			{Cells: []*Cell{{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Content: fixedHeightContent{height: 30}}}},
		},
		Widths:          []Width{Percent(100)},
		IsComplete:      true,
		SkipLastFooter:  true,
	}
	body.Footer = &Table{
		Columns: 1,
		Rows: []Row{
			{Cells: []*Cell{{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Content: fixedHeightContent{height: 10}}}},
		},
		Widths: []Width{Percent(100)},
	}

	r, err := New(body)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 40pt total: body needs 30, footer needs 10 — exactly enough together,
	// but if the footer is provisionally reserved first there's only 30pt
	// left, exactly enough for the body; test the tighter case where the
	// footer must be dropped for the body to fit at all.
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 30})
	if res.Status != Full {
		t.Fatalf("status = %v, want Full (cause=%v)", res.Status, res.Cause)
	}
	if r.footerRenderer != nil {
		t.Errorf("expected the footer to be elided, got a non-nil footerRenderer")
	}
	if res.Occupied.Height != 30 {
		t.Errorf("occupiedArea.Height = %v, want 30 (footer elided, no extra height)", res.Occupied.Height)
	}
}

// Without SkipLastFooter, the same layout must fail to commit the footer at
// all when there isn't room for both body and footer.
func TestRenderer_FooterKeptWhenSkipLastFooterUnset(t *testing.T) {
	body := &Table{
		Columns: 1,
		Rows: []Row{
			{Cells: []*Cell{{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Content: fixedHeightContent{height: 30}}}},
		},
		Widths:     []Width{Percent(100)},
		IsComplete: true,
	}
	body.Footer = &Table{
		Columns: 1,
		Rows: []Row{
			{Cells: []*Cell{{Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Content: fixedHeightContent{height: 10}}}},
		},
		Widths: []Width{Percent(100)},
	}

	r, err := New(body)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := r.Layout(Rect{X: 0, Y: 0, Width: 100, Height: 30})
	if res.Status == Full {
		t.Fatalf("expected the footer's fixed 10pt reservation to starve the 30pt body, got Full")
	}
}
