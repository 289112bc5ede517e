package table

import "github.com/prismpdf/pdfkit/observability"

// buildSplit partitions a partially-successful body placement into a
// committed renderer (already laid out, ready to draw on the current page)
// and a continuation renderer (a fresh, not-yet-laid-out Renderer over the
// remaining rows), per spec section 4.4.

// committedCount is the number of rows that end up on the current page: the
// split row itself counts only if it produced visible content.
func (pr rowPlacementResult) committedCount() int {
	if pr.hasContent {
		return pr.splitRowIndex + 1
	}
	return pr.splitRowIndex
}

func (r *Renderer) buildSplit(pr rowPlacementResult, box Rect) (committed, continuation *Renderer) {
	n := pr.committedCount()

	var committedCells, continuationCells []*Cell
	committedBoxes := make(map[cellKey]placedCell)

	for _, row := range r.model.Rows {
		for _, cell := range row.Cells {
			end := cell.EndRow()
			key := keyOf(cell)
			p, dispatched := pr.placed[key]

			switch {
			case end < n:
				// Wholly on the committed page, unchanged.
				committedCells = append(committedCells, cell)
				if dispatched {
					committedBoxes[key] = p
				}

			case dispatched && end == pr.splitRowIndex && pr.hasContent:
				switch p.result.Status {
				case Partial:
					top := cloneCell(cell)
					top.Content = p.result.SplitContent
					top.Borders.Bottom = nil
					committedCells = append(committedCells, top)
					committedBoxes[keyOf(top)] = placedCell{cell: top, result: CellLayoutResult{Status: Full, OccupiedArea: p.result.OccupiedArea}}

					bottom := cloneCellFrom(cell, n)
					bottom.Content = p.result.OverflowContent
					bottom.Borders.Top = nil
					continuationCells = append(continuationCells, bottom)
				case Nothing:
					moved := cloneCellFrom(cell, n)
					moved.Borders.Top = r.model.Borders.Top
					continuationCells = append(continuationCells, moved)
				default:
					// Full cells at the boundary were already handled by the
					// end < n branch (n == splitRowIndex+1 in that case).
					committedCells = append(committedCells, cell)
					committedBoxes[key] = p
				}

			case dispatched && cell.Row > pr.splitRowIndex:
				// Late arrival (spec section 4.4 step 1): anchored beyond
				// the split but dispatched early by dispatchLateArrivals
				// against whatever room the split row had left.
				switch p.result.Status {
				case Partial:
					top := &Cell{
						Row: n - 1, Col: cell.Col,
						RowSpan: 1, ColSpan: cell.ColSpan,
						Borders: cell.Borders,
						VAlign:  cell.VAlign,
						Content: p.result.SplitContent,
					}
					top.Borders.Bottom = nil
					committedCells = append(committedCells, top)
					committedBoxes[keyOf(top)] = placedCell{cell: top, result: CellLayoutResult{Status: Full, OccupiedArea: p.result.OccupiedArea}}

					bottom := cloneCellFrom(cell, n)
					bottom.Content = p.result.OverflowContent
					bottom.Borders.Top = nil
					continuationCells = append(continuationCells, bottom)
				default:
					// NOTHING: the early attempt found no room either; move
					// the cell down whole, same as an untouched future cell.
					continuationCells = append(continuationCells, cloneCellFrom(cell, n))
				}

			case cell.Row < n && end >= n:
				shellSpan := n - cell.Row
				shell := &Cell{
					Row: cell.Row, Col: cell.Col,
					RowSpan: shellSpan, ColSpan: cell.ColSpan,
					Borders: cell.Borders,
					VAlign:  cell.VAlign,
					Content: emptyContent{},
				}
				shell.Borders.Bottom = nil
				committedCells = append(committedCells, shell)

				remSpan := end - n + 1
				rem := &Cell{
					Row: 0, Col: cell.Col,
					RowSpan: remSpan, ColSpan: cell.ColSpan,
					Borders: cell.Borders,
					VAlign:  cell.VAlign,
					Content: cell.Content,
				}
				rem.Borders.Top = nil
				continuationCells = append(continuationCells, rem)

			default: // cell.Row >= n: wholly beyond the page, moves down entire
				continuationCells = append(continuationCells, cloneCellFrom(cell, n))
			}
		}
	}

	committedTable := &Table{
		Columns:    r.model.Columns,
		Widths:     r.model.Widths,
		Borders:    r.model.Borders,
		IsComplete: r.model.IsComplete,
		Rows:       groupIntoRows(committedCells, n),
	}
	if err := committedTable.Build(); err != nil {
		// Row bucketing above is derived directly from a table that already
		// validated once; a failure here means the derivation is broken.
		panic("table: internal split produced an invalid committed table: " + err.Error())
	}

	remainingRows := r.model.RowCount() - n
	continuationTable := &Table{
		Columns:         r.model.Columns,
		Widths:          r.model.Widths,
		Borders:         r.model.Borders,
		Header:          r.model.Header,
		Footer:          r.model.Footer,
		IsComplete:      r.model.IsComplete,
		SkipFirstHeader: r.model.SkipFirstHeader,
		SkipLastFooter:  r.model.SkipLastFooter,
		Rows:            groupIntoRows(continuationCells, remainingRows),
	}
	if err := continuationTable.Build(); err != nil {
		panic("table: internal split produced an invalid continuation table: " + err.Error())
	}

	committedGrids := r.grids.clipRows(n)
	if len(committedGrids.H) > 0 {
		last := len(committedGrids.H) - 1
		// The page-break boundary is an artefact of pagination, not a real
		// table edge: it draws with no rule (spec section 4.4.3).
		committedGrids.H[last] = make([]*Border, r.model.Columns)
	}

	committed = &Renderer{
		model:              committedTable,
		isOriginalNonSplit: false,
		opts:               r.opts,
		heights:            pr.heights,
		columnWidths:       r.columnWidths,
		grids:              committedGrids,
		cellBoxes:          committedBoxes,
		laidOut:            true,
	}
	committed.occupiedArea = committed.computeOccupiedAreaSplit(box)

	continuation, _ = New(continuationTable, WithForcedPlacement(r.opts.ForcedPlacement),
		WithKeepTogether(r.opts.KeepTogether),
		WithFillAvailableArea(r.opts.FillAvailableArea),
		WithFillAvailableAreaOnSplit(r.opts.FillAvailableAreaOnSplit),
		WithMinHeight(r.opts.MinHeight), WithMaxHeight(r.opts.MaxHeight), WithHeight(r.opts.Height),
		WithMargins(r.opts.MarginTop, r.opts.MarginBottom),
		WithLogger(r.opts.Logger))
	continuation.isOriginalNonSplit = false
	continuation.firstOnPage = false

	r.opts.Logger.Info("table split across page boundary",
		observability.String("metric", observability.MetricTableSplits),
		observability.Int("committed_rows", n),
		observability.String("metric.rows", observability.MetricTableRows),
		observability.Int("continuation_rows", remainingRows))

	return committed, continuation
}

// computeOccupiedAreaSplit is computeOccupiedArea's split-path counterpart:
// the page-break boundary never collapses against the table's own bottom
// border, since the table isn't actually finished there.
func (r *Renderer) computeOccupiedAreaSplit(box Rect) Rect {
	var h float64
	for _, rh := range r.heights {
		h += rh
	}
	h += r.model.Borders.Top.width() / 2
	return Rect{X: box.X, Y: box.Top() - h, Width: box.Width, Height: h}
}

// cloneCell copies a cell's fields into a new value with the same origin.
func cloneCell(c *Cell) *Cell {
	cp := *c
	return &cp
}

// cloneCellFrom copies a cell's fields into a new value renumbered as if the
// table started rowOffset rows later.
func cloneCellFrom(c *Cell, rowOffset int) *Cell {
	cp := *c
	cp.Row = c.Row - rowOffset
	if cp.Row < 0 {
		cp.Row = 0
	}
	return &cp
}

// groupIntoRows buckets a flat cell list back into row slices by Cell.Row,
// for constructing a derived Table.
func groupIntoRows(cells []*Cell, rowCount int) []Row {
	if rowCount < 0 {
		rowCount = 0
	}
	rows := make([]Row, rowCount)
	for _, c := range cells {
		if c.Row < 0 || c.Row >= rowCount {
			continue
		}
		rows[c.Row].Cells = append(rows[c.Row].Cells, c)
	}
	return rows
}

// emptyContent is the content collaborator for enlarge-column shell cells:
// it reserves no drawable content of its own, since the real content lives
// in the continuation's remainder cell.
type emptyContent struct{}

func (emptyContent) Layout(area Rect) CellLayoutResult {
	return CellLayoutResult{Status: Full, OccupiedArea: Rect{X: area.X, Y: area.Top(), Width: area.Width, Height: 0}}
}
