package table

// cellKey identifies a cell by its origin, which is unique within a table.
type cellKey struct{ row, col int }

func keyOf(c *Cell) cellKey { return cellKey{c.Row, c.Col} }

// placedCell is the resolved outcome of dispatching one cell to its content
// collaborator.
type placedCell struct {
	cell   *Cell
	result CellLayoutResult
}

// rowPlacementOutcome is the result of trying to lay out one row within the
// remaining box.
type rowPlacementOutcome struct {
	fits     bool
	rowHeight float64
	placed   []placedCell // all cells anchored at this row, in column order
}

// queueForRow builds the FIFO queue of cells anchored at row r, in ascending
// column order, per spec section 4.3 step 1.
func queueForRow(model *Table, r int) []*Cell {
	var out []*Cell
	for c := 0; c < model.Columns; c++ {
		cell := model.cellAt(r, c)
		if cell == nil || cell.Col != c {
			continue // dedupe: only trigger at the cell's own leftmost column
		}
		out = append(out, cell)
	}
	return out
}

// sumHeights sums heights[from:to) guarding against an empty range.
func sumHeights(heights []float64, from, to int) float64 {
	var s float64
	for i := from; i < to && i < len(heights); i++ {
		if i >= 0 {
			s += heights[i]
		}
	}
	return s
}

// dispatchRow lays out every cell anchored at row r against box, resolving
// its collapsed borders first. remaining is the vertical space left in box
// from the row's top edge down to box's bottom edge.
func (r *Renderer) dispatchRow(model *Table, grids *borderGrids, heights []float64, row int, box Rect, remaining float64) rowPlacementOutcome {
	queue := queueForRow(model, row)
	out := rowPlacementOutcome{fits: true}

	for _, cell := range queue {
		offset, width := columnOffset(r.columnWidths, cell.Col, cell.ColSpan)
		rowspanOffset := sumHeights(heights, cell.Row, row)
		area := Rect{
			X:      box.X + offset,
			Y:      box.Y,
			Width:  width,
			Height: rowspanOffset + remaining,
		}

		r.resolveCellBorders(model, grids, cell, row)

		// Fold the bottom edge before dispatch: reserve space as if this
		// row were the table's final edge, widening the cell's own bottom
		// border to the table's if that one is wider, so the content
		// collaborator insets correctly. The reservation only narrows the
		// area offered for this one call: the returned occupied area is used
		// as is, so the folded border never grows the row height.
		inset := collapse(cell.Borders.Bottom, model.Borders.Bottom).width() / 2
		area.Height -= inset

		res := cell.Content.Layout(area)
		if cell.KeepTogether && res.Status == Partial {
			res = CellLayoutResult{Status: Nothing, Cause: &CauseOfNothing{Cell: cell, Reason: "cell has KeepTogether set"}}
		}
		out.placed = append(out.placed, placedCell{cell: cell, result: res})

		switch res.Status {
		case Full, Partial:
			h := res.OccupiedArea.Height - rowspanOffset
			if h < 0 {
				h = 0
			}
			if h > out.rowHeight {
				out.rowHeight = h
			}
			if res.Status == Partial {
				out.fits = false
			}
		default:
			out.fits = false
		}
	}
	return out
}

// resolveCellBorders collapses a cell's declared borders against the table
// edges where the cell touches them (spec section 4.3 bullet). Interior
// row-to-row and column-to-column borders are resolved against whatever the
// neighbouring cell already wrote into the grid.
func (r *Renderer) resolveCellBorders(model *Table, grids *borderGrids, cell *Cell, row int) {
	startRow := cell.Row
	endCol := cell.EndCol()

	// Left edge.
	if cell.Col == 0 {
		winner := grids.writeV(0, startRow, row+1, collapse(cell.Borders.Left, model.Borders.Left))
		if winner != cell.Borders.Left {
			grids.recordAdoption(cell.Row, cell.Col, sideLeft, winner)
		}
	} else {
		winner := grids.writeV(cell.Col, startRow, row+1, cell.Borders.Left)
		if winner != cell.Borders.Left {
			grids.recordAdoption(cell.Row, cell.Col, sideLeft, winner)
		}
	}

	// Right edge.
	if endCol == model.Columns {
		winner := grids.writeV(model.Columns, startRow, row+1, collapse(cell.Borders.Right, model.Borders.Right))
		if winner != cell.Borders.Right {
			grids.recordAdoption(cell.Row, cell.Col, sideRight, winner)
		}
	} else {
		winner := grids.writeV(endCol, startRow, row+1, cell.Borders.Right)
		if winner != cell.Borders.Right {
			grids.recordAdoption(cell.Row, cell.Col, sideRight, winner)
		}
	}

	// Top edge: only collapses against the table edge when this cell's span
	// starts at the table's first row; interior top boundaries were already
	// resolved by the row above (or, if none exists yet, by this write).
	top := cell.Borders.Top
	if startRow == 0 {
		top = collapse(cell.Borders.Top, model.Borders.Top)
	}
	winner := grids.writeH(startRow, cell.Col, endCol, top)
	if winner != cell.Borders.Top {
		grids.recordAdoption(cell.Row, cell.Col, sideTop, winner)
	}

	// Bottom edge boundary is resolved provisionally here; finalizeBorders
	// collapses H[last] against the table's own bottom border once the
	// committed row range is known (spec section 4.3's fold/rollback,
	// simplified — see DESIGN.md).
	winner = grids.writeH(row+1, cell.Col, endCol, cell.Borders.Bottom)
	if winner != cell.Borders.Bottom {
		grids.recordAdoption(cell.Row, cell.Col, sideBottom, winner)
	}
}

// dispatchLateArrivals implements spec section 4.3/4.4's "late arrivals"
// step: a column still idle at row (no cell anchored there) may have a cell
// anchored further down whose content would otherwise vanish entirely —
// the per-row dispatch loop only ever visits a cell at its own anchor
// (bottom) row, so a cell that hasn't started yet by the time the split is
// forced would simply move to the continuation untouched. Such a cell is
// dispatched now, against whatever vertical space the split row has left,
// so it is at least partially placed on the committed page.
func (r *Renderer) dispatchLateArrivals(row int, box Rect, remaining float64, placed map[cellKey]placedCell) {
	for c := 0; c < r.model.Columns; c++ {
		if r.model.cellAt(row, c) != nil {
			continue
		}
		future := r.nextAnchoredCell(row, c)
		if future == nil || future.Row <= row {
			continue
		}
		key := keyOf(future)
		if _, ok := placed[key]; ok {
			continue
		}

		offset, width := columnOffset(r.columnWidths, future.Col, future.ColSpan)
		area := Rect{X: box.X + offset, Y: box.Y, Width: width, Height: remaining}

		view := cloneCell(future)
		view.Row = row
		r.resolveCellBorders(r.model, r.grids, view, row)

		res := future.Content.Layout(area)
		placed[key] = placedCell{cell: future, result: res}
	}
}

// nextAnchoredCell scans forward from row+1 in column c for the next
// grid-anchored cell whose leftmost column is c.
func (r *Renderer) nextAnchoredCell(row, c int) *Cell {
	for rr := row + 1; rr < r.model.RowCount(); rr++ {
		cell := r.model.cellAt(rr, c)
		if cell != nil && cell.Col == c {
			return cell
		}
	}
	return nil
}

// EffectiveBorder returns the border a cell must reserve as inset on the
// given side after collapse — the value a content collaborator should
// consult to inset its own content for correct vertical/horizontal centring
// (spec section 4.2, "propagation back into the cell").
func (r *Renderer) EffectiveBorder(cell *Cell, side borderSide) *Border {
	own := cell.Borders.Top
	switch side {
	case sideRight:
		own = cell.Borders.Right
	case sideBottom:
		own = cell.Borders.Bottom
	case sideLeft:
		own = cell.Borders.Left
	}
	return r.grids.effective(cell.Row, cell.Col, side, own)
}
