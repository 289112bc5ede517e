package table

// rowPlacementResult is the outcome of trying to place every row of a
// renderer's body against one layout box (spec section 4.3/4.4).
type rowPlacementResult struct {
	fullyCommitted bool
	heights        []float64
	placed         map[cellKey]placedCell
	splitRowIndex  int
	hasContent     bool
	cause          *CauseOfNothing
}

// layoutBody runs the per-row dispatch loop of spec section 4.3 until every
// row is placed or one fails to fit.
func (r *Renderer) layoutBody(box Rect) rowPlacementResult {
	var heights []float64
	placed := make(map[cellKey]placedCell)

	for row := 0; row < r.model.RowCount(); row++ {
		cursorTop := box.Top() - sumHeights(heights, 0, row)
		remaining := cursorTop - box.Y
		if remaining <= 0 {
			return rowPlacementResult{
				heights:       heights,
				placed:        placed,
				splitRowIndex: row,
				hasContent:    false,
				cause:         &CauseOfNothing{Reason: "no room left in the layout area"},
			}
		}

		outcome := r.dispatchRow(r.model, r.grids, heights, row, box, remaining)
		for _, p := range outcome.placed {
			placed[keyOf(p.cell)] = p
		}
		if !outcome.fits {
			hasContent := false
			var cause *CauseOfNothing
			for _, p := range outcome.placed {
				if p.result.Status == Partial {
					hasContent = true
				}
				if p.result.Status == Nothing {
					cause = coalesceCause(p.result.Cause, "cell reported NOTHING")
					cause.Cell = p.cell
				}
			}
			if hasContent && cause != nil {
				// Mixed Partial+Nothing in the same row: fold the whole row
				// to the continuation rather than partially committing it
				// (documented simplification, see DESIGN.md).
				hasContent = false
			}
			if cause == nil {
				cause = &CauseOfNothing{Reason: "cell reported PARTIAL"}
			}
			if hasContent {
				r.dispatchLateArrivals(row, box, remaining, placed)
				heights = append(heights, outcome.rowHeight)
			}
			return rowPlacementResult{
				heights:       heights,
				placed:        placed,
				splitRowIndex: row,
				hasContent:    hasContent,
				cause:         cause,
			}
		}
		heights = append(heights, outcome.rowHeight)
	}
	return rowPlacementResult{fullyCommitted: true, heights: heights, placed: placed}
}

// applyPlacements records a fully-committed body's placements onto the
// renderer.
func (r *Renderer) applyPlacements(pr rowPlacementResult) {
	for k, v := range pr.placed {
		r.cellBoxes[k] = v
	}
}

// finalizeBorders resolves the table's own top and bottom edge borders into
// H[0] and H[rowCount], now that the committed row count is known. Interior
// and left/right edges are already resolved per-cell during dispatch.
func (r *Renderer) finalizeBorders(rowCount int) {
	if len(r.grids.H) == 0 {
		return
	}
	for c := 0; c < r.model.Columns; c++ {
		r.grids.H[0][c] = collapse(r.grids.H[0][c], r.model.Borders.Top)
	}
	if rowCount < len(r.grids.H) {
		for c := 0; c < r.model.Columns; c++ {
			r.grids.H[rowCount][c] = collapse(r.grids.H[rowCount][c], r.model.Borders.Bottom)
		}
	}
}

// computeOccupiedArea implements testable property 1: the body's own height
// is the sum of committed row heights plus half of the table's own declared
// top/bottom border (its interior cell borders never grow row height — see
// DESIGN.md's resolution of the ambiguous half-border bookkeeping).
func (r *Renderer) computeOccupiedArea(box Rect) Rect {
	var h float64
	for _, rh := range r.heights {
		h += rh
	}
	h += (r.model.Borders.Top.width() + r.model.Borders.Bottom.width()) / 2
	return Rect{X: box.X, Y: box.Top() - h, Width: box.Width, Height: h}
}

// canFitAllRows is the pure fit probe of spec section 4.5, used by
// last-footer elision. It never mutates renderer state.
func (r *Renderer) canFitAllRows(box Rect) bool {
	scratchGrids := newBorderGrids(r.model.Columns)
	var heights []float64
	for row := 0; row < r.model.RowCount(); row++ {
		cursorTop := box.Top() - sumHeights(heights, 0, row)
		remaining := cursorTop - box.Y
		if remaining <= 0 {
			return false
		}
		outcome := r.dispatchRow(r.model, scratchGrids, heights, row, box, remaining)
		if !outcome.fits {
			return false
		}
		heights = append(heights, outcome.rowHeight)
	}
	return true
}

// extendLastRow implements FillAvailableArea (SPEC_FULL.md) for a fully
// committed body: the last committed row grows to consume whatever height
// remains in box, and its cells' occupied boxes are re-anchored per their
// VAlign so content does not silently stretch. It is not called on the
// split path, so FillAvailableAreaOnSplit has no effect on layout.
func (r *Renderer) extendLastRow(box Rect) {
	if len(r.heights) == 0 {
		return
	}
	residual := r.occupiedArea.Y - box.Y
	if residual <= 0 {
		return
	}
	lastRow := len(r.heights) - 1
	r.heights[lastRow] += residual
	r.occupiedArea.Y -= residual
	r.occupiedArea.Height += residual

	for k, p := range r.cellBoxes {
		if p.cell.EndRow() != lastRow {
			continue
		}
		switch p.cell.VAlign {
		case AlignBottom:
			p.result.OccupiedArea.Y -= residual
		case AlignMiddle:
			p.result.OccupiedArea.Y -= residual / 2
		}
		r.cellBoxes[k] = p
	}
}

// clampHeight applies the Height/MinHeight/MaxHeight bounds from
// SPEC_FULL.md, adjusting occupiedArea while keeping its top edge fixed.
func (r *Renderer) clampHeight() {
	target := r.occupiedArea.Height
	if r.opts.Height > 0 {
		target = r.opts.Height
	}
	if r.opts.MinHeight > 0 && target < r.opts.MinHeight {
		target = r.opts.MinHeight
	}
	if r.opts.MaxHeight > 0 && target > r.opts.MaxHeight {
		target = r.opts.MaxHeight
	}
	if target == r.occupiedArea.Height {
		return
	}
	top := r.occupiedArea.Top()
	r.occupiedArea.Height = target
	r.occupiedArea.Y = top - target
}
