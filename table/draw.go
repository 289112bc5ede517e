package table

// Canvas is the black-box drawing collaborator a Renderer strokes borders
// and dispatches cell content onto (spec section 6). Implementations wrap a
// page's content stream; table never touches a content stream operator
// directly, mirroring the way ContentCollaborator keeps the engine ignorant
// of font shaping or Markdown parsing.
type Canvas interface {
	// StrokeLine draws one straight segment with the given width and color.
	StrokeLine(x1, y1, x2, y2, width float64, color Color)

	// OpenArtifact/CloseArtifact bracket marked-content that must not appear
	// in the tagged structure tree (grid lines, decorative rules).
	OpenArtifact()
	CloseArtifact()

	// PushTag/PopTag bracket marked-content that belongs in the tagged
	// structure tree, tagged with mcid for a structure element to reference.
	PushTag(tag string, mcid int)
	PopTag()
}

// Drawable is the optional extension a ContentCollaborator implements when
// it can paint itself onto a Canvas. Collaborators that only ever measure
// (used from a fit-probe context) need not implement it.
type Drawable interface {
	Draw(canvas Canvas, area Rect)
}

// borderSegment is one coalesced run of equal borders ready to stroke as a
// single line (spec section 4.7's coalescing rule).
type borderSegment struct {
	x1, y1, x2, y2 float64
	border         *Border
}

// planHorizontalRun coalesces contiguous, equal borders along one horizontal
// boundary into the fewest possible strokes.
func planHorizontalRun(boundary []*Border, columnWidths []float64, originX, y float64) []borderSegment {
	var out []borderSegment
	x := originX
	i := 0
	for i < len(boundary) {
		b := boundary[i]
		start := x
		for i < len(boundary) && sameBorder(boundary[i], b) {
			x += columnWidths[i]
			i++
		}
		if b != nil {
			out = append(out, borderSegment{x1: start, y1: y, x2: x, y2: y, border: b})
		}
	}
	return out
}

// planVerticalRun is planHorizontalRun's transpose: boundary[r] is the
// border along row r (rows ordered top-to-bottom, row 0 topmost), so y walks
// downward from originY (the table's top edge) as r increases.
func planVerticalRun(boundary []*Border, rowHeights []float64, x, originY float64) []borderSegment {
	var out []borderSegment
	y := originY
	i := 0
	for i < len(boundary) {
		b := boundary[i]
		start := y
		for i < len(boundary) && sameBorder(boundary[i], b) {
			y -= rowHeights[i]
			i++
		}
		if b != nil {
			out = append(out, borderSegment{x1: x, y1: start, x2: x, y2: y, border: b})
		}
	}
	return out
}

func sameBorder(a, b *Border) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Width == b.Width && a.Style == b.Style && a.Color == b.Color
}

// Draw paints an already-laid-out renderer's borders and cell content onto
// canvas. It is a no-op unless the renderer holds a committed layout: Layout
// returned Full for it, or it is the Committed renderer of a Partial result
// (spec section 6: drawing only ever follows a committed layout pass).
func (r *Renderer) Draw(canvas Canvas) {
	if !r.laidOut {
		return
	}
	if r.headerRenderer != nil {
		r.headerRenderer.Draw(canvas)
	}

	r.drawBorders(canvas)
	r.drawContent(canvas)

	if r.footerRenderer != nil {
		r.footerRenderer.Draw(canvas)
	}
}

// drawBorders strokes interior borders first, then the four outer edges
// (H[0], H[last], V[0], V[last]) last so they sit on top of whatever
// interior border reached a corner first, with their endpoints extended by
// half the perpendicular border's width so corners mitre (spec section 4.7).
func (r *Renderer) drawBorders(canvas Canvas) {
	if r.grids == nil || len(r.heights) == 0 {
		return
	}
	canvas.OpenArtifact()
	defer canvas.CloseArtifact()

	originX := r.occupiedAreaBodyX()
	topY := r.occupiedAreaBodyTop()

	rowYs := make([]float64, len(r.heights)+1)
	rowYs[0] = topY
	for i, h := range r.heights {
		rowYs[i+1] = rowYs[i] - h
	}
	colXs := make([]float64, len(r.columnWidths)+1)
	colXs[0] = originX
	for i, w := range r.columnWidths {
		colXs[i+1] = colXs[i] + w
	}

	lastH := len(r.grids.H) - 1
	lastV := len(r.grids.V) - 1

	for i := 1; i < lastH; i++ {
		if i >= len(rowYs) {
			break
		}
		for _, seg := range planHorizontalRun(r.grids.H[i], r.columnWidths, originX, rowYs[i]) {
			canvas.StrokeLine(seg.x1, seg.y1, seg.x2, seg.y2, seg.border.Width, seg.border.Color)
		}
	}
	for c := 1; c < lastV; c++ {
		if c >= len(colXs) {
			break
		}
		for _, seg := range planVerticalRun(r.grids.V[c], r.heights, colXs[c], topY) {
			canvas.StrokeLine(seg.x1, seg.y1, seg.x2, seg.y2, seg.border.Width, seg.border.Color)
		}
	}

	leftW := outerEdgeWidth(r.grids.V, 0)
	rightW := outerEdgeWidth(r.grids.V, lastV)
	topW := outerEdgeWidth(r.grids.H, 0)
	bottomW := outerEdgeWidth(r.grids.H, lastH)

	r.drawMitredHorizontal(canvas, 0, originX, rowYs, leftW, rightW)
	r.drawMitredHorizontal(canvas, lastH, originX, rowYs, leftW, rightW)
	r.drawMitredVertical(canvas, 0, colXs, topY, topW, bottomW)
	r.drawMitredVertical(canvas, lastV, colXs, topY, topW, bottomW)
}

func (r *Renderer) drawMitredHorizontal(canvas Canvas, i int, originX float64, rowYs []float64, leftExt, rightExt float64) {
	if i < 0 || i >= len(r.grids.H) || i >= len(rowYs) {
		return
	}
	for _, seg := range planHorizontalRun(r.grids.H[i], r.columnWidths, originX, rowYs[i]) {
		canvas.StrokeLine(seg.x1-leftExt/2, seg.y1, seg.x2+rightExt/2, seg.y2, seg.border.Width, seg.border.Color)
	}
}

func (r *Renderer) drawMitredVertical(canvas Canvas, c int, colXs []float64, topY float64, topExt, bottomExt float64) {
	if c < 0 || c >= len(r.grids.V) || c >= len(colXs) {
		return
	}
	for _, seg := range planVerticalRun(r.grids.V[c], r.heights, colXs[c], topY) {
		canvas.StrokeLine(seg.x1, seg.y1+topExt/2, seg.x2, seg.y2-bottomExt/2, seg.border.Width, seg.border.Color)
	}
}

// outerEdgeWidth returns the width of the first non-nil border along a
// grid's outer boundary slice, used to size the mitre extension at corners.
func outerEdgeWidth(boundary [][]*Border, idx int) float64 {
	if idx < 0 || idx >= len(boundary) {
		return 0
	}
	for _, b := range boundary[idx] {
		if b != nil {
			return b.Width
		}
	}
	return 0
}

func (r *Renderer) drawContent(canvas Canvas) {
	for _, p := range r.cellBoxes {
		d, ok := p.cell.Content.(Drawable)
		if !ok {
			continue
		}
		canvas.PushTag("TD", cellMCID(p.cell))
		d.Draw(canvas, p.result.OccupiedArea)
		canvas.PopTag()
	}
}

// cellMCID derives a deterministic marked-content id from a cell's origin,
// stable across repeated Draw calls on the same renderer.
func cellMCID(c *Cell) int { return c.Row*100000 + c.Col }

// occupiedAreaBodyX/Top locate the body's own top-left corner within
// occupiedArea, accounting for the header/footer heights folded into it by
// attachHeaderFooter.
func (r *Renderer) occupiedAreaBodyX() float64 { return r.occupiedArea.X }

func (r *Renderer) occupiedAreaBodyTop() float64 {
	return r.occupiedArea.Top() - r.headerHeight
}
