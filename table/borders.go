package table

// borderGrids holds the two collapsing-border stores described in spec
// section 3: H is horizontal borders indexed [rowBoundary][col], V is
// vertical borders indexed [colBoundary][row]. Both grow monotonically
// during a single layout() call and are cleared on re-entry.
type borderGrids struct {
	H [][]*Border // len(H) == laidOutRows+1, len(H[i]) == columns
	V [][]*Border // len(V) == columns+1, len(V[c]) == laidOutRows

	// adopted records, per (row, col, side), the border a cell must draw
	// itself with after collapse — set only when the grid's resolved winner
	// differs from what the cell proposed. content collaborators consult
	// this (via Renderer.EffectiveBorder) to reserve the correct inset for
	// vertical centring, per spec section 4.2's "propagation back into the
	// cell".
	adopted map[cellSide]*Border
}

type cellSide struct {
	row, col int
	side     borderSide
}

type borderSide int

const (
	sideTop borderSide = iota
	sideRight
	sideBottom
	sideLeft
)

func newBorderGrids(columns int) *borderGrids {
	return &borderGrids{
		H:       [][]*Border{make([]*Border, columns)},
		V:       make([][]*Border, columns+1),
		adopted: make(map[cellSide]*Border),
	}
}

// collapse implements the pairwise rule from spec section 4.2: the wider
// border wins; ties prefer the cell border over the table border.
func collapse(cellBorder, tableBorder *Border) *Border {
	if cellBorder == nil {
		return tableBorder
	}
	if tableBorder == nil {
		return cellBorder
	}
	if cellBorder.Width < tableBorder.Width {
		return tableBorder
	}
	return cellBorder
}

// ensureHRow grows H (and its per-column slices) so that row index i exists.
func (g *borderGrids) ensureHRow(i, columns int) {
	for len(g.H) <= i {
		g.H = append(g.H, make([]*Border, columns))
	}
}

// ensureVCol grows V[c] so that row index r exists.
func (g *borderGrids) ensureVCol(c, r int) {
	for len(g.V[c]) <= r {
		g.V[c] = append(g.V[c], nil)
	}
}

// writeH resolves and stores the border at horizontal boundary i across
// columns [colStart, colEnd), returning the border the cell ends up with:
// proposed, or an existing border at least as wide that the cell must adopt
// (the caller compares it with what the cell declared to record cellSide
// adoption).
func (g *borderGrids) writeH(i, colStart, colEnd int, proposed *Border) *Border {
	columns := colEnd
	if len(g.H) > 0 && len(g.H[0]) > columns {
		columns = len(g.H[0])
	}
	g.ensureHRow(i, columns)
	winner := proposed
	for c := colStart; c < colEnd; c++ {
		existing := g.H[i][c]
		if existing == nil || proposed.width() > existing.width() {
			g.H[i][c] = proposed
		} else {
			// existing stands; the cell must adopt it instead of what it
			// proposed (spec 4.2: "otherwise the existing border stands and
			// the current cell must adopt the stored border").
			winner = existing
		}
	}
	return winner
}

// writeV resolves and stores the border at vertical boundary c across rows
// [rowStart, rowEnd).
func (g *borderGrids) writeV(c, rowStart, rowEnd int, proposed *Border) *Border {
	winner := proposed
	for r := rowStart; r < rowEnd; r++ {
		g.ensureVCol(c, r)
		existing := g.V[c][r]
		if existing == nil || proposed.width() > existing.width() {
			g.V[c][r] = proposed
		} else {
			winner = existing
		}
	}
	return winner
}

// recordAdoption stores the border a cell ends up drawing with on a given
// side, if it differs from what the cell originally declared.
func (g *borderGrids) recordAdoption(row, col int, side borderSide, b *Border) {
	g.adopted[cellSide{row, col, side}] = b
}

// effective returns the border a cell should reserve as inset on the given
// side: the adopted value if one was recorded, else the cell's own border.
func (g *borderGrids) effective(row, col int, side borderSide, own *Border) *Border {
	if b, ok := g.adopted[cellSide{row, col, side}]; ok {
		return b
	}
	return own
}

// clear resets the grids for a fresh layout() invocation on the same
// renderer (the keep-together retry path).
func (g *borderGrids) clear(columns int) {
	g.H = [][]*Border{make([]*Border, columns)}
	g.V = make([][]*Border, columns+1)
	g.adopted = make(map[cellSide]*Border)
}

// clipRows returns a copy of the grid slices restricted to horizontal
// boundaries [0, rows] and vertical rows [0, rows), used when partitioning a
// split renderer's inherited border state (spec section 4.4.3).
func (g *borderGrids) clipRows(rows int) *borderGrids {
	out := &borderGrids{adopted: make(map[cellSide]*Border)}
	end := rows + 1
	if end > len(g.H) {
		end = len(g.H)
	}
	out.H = append([][]*Border(nil), g.H[:end]...)
	out.V = make([][]*Border, len(g.V))
	for c := range g.V {
		lim := rows
		if lim > len(g.V[c]) {
			lim = len(g.V[c])
		}
		out.V[c] = append([]*Border(nil), g.V[c][:lim]...)
	}
	for k, v := range g.adopted {
		if k.row < rows {
			out.adopted[k] = v
		}
	}
	return out
}

// sliceRowsFrom returns a copy restricted to boundaries/rows shifted to start
// at rowOffset, renumbered to 0, used for the continuation renderer's border
// state.
func (g *borderGrids) sliceRowsFrom(rowOffset int) *borderGrids {
	out := &borderGrids{adopted: make(map[cellSide]*Border)}
	if rowOffset < len(g.H) {
		out.H = append([][]*Border(nil), g.H[rowOffset:]...)
	} else {
		out.H = [][]*Border{}
	}
	out.V = make([][]*Border, len(g.V))
	for c := range g.V {
		if rowOffset < len(g.V[c]) {
			out.V[c] = append([]*Border(nil), g.V[c][rowOffset:]...)
		}
	}
	for k, v := range g.adopted {
		if k.row >= rowOffset {
			out.adopted[cellSide{k.row - rowOffset, k.col, k.side}] = v
		}
	}
	return out
}
