// Package table implements the paginated table layout engine: it decides how
// much of a logical table fits into a rectangular layout area, where every
// cell lands, which borders collapse and survive, and what remains as a
// continuation table for the next area.
package table

import (
	"fmt"
)

// VAlign controls vertical alignment of cell content within its box.
type VAlign int

const (
	AlignTop VAlign = iota
	AlignMiddle
	AlignBottom
)

// WidthUnit tags a column width as either a percentage of the table width or
// an absolute point value.
type WidthUnit int

const (
	UnitPercent WidthUnit = iota
	UnitPoint
)

// Width is a tagged column-width value; see the column-width solver in
// columns.go.
type Width struct {
	Unit  WidthUnit
	Value float64
}

// Percent constructs a percentage-based column width.
func Percent(p float64) Width { return Width{Unit: UnitPercent, Value: p} }

// Point constructs an absolute-point column width.
func Point(q float64) Width { return Width{Unit: UnitPoint, Value: q} }

// BorderStyle enumerates the stroke pattern of a border side. Only Solid is
// interpreted by the drawing planner; others are reserved for future style
// support and are drawn solid today.
type BorderStyle int

const (
	BorderSolid BorderStyle = iota
	BorderDashed
	BorderDotted
)

// Border describes a single stroked edge. A nil *Border (or a Border with
// Width <= 0) is the "no border" sentinel referenced throughout spec section
// 4.2.
type Border struct {
	Width float64
	Style BorderStyle
	Color Color
}

// Color is a plain RGB color, mirroring builder.Color without introducing a
// dependency from table on builder (table is the lower-level engine that
// builder's PageBuilder will eventually delegate to).
type Color struct {
	R, G, B float64
}

// NewBorder is the usual constructor; a zero or negative width yields nil,
// the "no border" value.
func NewBorder(width float64, style BorderStyle, color Color) *Border {
	if width <= 0 {
		return nil
	}
	return &Border{Width: width, Style: style, Color: color}
}

func (b *Border) width() float64 {
	if b == nil {
		return 0
	}
	return b.Width
}

// Borders bundles the four per-side borders shared by both Table and Cell.
type Borders struct {
	Top, Right, Bottom, Left *Border
}

// Cell is one input cell of the logical table. Cells are immutable once the
// table is constructed; the renderer never mutates a Cell, only its own
// bookkeeping (see the adopted-border side table in borders.go).
type Cell struct {
	Row, Col       int
	RowSpan        int
	ColSpan        int
	Borders        Borders
	VAlign         VAlign
	Content        ContentCollaborator
	KeepTogether   bool // forbids splitting this cell's content across pages
}

// EndRow is the last row this cell occupies (its grid anchor row).
func (c *Cell) EndRow() int { return c.Row + c.RowSpan - 1 }

// EndCol is one past the last column this cell occupies.
func (c *Cell) EndCol() int { return c.Col + c.ColSpan }

// Row is one logical row of input cells. Cells whose Row/RowSpan places
// their origin in a different row still belong to the table, not the row —
// Row here is purely a construction convenience; the grid in model.go's
// Table.grid is the structure the engine actually walks.
type Row struct {
	Cells []*Cell
}

// Table is the immutable input to a Renderer.
type Table struct {
	Columns int
	Rows    []Row
	Widths  []Width // len == Columns

	Header *Table
	Footer *Table

	Borders Borders

	IsComplete      bool
	SkipFirstHeader bool
	SkipLastFooter  bool

	// grid is built once by Build and cached; index [row][col].
	grid [][]*Cell
}

// RowCount is the number of logical rows in the table.
func (t *Table) RowCount() int { return len(t.Rows) }

// InvalidCellError names the offending cell for a fail-fast input violation
// (spec section 7).
type InvalidCellError struct {
	Row, Col int
	Reason   string
}

func (e *InvalidCellError) Error() string {
	return fmt.Sprintf("table: invalid cell at (row=%d, col=%d): %s", e.Row, e.Col, e.Reason)
}

// Build validates the table and materializes the bottom-left-anchored cell
// grid described in spec section 3. It must be called once before a
// Renderer is constructed; New calls it if the grid is not yet built.
func (t *Table) Build() error {
	if t.grid != nil {
		return nil
	}
	if t.Columns <= 0 {
		return &InvalidCellError{Reason: "table has zero or negative column count"}
	}
	if len(t.Widths) != t.Columns {
		return &InvalidCellError{Reason: "width list length does not match column count"}
	}
	for _, w := range t.Widths {
		if w.Unit == UnitPercent && w.Value <= 0 {
			return &InvalidCellError{Reason: "zero or negative percent column width"}
		}
		if w.Unit == UnitPoint && w.Value <= 0 {
			return &InvalidCellError{Reason: "zero or negative point column width"}
		}
	}

	grid := make([][]*Cell, len(t.Rows))
	for r := range grid {
		grid[r] = make([]*Cell, t.Columns)
	}
	occupied := make([][]bool, len(t.Rows))
	for r := range occupied {
		occupied[r] = make([]bool, t.Columns)
	}

	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			if cell.RowSpan < 1 {
				cell.RowSpan = 1
			}
			if cell.ColSpan < 1 {
				cell.ColSpan = 1
			}
			if cell.Row < 0 || cell.Col < 0 {
				return &InvalidCellError{Row: cell.Row, Col: cell.Col, Reason: "negative origin"}
			}
			if cell.Row+cell.RowSpan > len(t.Rows) {
				return &InvalidCellError{Row: cell.Row, Col: cell.Col, Reason: "rowspan exceeds row count"}
			}
			if cell.Col+cell.ColSpan > t.Columns {
				return &InvalidCellError{Row: cell.Row, Col: cell.Col, Reason: "colspan exceeds column count"}
			}
			// A cell claims every row it spans, not just the anchor row at
			// the bottom: two cells overlapping in a non-anchor row (e.g. a
			// rowspan-3 cell and a rowspan-1 cell one row below its origin)
			// must still fail here.
			for r := cell.Row; r <= cell.EndRow(); r++ {
				for c := cell.Col; c < cell.EndCol(); c++ {
					if occupied[r][c] {
						return &InvalidCellError{Row: cell.Row, Col: cell.Col, Reason: "overlaps another cell"}
					}
					occupied[r][c] = true
				}
			}
			anchorRow := cell.EndRow()
			for c := cell.Col; c < cell.EndCol(); c++ {
				grid[anchorRow][c] = cell
			}
		}
	}

	if t.Header != nil {
		if t.Header.Header != nil {
			return &InvalidCellError{Reason: "header table must not itself have a header"}
		}
		if err := t.Header.Build(); err != nil {
			return err
		}
	}
	if t.Footer != nil {
		if err := t.Footer.Build(); err != nil {
			return err
		}
	}

	t.grid = grid
	return nil
}

// cellAt returns the cell anchored at (row, col), or nil if that slot is
// empty or covered by a span whose anchor lies elsewhere.
func (t *Table) cellAt(row, col int) *Cell {
	if row < 0 || row >= len(t.grid) || col < 0 || col >= t.Columns {
		return nil
	}
	return t.grid[row][col]
}
