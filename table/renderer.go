package table

import (
	"github.com/prismpdf/pdfkit/observability"
)

// Option configures a Renderer's behavioural properties using the
// functional-options idiom (spec section 6's "Configuration properties
// recognised on the model").
type Option func(*Options)

// Options holds the configuration properties spec section 6 recognises.
type Options struct {
	ForcedPlacement          bool
	KeepTogether             bool
	FillAvailableArea        bool
	FillAvailableAreaOnSplit bool
	MinHeight, MaxHeight, Height float64 // 0 means unset
	MarginTop, MarginBottom  float64
	Logger                   observability.Logger
}

func defaultOptions() Options {
	return Options{Logger: observability.NopLogger{}}
}

func WithForcedPlacement(v bool) Option { return func(o *Options) { o.ForcedPlacement = v } }
func WithKeepTogether(v bool) Option    { return func(o *Options) { o.KeepTogether = v } }
func WithFillAvailableArea(v bool) Option {
	return func(o *Options) { o.FillAvailableArea = v }
}
func WithFillAvailableAreaOnSplit(v bool) Option {
	return func(o *Options) { o.FillAvailableAreaOnSplit = v }
}
func WithMinHeight(h float64) Option { return func(o *Options) { o.MinHeight = h } }
func WithMaxHeight(h float64) Option { return func(o *Options) { o.MaxHeight = h } }
func WithHeight(h float64) Option    { return func(o *Options) { o.Height = h } }
func WithMargins(top, bottom float64) Option {
	return func(o *Options) { o.MarginTop = top; o.MarginBottom = bottom }
}
func WithLogger(l observability.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// LayoutResult is the top-level outcome of Renderer.Layout (spec section 6).
type LayoutResult struct {
	Status       Status
	Occupied     Rect
	Committed    *Renderer
	Continuation *Renderer
	Cause        *CauseOfNothing
}

// Renderer lays out one row range of a Table onto layout areas handed to it
// one at a time. See spec section 3 for the lifecycle rules.
type Renderer struct {
	model              *Table
	rangeStart         int // absolute row offset in the very first table this lineage descended from, for bookkeeping only
	isOriginalNonSplit bool
	firstOnPage        bool // true only for the very first layout() call site in the page composition

	opts Options

	headerRenderer *Renderer
	footerRenderer *Renderer

	heights      []float64
	columnWidths []float64
	grids        *borderGrids
	cellBoxes    map[cellKey]placedCell

	occupiedArea Rect
	headerHeight float64
	footerHeight float64

	laidOut bool
}

// New constructs a Renderer over the full row range of model. model must
// already validate (Build is called if not yet done).
func New(model *Table, opts ...Option) (*Renderer, error) {
	if err := model.Build(); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Renderer{
		model:              model,
		isOriginalNonSplit: true,
		firstOnPage:        true,
		opts:               o,
	}, nil
}

// resolveMargins implements SPEC_FULL.md's ambient margin-suppression rule:
// continuations never repeat a top margin, and incomplete tables never
// reserve a bottom margin (more rows are still coming).
func (r *Renderer) resolveMargins() (top, bottom float64) {
	top, bottom = r.opts.MarginTop, r.opts.MarginBottom
	if !r.isOriginalNonSplit {
		top = 0
	}
	if !r.model.IsComplete {
		bottom = 0
	}
	return top, bottom
}

// Layout runs one layout pass against area, per spec sections 4 and 6.
func (r *Renderer) Layout(area Rect) LayoutResult {
	if err := r.model.Build(); err != nil {
		return LayoutResult{Status: Nothing, Cause: &CauseOfNothing{Reason: err.Error()}}
	}

	marginTop, marginBottom := r.resolveMargins()
	box := Rect{
		X:      area.X,
		Y:      area.Y + marginBottom,
		Width:  area.Width,
		Height: area.Height - marginTop - marginBottom,
	}

	r.columnWidths = resolveColumnWidths(r.model.Widths, box.Width, r.model.Borders.Left.width(), r.model.Borders.Right.width())
	r.grids = newBorderGrids(r.model.Columns)
	r.cellBoxes = make(map[cellKey]placedCell)

	// Header and footer: spec section 4.6, extracted to headerfooter.go.
	var headerFail, footerFail *LayoutResult
	box, headerFail = r.layoutHeader(box)
	if headerFail != nil {
		return *headerFail
	}
	var footerArea Rect
	skipFooterNow := false
	box, footerArea, footerFail = r.layoutFooter(box)
	if footerFail != nil {
		return *footerFail
	}

bodyLayout:
	pr := r.layoutBody(box)

	if !pr.fullyCommitted && r.model.Footer != nil && r.model.IsComplete && r.model.SkipLastFooter && !skipFooterNow {
		if fitsWithoutFooter := r.canFitAllRows(Rect{X: box.X, Y: box.Y - r.footerHeight, Width: box.Width, Height: box.Height + r.footerHeight}); fitsWithoutFooter {
			skipFooterNow = true
			box = r.dropFooter(box)
			r.grids = newBorderGrids(r.model.Columns)
			goto bodyLayout
		}
	}

	if pr.fullyCommitted {
		r.heights = pr.heights
		r.applyPlacements(pr)
		r.finalizeBorders(len(r.heights))
		r.occupiedArea = r.computeOccupiedArea(box)
		if r.opts.FillAvailableArea {
			r.extendLastRow(box)
		}
		r.clampHeight()
		r.attachHeaderFooter(footerArea, area)
		r.laidOut = true
		return LayoutResult{Status: Full, Occupied: r.occupiedArea}
	}

	if pr.splitRowIndex == 0 && !pr.hasContent {
		if r.opts.ForcedPlacement {
			return r.commitForced(box, footerArea, area)
		}
		return LayoutResult{Status: Nothing, Cause: pr.cause}
	}

	if r.opts.KeepTogether && !r.opts.ForcedPlacement {
		return LayoutResult{Status: Nothing, Cause: pr.cause}
	}

	committed, continuation := r.buildSplit(pr, box)
	committed.headerRenderer = r.headerRenderer
	committed.headerHeight = r.headerHeight
	committed.footerRenderer = r.footerRenderer
	committed.footerHeight = r.footerHeight
	committed.attachHeaderFooter(footerArea, area)
	return LayoutResult{Status: Partial, Occupied: committed.occupiedArea, Committed: committed, Continuation: continuation}
}

func coalesceCause(c *CauseOfNothing, fallback string) *CauseOfNothing {
	if c != nil {
		return c
	}
	return &CauseOfNothing{Reason: fallback}
}

// commitForced emits row 0 (and only row 0) even though it reported Nothing,
// per spec section 7's ForcedPlacement policy.
func (r *Renderer) commitForced(box Rect, footerArea, area Rect) LayoutResult {
	// Re-run the row-0 dispatch once more, this time accepting whatever it
	// produces regardless of status, and clamp any negative height to zero
	// so downstream height math stays sane.
	outcome := r.dispatchRow(r.model, r.grids, nil, 0, box, box.Height)
	h := outcome.rowHeight
	if h < 0 {
		h = 0
	}
	r.heights = []float64{h}
	for _, p := range outcome.placed {
		r.cellBoxes[keyOf(p.cell)] = p
	}
	r.finalizeBorders(1)
	r.occupiedArea = r.computeOccupiedArea(box)
	r.attachHeaderFooter(footerArea, area)
	r.laidOut = true
	return LayoutResult{Status: Full, Occupied: r.occupiedArea}
}

// Move translates the renderer's recorded occupied area and its header and
// footer uniformly (spec section 6).
func (r *Renderer) Move(dx, dy float64) {
	r.occupiedArea.X += dx
	r.occupiedArea.Y += dy
	for k, p := range r.cellBoxes {
		p.result.OccupiedArea.X += dx
		p.result.OccupiedArea.Y += dy
		r.cellBoxes[k] = p
	}
	if r.headerRenderer != nil {
		r.headerRenderer.Move(dx, dy)
	}
	if r.footerRenderer != nil {
		r.footerRenderer.Move(dx, dy)
	}
}

// OccupiedArea returns the rectangle this (already laid-out) renderer
// consumed.
func (r *Renderer) OccupiedArea() Rect { return r.occupiedArea }

// Model returns the table model this renderer was built over.
func (r *Renderer) Model() *Table { return r.model }
