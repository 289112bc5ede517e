package table

// layoutHeader lays out the model's header table (if any) against the top of
// box, per spec section 4.6: it repeats on every continuation page, and on
// the first page unless SkipFirstHeader is set. It returns the box shrunk by
// whatever height the header consumed, or a non-nil failure result if the
// header does not fit — per spec section 7, a header/footer failure never
// partially commits the table.
func (r *Renderer) layoutHeader(box Rect) (Rect, *LayoutResult) {
	if r.model.Header == nil {
		return box, nil
	}
	show := !r.isOriginalNonSplit || (r.firstOnPage && !r.model.SkipFirstHeader)
	if !show {
		return box, nil
	}

	hr, err := New(r.model.Header, WithLogger(r.opts.Logger))
	if err != nil {
		res := LayoutResult{Status: Nothing, Cause: &CauseOfNothing{Reason: err.Error()}}
		return box, &res
	}
	res := hr.Layout(Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height})
	if res.Status != Full {
		fail := LayoutResult{Status: Nothing, Cause: coalesceCause(res.Cause, "header does not fit")}
		return box, &fail
	}

	r.headerRenderer = hr
	r.headerHeight = res.Occupied.Height
	box.Height -= r.headerHeight
	return box, nil
}

// layoutFooter reserves space for the model's footer table (if any) at the
// bottom of box, probing it against the current box before the body ever
// runs. It returns the shrunk box, the rectangle the footer occupies (for
// later Move calls), and a non-nil failure result if the footer does not
// fit.
func (r *Renderer) layoutFooter(box Rect) (Rect, Rect, *LayoutResult) {
	var footerArea Rect
	if r.model.Footer == nil {
		return box, footerArea, nil
	}

	fr, err := New(r.model.Footer, WithLogger(r.opts.Logger))
	if err != nil {
		res := LayoutResult{Status: Nothing, Cause: &CauseOfNothing{Reason: err.Error()}}
		return box, footerArea, &res
	}
	res := fr.Layout(Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height})
	if res.Status != Full {
		fail := LayoutResult{Status: Nothing, Cause: coalesceCause(res.Cause, "footer does not fit")}
		return box, footerArea, &fail
	}

	r.footerRenderer = fr
	r.footerHeight = res.Occupied.Height
	footerArea = Rect{X: box.X, Y: box.Y, Width: box.Width, Height: r.footerHeight}
	fr.Move(0, footerArea.Y-res.Occupied.Y)
	box.Y += r.footerHeight
	box.Height -= r.footerHeight
	return box, footerArea, nil
}

// dropFooter undoes layoutFooter's reservation, used by SkipLastFooter
// elision (spec section 4.6) when the body turns out to fit without it.
func (r *Renderer) dropFooter(box Rect) Rect {
	box.Y -= r.footerHeight
	box.Height += r.footerHeight
	r.footerRenderer = nil
	r.footerHeight = 0
	return box
}

// attachHeaderFooter moves the already-laid-out header/footer renderers into
// place around a fully or partially committed body and grows the reported
// occupied area to include them, per spec section 4.6's closing bookkeeping.
func (r *Renderer) attachHeaderFooter(footerArea, area Rect) {
	if r.footerRenderer != nil {
		r.footerRenderer.Move(0, r.occupiedArea.Y-r.footerHeight-footerArea.Y)
		r.occupiedArea.Height += r.footerHeight
		r.occupiedArea.Y -= r.footerHeight
	}
	if r.headerRenderer != nil {
		r.headerRenderer.Move(0, r.occupiedArea.Top()-r.headerRenderer.occupiedArea.Y)
		r.occupiedArea.Height += r.headerHeight
	}
}
