package builder

import (
	"fmt"

	"github.com/prismpdf/pdfkit/table"
)

// RenderTable paginates model across pb and, if the table does not fit in
// area, however many further pages nextArea hands back, drawing each
// committed page's borders and content through a tableCanvas built over the
// PageBuilder in play at that point.
//
// nextArea is invoked once per additional page the table needs. It receives
// the PDFBuilder the previous page was Finish()ed onto and must return a
// fresh PageBuilder (typically pdf.NewPage(w, h) with any repeated page
// furniture already drawn) plus the layout box available to the table on
// that page.
func RenderTable(pb PageBuilder, model *table.Table, area table.Rect, opts []table.Option, nextArea func(pdf PDFBuilder) (PageBuilder, table.Rect)) (PageBuilder, error) {
	r, err := table.New(model, opts...)
	if err != nil {
		return pb, fmt.Errorf("table: %w", err)
	}

	for {
		res := r.Layout(area)
		switch res.Status {
		case table.Full:
			r.Draw(NewTableCanvas(pb))
			return pb, nil
		case table.Partial:
			res.Committed.Draw(NewTableCanvas(pb))
			pb, area = nextArea(pb.Finish())
			r = res.Continuation
		default:
			return pb, fmt.Errorf("table: does not fit: %s", causeReason(res.Cause))
		}
	}
}

func causeReason(c *table.CauseOfNothing) string {
	if c == nil {
		return "no cause reported"
	}
	return c.Reason
}
