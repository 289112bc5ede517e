package builder

import (
	"github.com/prismpdf/pdfkit/ir/semantic"
	"github.com/prismpdf/pdfkit/table"
)

// tableCanvas adapts a PageBuilder to table.Canvas, letting a
// table.Renderer draw its resolved borders and content directly onto a
// page's content stream via the same operator-append idiom DrawText and
// DrawLine already use.
type tableCanvas struct {
	pb *pageBuilderImpl
}

// NewTableCanvas returns a table.Canvas backed by pb, for use with
// table.Renderer.Draw. It returns nil if pb is not this package's own
// PageBuilder implementation.
func NewTableCanvas(pb PageBuilder) table.Canvas {
	impl, ok := pb.(*pageBuilderImpl)
	if !ok {
		return nil
	}
	return &tableCanvas{pb: impl}
}

func (c *tableCanvas) StrokeLine(x1, y1, x2, y2, width float64, color table.Color) {
	c.pb.DrawLine(x1, y1, x2, y2, LineOptions{
		StrokeColor: Color{R: color.R, G: color.G, B: color.B},
		LineWidth:   width,
	})
}

// OpenArtifact/CloseArtifact bracket grid-line strokes as PDF Artifact
// marked content, keeping decorative rules out of the tagged structure tree
// the way DrawText's BDC/EMC bracketing keeps real content in it.
func (c *tableCanvas) OpenArtifact() {
	ops := c.pb.ensureContentOps()
	*ops = append(*ops, semantic.Operation{
		Operator: "BDC",
		Operands: []semantic.Operand{
			semantic.NameOperand{Value: "Artifact"},
			semantic.DictOperand{Values: map[string]semantic.Operand{
				"Type": semantic.NameOperand{Value: "Layout"},
			}},
		},
	})
}

func (c *tableCanvas) CloseArtifact() {
	*c.pb.ensureContentOps() = append(*c.pb.ensureContentOps(), semantic.Operation{Operator: "EMC"})
}

func (c *tableCanvas) PushTag(tag string, mcid int) {
	ops := c.pb.ensureContentOps()
	*ops = append(*ops, semantic.Operation{
		Operator: "BDC",
		Operands: []semantic.Operand{
			semantic.NameOperand{Value: tag},
			semantic.DictOperand{Values: map[string]semantic.Operand{
				"MCID": semantic.NumberOperand{Value: float64(mcid)},
			}},
		},
	})
}

func (c *tableCanvas) PopTag() {
	*c.pb.ensureContentOps() = append(*c.pb.ensureContentOps(), semantic.Operation{Operator: "EMC"})
}
