package content

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/prismpdf/pdfkit/table"
)

const formulaTimeout = 2 * time.Second

// ComputedCell evaluates a JavaScript expression against a per-row scope and
// renders the result as text, for spreadsheet-style computed columns
// (totals, formatted derived values). Grounded on
// scripting/goja_impl.go's pattern of a context-bounded goja.Runtime
// invocation, generalized from AcroForm field scripts to arbitrary
// row-scoped formulas.
type ComputedCell struct {
	Script   string
	Scope    map[string]interface{} // exposed as global bindings before Script runs
	FontSize float64

	text *TextCell // the rendered result, computed lazily by evaluate()
}

// evaluate runs Script once, formatting its result through fmt.Sprint the
// way a spreadsheet cell falls back to a default numeric/string format.
func (c *ComputedCell) evaluate() *TextCell {
	if c.text != nil {
		return c.text
	}

	vm := goja.New()
	for k, v := range c.Scope {
		if err := vm.Set(k, v); err != nil {
			c.text = &TextCell{Text: fmt.Sprintf("#SCOPE-ERROR: %v", err), FontSize: c.FontSize}
			return c.text
		}
	}

	val, err := runWithTimeout(vm, c.Script)
	if err != nil {
		c.text = &TextCell{Text: fmt.Sprintf("#ERROR: %v", err), FontSize: c.FontSize}
		return c.text
	}
	c.text = &TextCell{Text: fmt.Sprint(val), FontSize: c.FontSize}
	return c.text
}

// runWithTimeout mirrors scripting.GojaEngine.Execute's interrupt-on-cancel
// pattern, bounding every formula evaluation so a runaway script can never
// stall a layout pass.
func runWithTimeout(vm *goja.Runtime, script string) (interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), formulaTimeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := vm.RunString(script)
	if err != nil {
		if ie, ok := err.(*goja.InterruptedError); ok {
			if cause := ie.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

// Layout implements table.ContentCollaborator by delegating to the rendered
// result's TextCell layout.
func (c *ComputedCell) Layout(area table.Rect) table.CellLayoutResult {
	res := c.evaluate().Layout(area)
	if res.Status == table.Partial {
		// A formula result never splits mid-value; treat any overflow as a
		// hard failure for this area instead of handing back half a number.
		return table.CellLayoutResult{Status: table.Nothing, Cause: &table.CauseOfNothing{Reason: "computed cell result does not fit in the cell area"}}
	}
	return res
}
