package table

// Rect is an axis-aligned rectangle in PDF user space (origin bottom-left),
// matching semantic.Rectangle's LLX/LLY/URX/URY convention but expressed as
// width/height + origin, which is what the layout loop actually accumulates.
type Rect struct {
	X, Y          float64 // bottom-left corner
	Width, Height float64
}

// Top returns the y-coordinate of the rectangle's top edge.
func (r Rect) Top() float64 { return r.Y + r.Height }

// Right returns the x-coordinate of the rectangle's right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Status is the outcome of a single layout() call, mirroring spec section 6.
type Status int

const (
	Full Status = iota
	Partial
	Nothing
)

func (s Status) String() string {
	switch s {
	case Full:
		return "FULL"
	case Partial:
		return "PARTIAL"
	default:
		return "NOTHING"
	}
}

// CauseOfNothing explains a NOTHING result, required by spec section 6 ("must
// report causeOfNothing when returning NOTHING").
type CauseOfNothing struct {
	Cell   *Cell
	Reason string
}

// CellLayoutResult is what the content collaborator returns from layout().
// SplitContent/OverflowContent are only populated on Partial, and are opaque
// continuations of the same ContentCollaborator handed back to the engine so
// it can re-dispatch them into the continuation renderer.
type CellLayoutResult struct {
	Status         Status
	OccupiedArea   Rect
	SplitContent   ContentCollaborator
	OverflowContent ContentCollaborator
	Cause          *CauseOfNothing
}

// ContentCollaborator is the external, black-box cell content layout
// algorithm consumed by the engine (spec section 6). Implementations live in
// table/content; callers may also supply their own.
type ContentCollaborator interface {
	// Layout must honour area.Width exactly and must not exceed area.Height
	// when returning Full. It must be side-effect free to call more than
	// once with the same area (used by the fit probe canFitAllRows in
	// body.go).
	Layout(area Rect) CellLayoutResult
}

// FuncCollaborator adapts a plain function to ContentCollaborator, the way
// http.HandlerFunc adapts a function to http.Handler. Handy for tests and for
// trivial always-fits content.
type FuncCollaborator func(area Rect) CellLayoutResult

func (f FuncCollaborator) Layout(area Rect) CellLayoutResult { return f(area) }
