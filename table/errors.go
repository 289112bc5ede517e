package table

import "fmt"

// HeaderFooterError reports that a header or footer could not fit in the
// initial layout area (spec section 7: "no partial commit").
type HeaderFooterError struct {
	Footer bool // false means header
	Cause  *CauseOfNothing
}

func (e *HeaderFooterError) Error() string {
	which := "header"
	if e.Footer {
		which = "footer"
	}
	reason := "unknown"
	if e.Cause != nil {
		reason = e.Cause.Reason
	}
	return fmt.Sprintf("table: %s does not fit initial area: %s", which, reason)
}
