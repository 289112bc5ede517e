package table

// resolveColumnWidths implements spec section 4.1's two-phase percent-then-point
// solver. tableWidth is the full table width including its own border; the
// caller passes the table's own left/right border widths so the interior can
// be reserved exactly.
//
// Percent columns are resolved first against tableWidth directly, so they
// keep their visual weight regardless of how many point columns are also
// present. Point columns then split whatever width percent columns left
// over, proportional to their own point value. Finally every width is
// rescaled by a single uniform factor so the sum matches the drawable
// interior (tableWidth minus half of each edge border, the other half sitting
// outside the interior per spec section 3's occupiedArea invariant).
func resolveColumnWidths(widths []Width, tableWidth, leftBorderWidth, rightBorderWidth float64) []float64 {
	n := len(widths)
	out := make([]float64, n)

	var pctSum, pointSum float64
	for _, w := range widths {
		switch w.Unit {
		case UnitPercent:
			pctSum += tableWidth * w.Value / 100
		case UnitPoint:
			pointSum += w.Value
		}
	}

	freeWidth := tableWidth - pctSum
	if freeWidth < 0 {
		freeWidth = 0
	}

	for i, w := range widths {
		switch w.Unit {
		case UnitPercent:
			out[i] = tableWidth * w.Value / 100
		case UnitPoint:
			if pointSum > 0 {
				out[i] = freeWidth * w.Value / pointSum
			}
		}
	}

	interior := tableWidth - (leftBorderWidth+rightBorderWidth)/2
	var sum float64
	for _, w := range out {
		sum += w
	}
	if sum > 0 && interior > 0 {
		factor := interior / sum
		for i := range out {
			out[i] *= factor
		}
	}
	return out
}

// columnOffset returns the x-offset of column col relative to the table's
// left interior edge, and the width spanned by [col, col+colspan).
func columnOffset(columnWidths []float64, col, colspan int) (offset, width float64) {
	for i := 0; i < col; i++ {
		offset += columnWidths[i]
	}
	for i := col; i < col+colspan; i++ {
		width += columnWidths[i]
	}
	return offset, width
}
