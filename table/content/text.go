// Package content provides ready-made table.ContentCollaborator
// implementations: plain shaped text, Markdown/MathML, raster images, and
// script-computed values.
package content

import (
	"bytes"
	"strings"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/prismpdf/pdfkit/ir/semantic"
	"github.com/prismpdf/pdfkit/table"
)

// TextCell lays out a run of plain text, word-wrapping to the cell's width
// and reporting Partial when the text overflows the cell's height. It shapes
// against an embedded font program when one is supplied (fonts.ShapeText's
// approach, mirrored here since table must not depend on the fonts
// package's PDF-object-graph plumbing), falling back to a flat
// average-width estimate otherwise.
type TextCell struct {
	Text     string
	Font     *semantic.Font
	FontSize float64
	Color    table.Color
	LineGap  float64 // extra leading beyond FontSize, defaults to 0.2*FontSize
}

func (c *TextCell) fontSize() float64 {
	if c.FontSize > 0 {
		return c.FontSize
	}
	return 12
}

func (c *TextCell) lineGap() float64 {
	if c.LineGap > 0 {
		return c.LineGap
	}
	return c.fontSize() * 0.2
}

// Layout implements table.ContentCollaborator.
func (c *TextCell) Layout(area table.Rect) table.CellLayoutResult {
	size := c.fontSize()
	lineHeight := size + c.lineGap()

	words := strings.Fields(c.Text)
	var lines []string
	if len(words) > 0 {
		current := words[0]
		for _, w := range words[1:] {
			if c.measure(current+" "+w) <= area.Width {
				current += " " + w
			} else {
				lines = append(lines, current)
				current = w
			}
		}
		lines = append(lines, current)
	}

	maxLines := int(area.Height / lineHeight)
	if maxLines < 0 {
		maxLines = 0
	}

	if len(lines) <= maxLines {
		h := float64(len(lines)) * lineHeight
		return table.CellLayoutResult{
			Status:       table.Full,
			OccupiedArea: table.Rect{X: area.X, Y: area.Top() - h, Width: area.Width, Height: h},
		}
	}
	if maxLines == 0 {
		return table.CellLayoutResult{Status: table.Nothing, Cause: &table.CauseOfNothing{Reason: "cell area has no room for even one text line"}}
	}

	fitted := &TextCell{Text: strings.Join(lines[:maxLines], " "), Font: c.Font, FontSize: c.FontSize, Color: c.Color, LineGap: c.LineGap}
	overflow := &TextCell{Text: strings.Join(lines[maxLines:], " "), Font: c.Font, FontSize: c.FontSize, Color: c.Color, LineGap: c.LineGap}
	h := float64(maxLines) * lineHeight
	return table.CellLayoutResult{
		Status:          table.Partial,
		OccupiedArea:    table.Rect{X: area.X, Y: area.Top() - h, Width: area.Width, Height: h},
		SplitContent:    fitted,
		OverflowContent: overflow,
	}
}

// measure returns the width of text at the cell's font size, shaping with
// go-text/typesetting when an embedded font program is available and
// falling back to a standard-width estimate otherwise.
func (c *TextCell) measure(text string) float64 {
	if c.Font == nil || c.Font.Descriptor == nil || len(c.Font.Descriptor.FontFile) == 0 {
		return float64(len(text)) * c.fontSize() * 0.5
	}
	return shapeWidth(text, c.Font, c.fontSize())
}

// shapeWidth is the real embedded-font measurement path, kept separate from
// measure's fallback so the fallback stays trivially correct even when
// shaping fails.
func shapeWidth(text string, font *semantic.Font, size float64) float64 {
	face, err := gofont.ParseTTF(bytes.NewReader(font.Descriptor.FontFile))
	if err != nil {
		return float64(len(text)) * size * 0.5
	}
	runes := []rune(text)
	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      face,
		Size:      fixed.Int26_6(size * 64),
		Language:  language.DefaultLanguage(),
	}
	out := shaper.Shape(input)
	var w float64
	for _, g := range out.Glyphs {
		w += float64(g.XAdvance) / 64.0
	}
	return w
}

// TextCell deliberately does not implement table.Drawable: the engine's
// Canvas contract only exposes line-stroking and marked-content
// bracketing, not text-drawing, since text drawing needs the font resource
// bookkeeping that lives in builder.PageBuilder. A PageBuilder-backed
// caller draws *TextCell content itself, keyed off the cellBoxes it reads
// back from a laid-out Renderer, the same way builder.DrawText takes a
// *semantic.Font directly rather than going through a black-box interface.
