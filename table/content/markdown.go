package content

import (
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/prismpdf/pdfkit/ir/semantic"
	"github.com/prismpdf/pdfkit/table"
)

// mdLine is one already-wrapped physical line ready to draw, tagged with the
// font size it renders at (headings render larger, mirroring
// layout.Engine.renderMarkdownHeader's size scale).
type mdLine struct {
	text     string
	fontSize float64
	isMath   bool // rendered via goldmark-treeblood, opaque MathML payload
}

// MarkdownCell renders a Markdown fragment — headings, paragraphs, list
// items, and inline math delimited with $...$ — into a cell, wrapping to
// its width and reporting Partial on vertical overflow. Grounded on
// layout.Engine's goldmark AST walk (layout/markdown.go) and its LaTeX path
// (layout/latex.go), generalized here to the black-box ContentCollaborator
// contract instead of layout.Engine's page-cursor model.
type MarkdownCell struct {
	Source   string
	Font     *semantic.Font
	FontSize float64
	Color    table.Color

	lines []mdLine // populated by prepare(); empty until first Layout call
}

func (c *MarkdownCell) fontSize() float64 {
	if c.FontSize > 0 {
		return c.FontSize
	}
	return 12
}

// prepare parses Source into flat, unwrapped blocks once. Re-parsing a
// MarkdownCell built as another cell's overflow (Source already empty,
// lines already populated) is a no-op.
func (c *MarkdownCell) prepare() {
	if c.lines != nil || c.Source == "" {
		return
	}
	md := goldmark.New(goldmark.WithExtensions(treeblood.MathML()))
	src := []byte(c.Source)
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var blocks []mdLine
	walkMarkdownBlocks(doc, src, c.fontSize(), &blocks)
	c.lines = blocks
}

func walkMarkdownBlocks(node ast.Node, src []byte, base float64, out *[]mdLine) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			size := base * 1.25
			switch n.Level {
			case 1:
				size = base * 2.0
			case 2:
				size = base * 1.5
			}
			*out = append(*out, mdLine{text: string(n.Text(src)), fontSize: size})
		case *ast.Paragraph:
			text := paragraphText(n, src)
			if math, ok := extractMath(text); ok {
				*out = append(*out, mdLine{text: math, fontSize: base, isMath: true})
			} else {
				*out = append(*out, mdLine{text: text, fontSize: base})
			}
		case *ast.List:
			walkMarkdownBlocks(n, src, base, out)
		case *ast.ListItem:
			text := "• " + listItemText(n, src)
			*out = append(*out, mdLine{text: text, fontSize: base})
		}
	}
}

func paragraphText(n *ast.Paragraph, src []byte) string {
	var sb strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		sb.WriteString(string(child.Text(src)))
	}
	return sb.String()
}

func listItemText(n *ast.ListItem, src []byte) string {
	if child := n.FirstChild(); child != nil {
		return string(child.Text(src))
	}
	return ""
}

// extractMath recognises a paragraph that is entirely a $$...$$ or $...$
// span, the same delimiter convention layout.Engine.RenderLaTeX wraps
// around raw LaTeX before handing it to goldmark-treeblood.
func extractMath(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "$$") && strings.HasSuffix(t, "$$") && len(t) > 4 {
		return t, true
	}
	if strings.HasPrefix(t, "$") && strings.HasSuffix(t, "$") && len(t) > 2 {
		return t, true
	}
	return "", false
}

// Layout implements table.ContentCollaborator.
func (c *MarkdownCell) Layout(area table.Rect) table.CellLayoutResult {
	c.prepare()

	type wrapped struct {
		text     string
		fontSize float64
	}
	var physical []wrapped
	for _, blk := range c.lines {
		if blk.isMath {
			physical = append(physical, wrapped{text: blk.text, fontSize: blk.fontSize})
			continue
		}
		words := strings.Fields(blk.text)
		if len(words) == 0 {
			continue
		}
		current := words[0]
		for _, w := range words[1:] {
			if measurePlain(current+" "+w, blk.fontSize) <= area.Width {
				current += " " + w
			} else {
				physical = append(physical, wrapped{text: current, fontSize: blk.fontSize})
				current = w
			}
		}
		physical = append(physical, wrapped{text: current, fontSize: blk.fontSize})
	}

	var total float64
	fit := 0
	for _, p := range physical {
		h := p.fontSize * 1.2
		if total+h > area.Height {
			break
		}
		total += h
		fit++
	}

	if fit == len(physical) {
		return table.CellLayoutResult{
			Status:       table.Full,
			OccupiedArea: table.Rect{X: area.X, Y: area.Top() - total, Width: area.Width, Height: total},
		}
	}
	if fit == 0 {
		return table.CellLayoutResult{Status: table.Nothing, Cause: &table.CauseOfNothing{Reason: "cell area has no room for even one rendered block"}}
	}

	fitLines := make([]mdLine, fit)
	for i := 0; i < fit; i++ {
		fitLines[i] = mdLine{text: physical[i].text, fontSize: physical[i].fontSize}
	}
	overflowLines := make([]mdLine, len(physical)-fit)
	for i := fit; i < len(physical); i++ {
		overflowLines[i-fit] = mdLine{text: physical[i].text, fontSize: physical[i].fontSize}
	}

	return table.CellLayoutResult{
		Status:          table.Partial,
		OccupiedArea:    table.Rect{X: area.X, Y: area.Top() - total, Width: area.Width, Height: total},
		SplitContent:    &MarkdownCell{Font: c.Font, FontSize: c.FontSize, Color: c.Color, lines: fitLines},
		OverflowContent: &MarkdownCell{Font: c.Font, FontSize: c.FontSize, Color: c.Color, lines: overflowLines},
	}
}

func measurePlain(text string, size float64) float64 {
	return float64(len(text)) * size * 0.5
}
