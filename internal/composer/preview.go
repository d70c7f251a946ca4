// Package composer assembles selected questions into a printable paper.
package composer

import (
	"html"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
)

const (
	NoContent = "No content"
	lineBreak = "<br/>"
)

// ExtractDisplayText builds a best-effort HTML preview of a question. Text
// blocks contribute their text, lists their numbered items, math blocks a
// $$-delimited expression. Other kinds contribute nothing.
func ExtractDisplayText(doc document.Document) string {
	if len(doc.Blocks) == 0 {
		return NoContent
	}

	parts := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if part := blockPreview(b); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, lineBreak)
}

func blockPreview(b document.Block) string {
	switch b.Kind {
	case document.KindHeading:
		if b.Heading != nil {
			return b.Heading.Text
		}
	case document.KindParagraph:
		if b.Paragraph != nil {
			return b.Paragraph.Text
		}
	case document.KindList:
		if b.List != nil {
			items := make([]string, len(b.List.Items))
			for i, it := range b.List.Items {
				items[i] = strconv.Itoa(i+1) + ". " + it
			}
			return strings.Join(items, lineBreak)
		}
	case document.KindMath:
		if b.Math == nil {
			return ""
		}
		if b.Math.MathML != "" {
			return b.Math.MathML
		}
		if b.Math.Latex != "" {
			return "$$" + b.Math.Latex + "$$"
		}
	case document.KindTable, document.KindImage:
	default:
	}
	return ""
}

// ExtractCellText is the plain text counterpart of ExtractDisplayText used
// for spreadsheet cells: one part per line, inline markup and MathML tags
// dropped, LaTeX kept as source.
func ExtractCellText(doc document.Document) string {
	if len(doc.Blocks) == 0 {
		return NoContent
	}

	var parts []string
	for _, b := range doc.Blocks {
		for _, line := range blockLines(b) {
			if line = strings.TrimSpace(line); line != "" {
				parts = append(parts, line)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func blockLines(b document.Block) []string {
	switch b.Kind {
	case document.KindHeading:
		if b.Heading != nil {
			return []string{stripMarkup(b.Heading.Text)}
		}
	case document.KindParagraph:
		if b.Paragraph != nil {
			return []string{stripMarkup(b.Paragraph.Text)}
		}
	case document.KindList:
		if b.List != nil {
			lines := make([]string, len(b.List.Items))
			for i, it := range b.List.Items {
				lines[i] = strconv.Itoa(i+1) + ". " + stripMarkup(it)
			}
			return lines
		}
	case document.KindMath:
		if b.Math == nil {
			return nil
		}
		if b.Math.Latex != "" {
			return []string{b.Math.Latex}
		}
		return []string{stripMarkup(b.Math.MathML)}
	case document.KindTable, document.KindImage:
	default:
	}
	return nil
}

// stripMarkup removes tags and decodes entities. Editor text carries only
// inline formatting, so a tag scan is enough.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(html.UnescapeString(b.String()), "\u00a0", " ")
}
