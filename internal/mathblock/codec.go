// Package mathblock maps raw formula input to the stored math block form
// and to a render description for the client-side typesetter.
package mathblock

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
)

// NoFormulaHTML is rendered in place of an empty formula.
const NoFormulaHTML = `<span class="math-placeholder">No equation</span>`

type Classification struct {
	IsMathML bool
}

// Classify reports whether raw is MathML markup. Anything else, including
// empty input, is treated as LaTeX.
func Classify(raw string) Classification {
	trimmed := strings.TrimSpace(raw)
	return Classification{
		IsMathML: strings.HasPrefix(trimmed, "<") && strings.Contains(strings.ToLower(trimmed), "<math"),
	}
}

// Normalize stores trimmed input in exactly one notation field.
func Normalize(raw string, display bool) document.MathData {
	trimmed := strings.TrimSpace(raw)
	data := document.MathData{Display: display}
	if trimmed == "" {
		return data
	}
	if Classify(trimmed).IsMathML {
		data.MathML = trimmed
	} else {
		data.Latex = trimmed
	}
	return data
}

// Edit replaces the formula of a math block, keeping its display flag.
func Edit(b *document.Block, raw string) error {
	if b == nil || b.Kind != document.KindMath || b.Math == nil {
		return fmt.Errorf("edit formula: %w", document.ErrPayloadMismatch)
	}
	data := Normalize(raw, b.Math.Display)
	b.Math = &data
	return nil
}

// SetDisplay switches a math block between inline and display rendering.
func SetDisplay(b *document.Block, display bool) error {
	if b == nil || b.Kind != document.KindMath || b.Math == nil {
		return fmt.Errorf("set display: %w", document.ErrPayloadMismatch)
	}
	b.Math.Display = display
	return nil
}

// Renderable describes how a view layer should show a formula. HTML is
// injected as markup; TexExpr is handed to the typesetter as is.
type Renderable struct {
	HTML    string `json:"html,omitempty"`
	TexExpr string `json:"texExpr,omitempty"`
	Empty   bool   `json:"empty,omitempty"`
}

func ToRenderable(data document.MathData) Renderable {
	switch {
	case data.MathML != "":
		return Renderable{HTML: data.MathML}
	case data.Latex != "" && data.Display:
		return Renderable{TexExpr: `\[` + data.Latex + `\]`}
	case data.Latex != "":
		return Renderable{TexExpr: `\(` + data.Latex + `\)`}
	default:
		return Renderable{HTML: NoFormulaHTML, Empty: true}
	}
}
