package mathblock

import (
	"testing"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "mathml", input: "<math><mfrac><mi>a</mi><mi>b</mi></mfrac></math>", want: true},
		{name: "mathml with namespace and whitespace", input: "  \n<MATH xmlns=\"http://www.w3.org/1998/Math/MathML\"><mi>x</mi></MATH>", want: true},
		{name: "latex", input: `\frac{a}{b}`, want: false},
		{name: "empty", input: "", want: false},
		{name: "html that is not math", input: "<b>bold</b>", want: false},
		{name: "math tag not leading", input: "x <math></math>", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input).IsMathML)
		})
	}
}

func TestNormalizeExclusivity(t *testing.T) {
	inputs := []string{"", "   ", `\sqrt{2}`, "<math><mn>2</mn></math>", " E = mc^2 "}

	for _, in := range inputs {
		for _, display := range []bool{true, false} {
			got := Normalize(in, display)
			assert.Equal(t, display, got.Display)
			assert.False(t, got.Latex != "" && got.MathML != "", "both set for %q", in)
			if in == "" || in == "   " {
				assert.Empty(t, got.Latex)
				assert.Empty(t, got.MathML)
			} else {
				assert.True(t, got.Latex != "" || got.MathML != "", "none set for %q", in)
			}
		}
	}

	assert.Equal(t, "E = mc^2", Normalize(" E = mc^2 ", false).Latex)
}

func TestEditClearsOtherNotation(t *testing.T) {
	b := document.NewMath(document.MathData{Latex: `\alpha`, Display: true})

	require.NoError(t, Edit(&b, "<math><mi>β</mi></math>"))
	assert.Empty(t, b.Math.Latex)
	assert.Equal(t, "<math><mi>β</mi></math>", b.Math.MathML)
	assert.True(t, b.Math.Display)

	require.NoError(t, Edit(&b, `\beta`))
	assert.Equal(t, `\beta`, b.Math.Latex)
	assert.Empty(t, b.Math.MathML)

	p := document.NewParagraph("x")
	assert.ErrorIs(t, Edit(&p, "x"), document.ErrPayloadMismatch)
}

func TestToRenderable(t *testing.T) {
	tests := []struct {
		name string
		data document.MathData
		want Renderable
	}{
		{name: "display latex", data: document.MathData{Latex: "x^2", Display: true}, want: Renderable{TexExpr: `\[x^2\]`}},
		{name: "inline latex", data: document.MathData{Latex: "x^2"}, want: Renderable{TexExpr: `\(x^2\)`}},
		{name: "mathml", data: document.MathData{MathML: "<math><mi>x</mi></math>", Display: true}, want: Renderable{HTML: "<math><mi>x</mi></math>"}},
		{name: "empty", data: Normalize("  ", true), want: Renderable{HTML: NoFormulaHTML, Empty: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToRenderable(tt.data))
		})
	}
}

func TestSetDisplay(t *testing.T) {
	b := document.NewMath(Normalize("x", false))
	require.NoError(t, SetDisplay(&b, true))
	assert.Equal(t, `\[x\]`, ToRenderable(*b.Math).TexExpr)
}
