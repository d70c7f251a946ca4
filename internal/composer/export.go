package composer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// PrintJob is a complete, styled document ready for the host's print or PDF
// pipeline.
type PrintJob struct {
	Title     string
	HTML      []byte
	Entries   int
	CreatedAt time.Time
}

// Printer hands a job to whatever renders it.
type Printer interface {
	Print(ctx context.Context, job PrintJob) error
}

// BufferPrinter keeps the last job in memory, for callers that return the
// markup themselves.
type BufferPrinter struct {
	mu   sync.Mutex
	last *PrintJob
}

func (p *BufferPrinter) Print(_ context.Context, job PrintJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &job
	return nil
}

func (p *BufferPrinter) Last() (PrintJob, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return PrintJob{}, false
	}
	return *p.last, true
}

const mathJaxScript = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-svg.js"

var paperTemplate = template.Must(template.New("paper").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Header.Title}}</title>
<script>
window.MathJax = {
  loader: {load: ["input/tex", "input/mml", "output/svg"]},
  tex: {inlineMath: [["$", "$"], ["\\(", "\\)"]]}
};
</script>
<script async src="{{.MathJax}}"></script>
<style>
@page { size: A4; margin: 20mm; }
body { font-family: "Times New Roman", serif; color: #000; }
.paper { width: 210mm; min-height: 297mm; margin: 0 auto; }
.header { text-align: center; margin-bottom: 2em; }
.header h1 { font-size: 1.5rem; margin: 0 0 .25em; }
.meta { display: flex; justify-content: space-between; margin-top: 1em; }
hr { border: 0; border-bottom: 2px solid #000; margin: 1em 0; }
ol.questions { list-style: none; padding: 0; }
.question { display: flex; align-items: flex-start; break-inside: avoid; margin-bottom: 1em; }
.number { font-weight: bold; margin-right: .5em; }
.text { flex: 1; }
.marks { font-weight: bold; margin-left: 1em; white-space: nowrap; }
</style>
</head>
<body>
<div class="paper">
  <div class="header">
    <h1>{{.Header.Title}}</h1>
    {{if .Header.SubjectLabel}}<h2>{{.Header.SubjectLabel}}</h2>{{end}}
    <div class="meta">
      <span>Duration: {{.Header.Duration}}</span>
      <span>Max Marks: {{.Header.MaxMarks}}</span>
    </div>
    <hr>
  </div>
  <ol class="questions">
  {{range .Entries}}
    <li class="question">
      <span class="number">{{.Number}}.</span>
      <div class="text">{{.HTML}}</div>
      {{with .Marks}}<span class="marks">{{.}}</span>{{end}}
    </li>
  {{end}}
  </ol>
</div>
</body>
</html>
`))

type printEntry struct {
	Number int
	HTML   template.HTML
	Marks  string
}

type printView struct {
	Header  Header
	MathJax string
	Entries []printEntry
}

// RenderHTML produces the print markup. Question previews are authored rich
// text and are emitted unescaped.
func (d *Draft) RenderHTML() ([]byte, error) {
	view := printView{Header: d.header, MathJax: mathJaxScript}
	for _, e := range d.Entries() {
		view.Entries = append(view.Entries, printEntry{
			Number: e.Number(),
			HTML:   template.HTML(e.Preview),
			Marks:  e.MarksLabel(),
		})
	}

	var buf bytes.Buffer
	if err := paperTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render paper: %w", err)
	}
	return buf.Bytes(), nil
}

// Export renders the draft and hands it to printer. The draft itself is not
// changed and stays editable afterwards.
func (d *Draft) Export(ctx context.Context, printer Printer) (PrintJob, error) {
	if d.State() == StateEmpty {
		return PrintJob{}, ErrEmptyDraft
	}
	html, err := d.RenderHTML()
	if err != nil {
		return PrintJob{}, err
	}
	job := PrintJob{
		Title:     d.header.Title,
		HTML:      html,
		Entries:   len(d.entries),
		CreatedAt: time.Now().UTC(),
	}
	if err := printer.Print(ctx, job); err != nil {
		return PrintJob{}, fmt.Errorf("print paper: %w", err)
	}
	return job, nil
}

const paperSheet = "Paper"

// ExportExcel writes the draft as a workbook: header rows followed by one
// row per question.
func (d *Draft) ExportExcel() ([]byte, error) {
	if d.State() == StateEmpty {
		return nil, ErrEmptyDraft
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(paperSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	rows := [][]any{
		{d.header.Title},
		{d.header.SubjectLabel},
		{"Duration", d.header.Duration, "Max Marks", d.header.MaxMarks},
		{},
		{"No.", "Question", "Marks", "Difficulty", "Course Outcome", "Question ID"},
	}
	for _, e := range d.Entries() {
		rows = append(rows, []any{
			e.Number(), ExtractCellText(e.Question.Content), e.Question.Marks, e.Question.Difficulty, e.Question.CourseOutcome, e.Question.ID,
		})
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(paperSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	_ = f.SetColWidth(paperSheet, "B", "B", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
