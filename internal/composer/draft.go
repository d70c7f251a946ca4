package composer

import (
	"encoding/json"
	"fmt"

	"github.com/SAP-F-2025/qpaper-service/internal/document"
	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
)

const (
	DefaultTitle    = "Semester End Examination"
	DefaultDuration = "3 Hours"
	DefaultMaxMarks = "100"
)

var (
	ErrOutOfRange = fmt.Errorf("composer: %w", apperrors.ErrOutOfRange)
	ErrEmptyDraft = fmt.Errorf("composer: %w: draft has no questions", apperrors.ErrValidationFailed)
)

// Question is the part of a stored question the composer needs.
type Question struct {
	ID            string            `json:"id"`
	Marks         int               `json:"marks"`
	Difficulty    string            `json:"difficulty,omitempty"`
	CourseOutcome string            `json:"courseOutcome,omitempty"`
	Content       document.Document `json:"editorData"`
}

type Header struct {
	Title        string `json:"title"`
	SubjectLabel string `json:"subjectLabel"`
	Duration     string `json:"duration"`
	MaxMarks     string `json:"maxMarks"`
}

// SubjectLabel formats a subject the way paper headers show it.
func SubjectLabel(code, name string) string {
	switch {
	case code == "":
		return name
	case name == "":
		return code
	}
	return code + " - " + name
}

func (h Header) withDefaults() Header {
	if h.Title == "" {
		h.Title = DefaultTitle
	}
	if h.Duration == "" {
		h.Duration = DefaultDuration
	}
	if h.MaxMarks == "" {
		h.MaxMarks = DefaultMaxMarks
	}
	return h
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

type State string

const (
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// Draft is an ordered, editable assembly of questions. Entry positions are
// the slice indexes; nothing stores a separate number.
type Draft struct {
	header  Header
	entries []Question
}

// NewDraft keeps the given order and drops repeated question IDs, keeping
// the first occurrence. Empty header fields take the defaults.
func NewDraft(header Header, questions []Question) *Draft {
	d := &Draft{header: header.withDefaults()}
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		d.entries = append(d.entries, q)
	}
	return d
}

func (d *Draft) Header() Header { return d.header }

// SetHeader replaces the header. Empty fields fall back to the defaults.
func (d *Draft) SetHeader(h Header) {
	d.header = h.withDefaults()
}

func (d *Draft) Len() int { return len(d.entries) }

func (d *Draft) State() State {
	if len(d.entries) == 0 {
		return StateEmpty
	}
	return StatePopulated
}

// MoveEntry swaps the entry at index with its neighbour. Moving the first
// entry up or the last entry down leaves the draft as is.
func (d *Draft) MoveEntry(index int, dir Direction) error {
	if index < 0 || index >= len(d.entries) {
		return fmt.Errorf("move entry %d of %d: %w", index, len(d.entries), ErrOutOfRange)
	}
	switch dir {
	case Up:
		if index == 0 {
			return nil
		}
		d.entries[index], d.entries[index-1] = d.entries[index-1], d.entries[index]
	case Down:
		if index == len(d.entries)-1 {
			return nil
		}
		d.entries[index], d.entries[index+1] = d.entries[index+1], d.entries[index]
	default:
		return fmt.Errorf("%w: unknown direction %q", apperrors.ErrValidationFailed, dir)
	}
	return nil
}

// RemoveEntry deletes the entry at index; later entries shift down.
func (d *Draft) RemoveEntry(index int) error {
	if index < 0 || index >= len(d.entries) {
		return fmt.Errorf("remove entry %d of %d: %w", index, len(d.entries), ErrOutOfRange)
	}
	d.entries = append(d.entries[:index], d.entries[index+1:]...)
	return nil
}

// Entry is a read-only view of one draft position.
type Entry struct {
	DisplayIndex int      `json:"displayIndex"`
	Question     Question `json:"question"`
	Preview      string   `json:"preview"`
}

// Number is the 1-based question number printed on the paper.
func (e Entry) Number() int { return e.DisplayIndex + 1 }

func (e Entry) MarksLabel() string {
	if e.Question.Marks <= 0 {
		return ""
	}
	return fmt.Sprintf("[%d Marks]", e.Question.Marks)
}

func (d *Draft) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	for i, q := range d.entries {
		out[i] = Entry{DisplayIndex: i, Question: q, Preview: ExtractDisplayText(q.Content)}
	}
	return out
}

// QuestionIDs returns the entry IDs in paper order.
func (d *Draft) QuestionIDs() []string {
	ids := make([]string, len(d.entries))
	for i, q := range d.entries {
		ids[i] = q.ID
	}
	return ids
}

// TotalMarks sums the marks of every entry.
func (d *Draft) TotalMarks() int {
	total := 0
	for _, q := range d.entries {
		total += q.Marks
	}
	return total
}

type draftJSON struct {
	Header    Header     `json:"header"`
	Questions []Question `json:"questions"`
}

func (d *Draft) MarshalJSON() ([]byte, error) {
	qs := d.entries
	if qs == nil {
		qs = []Question{}
	}
	return json.Marshal(draftJSON{Header: d.header, Questions: qs})
}

func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw draftJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = *NewDraft(raw.Header, raw.Questions)
	return nil
}
