package document

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
)

// Kind identifies the payload carried by a Block. The set is closed.
type Kind string

const (
	KindHeading   Kind = "header"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindTable     Kind = "table"
	KindImage     Kind = "image"
	KindMath      Kind = "math"
)

// Kinds lists every supported block kind in a stable order.
var Kinds = []Kind{KindHeading, KindParagraph, KindList, KindTable, KindImage, KindMath}

// Alignment is per-block presentation metadata.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

func (a Alignment) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

var (
	ErrUnknownKind     = errors.New("unknown block kind")
	ErrPayloadMismatch = errors.New("block payload does not match kind")
	ErrUnstampedTime   = errors.New("document time is not UTC at millisecond precision")
	ErrOutOfRange      = fmt.Errorf("document: %w", apperrors.ErrOutOfRange)
)

type HeadingData struct {
	Level int
	Text  string
}

type ParagraphData struct {
	Text string
}

type ListData struct {
	Ordered bool
	Items   []string
}

type TableData struct {
	Rows [][]string
}

type ImageData struct {
	// URL may be a data URI or a server-relative path.
	URL     string
	Caption string
}

// MathData holds a formula in exactly one notation. Both fields are empty
// only for a block whose input was empty.
type MathData struct {
	Latex   string
	MathML  string
	Display bool
}

// Block is one unit of a question's rich content. Exactly one payload
// pointer is set, and it is the one matching Kind.
type Block struct {
	ID        string
	Kind      Kind
	Alignment Alignment

	Heading   *HeadingData
	Paragraph *ParagraphData
	List      *ListData
	Table     *TableData
	Image     *ImageData
	Math      *MathData
}

func NewHeading(level int, text string) Block {
	return Block{Kind: KindHeading, Alignment: AlignLeft, Heading: &HeadingData{Level: level, Text: text}}
}

func NewParagraph(text string) Block {
	return Block{Kind: KindParagraph, Alignment: AlignLeft, Paragraph: &ParagraphData{Text: text}}
}

func NewList(ordered bool, items ...string) Block {
	return Block{Kind: KindList, Alignment: AlignLeft, List: &ListData{Ordered: ordered, Items: items}}
}

func NewTable(rows [][]string) Block {
	return Block{Kind: KindTable, Alignment: AlignLeft, Table: &TableData{Rows: rows}}
}

func NewImage(url, caption string) Block {
	return Block{Kind: KindImage, Alignment: AlignLeft, Image: &ImageData{URL: url, Caption: caption}}
}

func NewMath(data MathData) Block {
	return Block{Kind: KindMath, Alignment: AlignLeft, Math: &data}
}

// WithAlignment returns a copy of b with the given alignment.
func (b Block) WithAlignment(a Alignment) Block {
	b.Alignment = a
	return b
}

// Validate checks that the payload matches the kind and that kind-specific
// constraints hold.
func (b Block) Validate() error {
	if !b.Alignment.Valid() {
		return fmt.Errorf("block %q: invalid alignment %q", b.ID, b.Alignment)
	}
	if n := b.payloadCount(); n != 1 {
		return fmt.Errorf("block %q: %w (%d payloads set)", b.ID, ErrPayloadMismatch, n)
	}

	switch b.Kind {
	case KindHeading:
		if b.Heading == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
		if b.Heading.Level < 1 || b.Heading.Level > 6 {
			return fmt.Errorf("block %q: heading level %d outside 1-6", b.ID, b.Heading.Level)
		}
	case KindParagraph:
		if b.Paragraph == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
	case KindList:
		if b.List == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
	case KindTable:
		if b.Table == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
	case KindImage:
		if b.Image == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
	case KindMath:
		if b.Math == nil {
			return fmt.Errorf("block %q: %w", b.ID, ErrPayloadMismatch)
		}
		if b.Math.Latex != "" && b.Math.MathML != "" {
			return fmt.Errorf("block %q: math block holds both latex and mathml", b.ID)
		}
	default:
		return fmt.Errorf("block %q: %w: %q", b.ID, ErrUnknownKind, b.Kind)
	}
	return nil
}

func (b Block) payloadCount() int {
	n := 0
	if b.Heading != nil {
		n++
	}
	if b.Paragraph != nil {
		n++
	}
	if b.List != nil {
		n++
	}
	if b.Table != nil {
		n++
	}
	if b.Image != nil {
		n++
	}
	if b.Math != nil {
		n++
	}
	return n
}

// Clone returns a deep copy so callers can mutate payloads independently.
func (b Block) Clone() Block {
	c := b
	if b.Heading != nil {
		h := *b.Heading
		c.Heading = &h
	}
	if b.Paragraph != nil {
		p := *b.Paragraph
		c.Paragraph = &p
	}
	if b.List != nil {
		l := ListData{Ordered: b.List.Ordered}
		if b.List.Items != nil {
			l.Items = append([]string{}, b.List.Items...)
		}
		c.List = &l
	}
	if b.Table != nil {
		t := TableData{}
		if b.Table.Rows != nil {
			t.Rows = make([][]string, len(b.Table.Rows))
			for i, row := range b.Table.Rows {
				if row != nil {
					t.Rows[i] = append([]string{}, row...)
				}
			}
		}
		c.Table = &t
	}
	if b.Image != nil {
		img := *b.Image
		c.Image = &img
	}
	if b.Math != nil {
		m := *b.Math
		c.Math = &m
	}
	return c
}
