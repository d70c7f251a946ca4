package document

import (
	"fmt"
	"strings"
	"time"
)

// Document is a question's rich content: an ordered sequence of blocks
// rendered top to bottom. Time is held at millisecond precision, the
// resolution of the wire envelope.
type Document struct {
	Time    time.Time
	Blocks  []Block
	Version string
}

// CreateDefault returns the seed document a new question starts from.
func CreateDefault() Document {
	return createDefaultAt(time.Now())
}

func createDefaultAt(now time.Time) Document {
	return Document{
		Time: truncateMillis(now),
		Blocks: []Block{
			NewHeading(2, "Question"),
			NewParagraph(""),
		},
	}
}

func truncateMillis(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}

// StampTime returns t in the form a document holds: UTC at millisecond
// precision with no monotonic reading.
func StampTime(t time.Time) time.Time {
	return truncateMillis(t)
}

func validateTime(t time.Time) error {
	if t != truncateMillis(t) {
		return fmt.Errorf("%w: %s", ErrUnstampedTime, t)
	}
	return nil
}

// Len reports the number of blocks.
func (d *Document) Len() int {
	return len(d.Blocks)
}

// IsEmpty reports whether the document has no blocks.
func (d *Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}

// InsertBlock places block at index, shifting later blocks down. index may
// equal Len to append.
func (d *Document) InsertBlock(index int, block Block) error {
	if index < 0 || index > len(d.Blocks) {
		return fmt.Errorf("insert at %d of %d: %w", index, len(d.Blocks), ErrOutOfRange)
	}
	if block.Alignment == "" {
		block.Alignment = AlignLeft
	}

	d.Blocks = append(d.Blocks, Block{})
	copy(d.Blocks[index+1:], d.Blocks[index:])
	d.Blocks[index] = block
	return nil
}

// AppendBlock adds block at the end.
func (d *Document) AppendBlock(block Block) {
	_ = d.InsertBlock(len(d.Blocks), block)
}

// RemoveBlock deletes the block at index and returns it.
func (d *Document) RemoveBlock(index int) (Block, error) {
	if index < 0 || index >= len(d.Blocks) {
		return Block{}, fmt.Errorf("remove %d of %d: %w", index, len(d.Blocks), ErrOutOfRange)
	}
	removed := d.Blocks[index]
	d.Blocks = append(d.Blocks[:index], d.Blocks[index+1:]...)
	return removed, nil
}

// MoveBlock relocates the block at from so it ends up at to. Blocks in
// between shift by one.
func (d *Document) MoveBlock(from, to int) error {
	n := len(d.Blocks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d -> %d of %d: %w", from, to, n, ErrOutOfRange)
	}
	if from == to {
		return nil
	}

	moved := d.Blocks[from]
	if from < to {
		copy(d.Blocks[from:to], d.Blocks[from+1:to+1])
	} else {
		copy(d.Blocks[to+1:from+1], d.Blocks[to:from])
	}
	d.Blocks[to] = moved
	return nil
}

// Block returns a pointer into the document for in-place edits.
func (d *Document) Block(index int) (*Block, error) {
	if index < 0 || index >= len(d.Blocks) {
		return nil, fmt.Errorf("block %d of %d: %w", index, len(d.Blocks), ErrOutOfRange)
	}
	return &d.Blocks[index], nil
}

// Clear resets the document to an empty block sequence. Time is kept.
func (d *Document) Clear() {
	d.Blocks = []Block{}
}

// Validate checks the time stamp and every block.
func (d Document) Validate() error {
	if err := validateTime(d.Time); err != nil {
		return err
	}
	for i, b := range d.Blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("blocks[%d]: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	c := Document{Time: d.Time, Version: d.Version}
	if d.Blocks != nil {
		c.Blocks = make([]Block, len(d.Blocks))
		for i, b := range d.Blocks {
			c.Blocks[i] = b.Clone()
		}
	}
	return c
}

// PlainText flattens the document to newline separated text, used for
// similarity checks and search. Images and tables contribute their
// captions and cell text.
func (d Document) PlainText() string {
	var parts []string
	for _, b := range d.Blocks {
		if b.Validate() != nil {
			continue
		}
		switch b.Kind {
		case KindHeading:
			parts = append(parts, b.Heading.Text)
		case KindParagraph:
			parts = append(parts, b.Paragraph.Text)
		case KindList:
			parts = append(parts, b.List.Items...)
		case KindTable:
			for _, row := range b.Table.Rows {
				parts = append(parts, strings.Join(row, " "))
			}
		case KindImage:
			parts = append(parts, b.Image.Caption)
		case KindMath:
			if b.Math.Latex != "" {
				parts = append(parts, b.Math.Latex)
			} else {
				parts = append(parts, b.Math.MathML)
			}
		default:
		}
	}

	nonEmpty := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
