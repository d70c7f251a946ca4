package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the Editor.js save format exchanged with clients and stored
// in the question record.
type Envelope struct {
	Time    *int64     `json:"time,omitempty"`
	Blocks  []RawBlock `json:"blocks"`
	Version string     `json:"version,omitempty"`
}

type RawBlock struct {
	ID    string          `json:"id,omitempty"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Tunes *Tunes          `json:"tunes,omitempty"`
}

type Tunes struct {
	Alignment *AlignmentTune `json:"alignment,omitempty"`
}

type AlignmentTune struct {
	Alignment string `json:"alignment"`
}

type headingWire struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
}

type paragraphWire struct {
	Text string `json:"text"`
}

const (
	listStyleOrdered   = "ordered"
	listStyleUnordered = "unordered"
)

// Items and Content are pointers so an absent array and an empty one stay
// distinct across a round trip.
type listWire struct {
	Style string    `json:"style"`
	Items *[]string `json:"items,omitempty"`
}

type tableWire struct {
	Content *[][]string `json:"content,omitempty"`
}

type imageFileWire struct {
	URL string `json:"url"`
}

type imageWire struct {
	File    imageFileWire `json:"file"`
	Caption string        `json:"caption,omitempty"`
}

type mathWire struct {
	Latex   string `json:"latex"`
	MathML  string `json:"mathml,omitempty"`
	Display bool   `json:"display"`
}

// Serialize converts a document to its wire envelope. The document must
// validate.
func Serialize(d Document) (Envelope, error) {
	if err := validateTime(d.Time); err != nil {
		return Envelope{}, fmt.Errorf("serialize: %w", err)
	}
	env := Envelope{Version: d.Version}
	if !d.Time.IsZero() {
		ms := d.Time.UnixMilli()
		env.Time = &ms
	}
	if d.Blocks != nil {
		env.Blocks = make([]RawBlock, 0, len(d.Blocks))
	}

	for i, b := range d.Blocks {
		if err := b.Validate(); err != nil {
			return Envelope{}, fmt.Errorf("serialize blocks[%d]: %w", i, err)
		}
		data, err := encodeData(b)
		if err != nil {
			return Envelope{}, fmt.Errorf("serialize blocks[%d]: %w", i, err)
		}
		env.Blocks = append(env.Blocks, RawBlock{
			ID:    b.ID,
			Type:  string(b.Kind),
			Data:  data,
			Tunes: &Tunes{Alignment: &AlignmentTune{Alignment: string(b.Alignment)}},
		})
	}
	return env, nil
}

func encodeData(b Block) (json.RawMessage, error) {
	var v any
	switch b.Kind {
	case KindHeading:
		v = headingWire{Text: b.Heading.Text, Level: b.Heading.Level}
	case KindParagraph:
		v = paragraphWire{Text: b.Paragraph.Text}
	case KindList:
		style := listStyleUnordered
		if b.List.Ordered {
			style = listStyleOrdered
		}
		w := listWire{Style: style}
		if b.List.Items != nil {
			w.Items = &b.List.Items
		}
		v = w
	case KindTable:
		w := tableWire{}
		if b.Table.Rows != nil {
			w.Content = &b.Table.Rows
		}
		v = w
	case KindImage:
		v = imageWire{File: imageFileWire{URL: b.Image.URL}, Caption: b.Image.Caption}
	case KindMath:
		v = mathWire{Latex: b.Math.Latex, MathML: b.Math.MathML, Display: b.Math.Display}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, b.Kind)
	}
	return json.Marshal(v)
}

// Deserialize is the inverse of Serialize. Blocks without an alignment tune
// are aligned left.
func Deserialize(env Envelope) (Document, error) {
	d := Document{Version: env.Version}
	if env.Time != nil {
		d.Time = time.UnixMilli(*env.Time).UTC()
	}
	if env.Blocks != nil {
		d.Blocks = make([]Block, 0, len(env.Blocks))
	}

	for i, raw := range env.Blocks {
		b, err := decodeBlock(raw)
		if err != nil {
			return Document{}, fmt.Errorf("deserialize blocks[%d]: %w", i, err)
		}
		if err := b.Validate(); err != nil {
			return Document{}, fmt.Errorf("deserialize blocks[%d]: %w", i, err)
		}
		d.Blocks = append(d.Blocks, b)
	}
	return d, nil
}

func decodeBlock(raw RawBlock) (Block, error) {
	b := Block{ID: raw.ID, Kind: Kind(raw.Type), Alignment: AlignLeft}
	if raw.Tunes != nil && raw.Tunes.Alignment != nil && raw.Tunes.Alignment.Alignment != "" {
		b.Alignment = Alignment(raw.Tunes.Alignment.Alignment)
	}
	data := raw.Data
	if len(data) == 0 || string(data) == "null" {
		data = json.RawMessage("{}")
	}

	switch b.Kind {
	case KindHeading:
		var w headingWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("header data: %w", err)
		}
		b.Heading = &HeadingData{Level: w.Level, Text: w.Text}
	case KindParagraph:
		var w paragraphWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("paragraph data: %w", err)
		}
		b.Paragraph = &ParagraphData{Text: w.Text}
	case KindList:
		var w listWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("list data: %w", err)
		}
		l := &ListData{Ordered: w.Style == listStyleOrdered}
		if w.Items != nil {
			l.Items = *w.Items
		}
		b.List = l
	case KindTable:
		var w tableWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("table data: %w", err)
		}
		t := &TableData{}
		if w.Content != nil {
			t.Rows = *w.Content
		}
		b.Table = t
	case KindImage:
		var w imageWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("image data: %w", err)
		}
		b.Image = &ImageData{URL: w.File.URL, Caption: w.Caption}
	case KindMath:
		var w mathWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Block{}, fmt.Errorf("math data: %w", err)
		}
		b.Math = &MathData{Latex: w.Latex, MathML: w.MathML, Display: w.Display}
	default:
		return Block{}, fmt.Errorf("%w: %q", ErrUnknownKind, raw.Type)
	}
	return b, nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	env, err := Serialize(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decoded, err := Deserialize(env)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}
