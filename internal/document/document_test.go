package document

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	d := createDefaultAt(time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC))
	d.Version = "2.28.2"
	d.Blocks[0].ID = "h1"
	d.Blocks[1].ID = "p1"
	d.Blocks[1].Paragraph.Text = "Evaluate the integral."
	d.AppendBlock(NewList(true, "first", "second"))
	d.AppendBlock(NewTable([][]string{{"x", "f(x)"}, {"0", "1"}}).WithAlignment(AlignCenter))
	d.AppendBlock(NewImage("/uploads/graph.png", "Figure 1"))
	d.AppendBlock(NewMath(MathData{Latex: `\int_0^1 x\,dx`, Display: true}).WithAlignment(AlignRight))
	d.AppendBlock(NewMath(MathData{MathML: "<math><mi>x</mi></math>"}))
	return d
}

func labels(d Document) []string {
	out := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		out = append(out, b.ID)
	}
	return out
}

func TestCreateDefault(t *testing.T) {
	d := CreateDefault()

	require.Len(t, d.Blocks, 2)
	assert.Equal(t, KindHeading, d.Blocks[0].Kind)
	assert.Equal(t, 2, d.Blocks[0].Heading.Level)
	assert.Equal(t, KindParagraph, d.Blocks[1].Kind)
	assert.Equal(t, AlignLeft, d.Blocks[1].Alignment)
	assert.False(t, d.Time.IsZero())
	assert.Equal(t, d.Time, d.Time.Truncate(time.Millisecond))
	assert.NoError(t, d.Validate())
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
	}{
		{name: "default", doc: createDefaultAt(time.UnixMilli(1710000000123).UTC())},
		{name: "every kind", doc: sampleDocument()},
		{name: "empty", doc: Document{}},
		{name: "empty math and list", doc: Document{Blocks: []Block{NewMath(MathData{}), NewList(false)}}},
		{name: "unix epoch", doc: Document{Time: time.Unix(0, 0).UTC(), Blocks: []Block{NewParagraph("t")}}},
		{name: "stamped local time", doc: Document{Time: StampTime(time.Now()), Blocks: []Block{}}},
		{
			name: "empty collections",
			doc: Document{Blocks: []Block{
				NewList(true, []string{}...),
				NewTable([][]string{}),
				NewTable([][]string{{"a"}, {}}),
			}},
		},
		{name: "cleared", doc: func() Document { d := sampleDocument(); d.Clear(); return d }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Serialize(tt.doc)
			require.NoError(t, err)

			got, err := Deserialize(env)
			require.NoError(t, err)
			assert.Equal(t, tt.doc, got)

			raw, err := json.Marshal(tt.doc)
			require.NoError(t, err)
			var viaJSON Document
			require.NoError(t, json.Unmarshal(raw, &viaJSON))
			assert.Equal(t, tt.doc, viaJSON)
		})
	}
}

func TestUnstampedTimeRejected(t *testing.T) {
	local := time.Date(2025, 3, 14, 9, 26, 53, 589_123_456, time.FixedZone("IST", 5*3600+1800))
	tests := []struct {
		name string
		at   time.Time
	}{
		{name: "wall clock", at: time.Now()},
		{name: "sub millisecond", at: time.Date(2025, 1, 1, 0, 0, 0, 1, time.UTC)},
		{name: "non utc zone", at: local.Truncate(time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Document{Time: tt.at, Blocks: []Block{NewParagraph("x")}}
			assert.ErrorIs(t, d.Validate(), ErrUnstampedTime)
			_, err := Serialize(d)
			assert.ErrorIs(t, err, ErrUnstampedTime)

			d.Time = StampTime(tt.at)
			require.NoError(t, d.Validate())
			assert.True(t, d.Time.Equal(tt.at.Truncate(time.Millisecond)))
		})
	}
}

func TestSerializeEpochKeepsTime(t *testing.T) {
	raw, err := json.Marshal(Document{Time: time.Unix(0, 0).UTC(), Blocks: []Block{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time": 0, "blocks": []}`, string(raw))

	raw, err = json.Marshal(Document{Blocks: []Block{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"blocks": []}`, string(raw))
}

func TestSerializeWireShape(t *testing.T) {
	d := Document{Time: time.UnixMilli(1700000000000).UTC()}
	d.AppendBlock(NewList(true, "a"))
	d.AppendBlock(NewMath(MathData{Latex: "x^2", Display: false}))

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"time": 1700000000000,
		"blocks": [
			{"type": "list", "data": {"style": "ordered", "items": ["a"]}, "tunes": {"alignment": {"alignment": "left"}}},
			{"type": "math", "data": {"latex": "x^2", "display": false}, "tunes": {"alignment": {"alignment": "left"}}}
		]
	}`, string(raw))
}

func TestDeserializeEditorPayload(t *testing.T) {
	payload := `{"time":1712345678901,"blocks":[
		{"id":"a1","type":"header","data":{"text":"Q1","level":3}},
		{"id":"a2","type":"image","data":{"file":{"url":"data:image/png;base64,AAAA"},"caption":"","withBorder":false}}
	],"version":"2.28.2"}`

	var d Document
	require.NoError(t, json.Unmarshal([]byte(payload), &d))

	require.Len(t, d.Blocks, 2)
	assert.Equal(t, AlignLeft, d.Blocks[0].Alignment)
	assert.Equal(t, 3, d.Blocks[0].Heading.Level)
	assert.Equal(t, "data:image/png;base64,AAAA", d.Blocks[1].Image.URL)
	assert.Equal(t, int64(1712345678901), d.Time.UnixMilli())
}

func TestDeserializeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     Envelope
		wantErr error
	}{
		{
			name:    "unknown kind",
			env:     Envelope{Blocks: []RawBlock{{Type: "quote", Data: json.RawMessage(`{}`)}}},
			wantErr: ErrUnknownKind,
		},
		{
			name: "math with both notations",
			env: Envelope{Blocks: []RawBlock{{
				Type: "math",
				Data: json.RawMessage(`{"latex":"x","mathml":"<math/>"}`),
			}}},
		},
		{
			name: "heading level out of range",
			env:  Envelope{Blocks: []RawBlock{{Type: "header", Data: json.RawMessage(`{"text":"t","level":9}`)}}},
		},
		{
			name: "bad alignment",
			env: Envelope{Blocks: []RawBlock{{
				Type:  "paragraph",
				Data:  json.RawMessage(`{"text":"t"}`),
				Tunes: &Tunes{Alignment: &AlignmentTune{Alignment: "justify"}},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.env)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestInsertBlock(t *testing.T) {
	d := Document{}
	require.NoError(t, d.InsertBlock(0, Block{ID: "b", Kind: KindParagraph, Paragraph: &ParagraphData{}}))
	require.NoError(t, d.InsertBlock(0, NewParagraph("a").withID("a")))
	require.NoError(t, d.InsertBlock(2, NewParagraph("c").withID("c")))

	assert.Equal(t, []string{"a", "b", "c"}, labels(d))
	assert.Equal(t, AlignLeft, d.Blocks[1].Alignment)

	err := d.InsertBlock(5, NewParagraph("x"))
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
	assert.Equal(t, []string{"a", "b", "c"}, labels(d))

	assert.ErrorIs(t, d.InsertBlock(-1, NewParagraph("x")), ErrOutOfRange)
}

func TestRemoveBlock(t *testing.T) {
	d := Document{Blocks: []Block{
		NewParagraph("").withID("a"),
		NewParagraph("").withID("b"),
		NewParagraph("").withID("c"),
	}}

	removed, err := d.RemoveBlock(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, []string{"a", "c"}, labels(d))

	_, err = d.RemoveBlock(2)
	assert.True(t, errors.Is(err, ErrOutOfRange))
	assert.Equal(t, []string{"a", "c"}, labels(d))

	_, _ = d.RemoveBlock(0)
	_, _ = d.RemoveBlock(0)
	assert.NotNil(t, d.Blocks)
	assert.Empty(t, d.Blocks)
}

func TestMoveBlock(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
		wantErr  bool
	}{
		{name: "forward", from: 0, to: 2, want: []string{"b", "c", "a", "d"}},
		{name: "backward", from: 3, to: 1, want: []string{"a", "d", "b", "c"}},
		{name: "same", from: 2, to: 2, want: []string{"a", "b", "c", "d"}},
		{name: "from out of range", from: 4, to: 0, want: []string{"a", "b", "c", "d"}, wantErr: true},
		{name: "to out of range", from: 0, to: -1, want: []string{"a", "b", "c", "d"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Document{}
			for _, id := range []string{"a", "b", "c", "d"} {
				d.AppendBlock(NewParagraph(id).withID(id))
			}

			err := d.MoveBlock(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOutOfRange)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, labels(d))
		})
	}
}

func TestClearAndClone(t *testing.T) {
	d := sampleDocument()
	c := d.Clone()
	c.Blocks[2].List.Items[0] = "changed"
	c.Blocks[3].Table.Rows[0][0] = "y"

	assert.Equal(t, "first", d.Blocks[2].List.Items[0])
	assert.Equal(t, "x", d.Blocks[3].Table.Rows[0][0])

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, d.Time, c.Time)
	assert.Equal(t, 7, d.Len())
}

func TestValidatePayload(t *testing.T) {
	b := NewParagraph("x")
	b.Heading = &HeadingData{Level: 1}
	assert.ErrorIs(t, b.Validate(), ErrPayloadMismatch)

	assert.ErrorIs(t, Block{Kind: KindImage, Alignment: AlignLeft}.Validate(), ErrPayloadMismatch)
	assert.Error(t, Block{Kind: KindParagraph, Paragraph: &ParagraphData{}}.Validate())
}

func TestPlainText(t *testing.T) {
	d := sampleDocument()

	assert.Equal(t,
		"Question\nEvaluate the integral.\nfirst\nsecond\nx f(x)\n0 1\nFigure 1\n\\int_0^1 x\\,dx\n<math><mi>x</mi></math>",
		d.PlainText())
	assert.Equal(t, "", Document{}.PlainText())
}

func (b Block) withID(id string) Block {
	b.ID = id
	return b
}
