package services

import (
	"context"
	"testing"

	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceManager(t *testing.T) {
	f := newFixture(t)
	m := NewServiceManager(Dependencies{Repo: f.repo, Logger: testLogger})

	assert.NotNil(t, m.Subject())
	assert.NotNil(t, m.CourseOutcome())
	assert.NotNil(t, m.Faculty())
	assert.NotNil(t, m.Question())
	assert.NotNil(t, m.Paper())
	assert.NotNil(t, m.AI())
	assert.NotNil(t, m.Upload())
	assert.NotNil(t, m.ImportExport())

	// Without a blob store, inserted images are inlined.
	session, err := m.Editor().Open(context.Background(), f.faculty, &OpenEditorRequest{})
	require.NoError(t, err)
	session, err = m.Editor().InsertImage(context.Background(), f.faculty, session.ID, 0, editor.File{Name: "a.png", Data: pngBytes(16)}, "")
	require.NoError(t, err)
	assert.Contains(t, session.EditorData.Blocks[0].Image.URL, "data:image/png;base64,")

	// Without a generator the AI features report they are not ready.
	_, err = m.AI().GeneratePaper(context.Background(), f.faculty, &GeneratePaperRequest{SubjectID: f.subject.ID})
	assert.True(t, IsNotReady(err))
}
