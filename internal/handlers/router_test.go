package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/editor"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/qpaper-service/internal/services"
	"github.com/SAP-F-2025/qpaper-service/internal/storage"
	"github.com/SAP-F-2025/qpaper-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const testSecret = "handler-test-secret"

type apiHarness struct {
	t        *testing.T
	router   *gin.Engine
	verifier *auth.JWTVerifier
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	return newAPIHarnessWith(t, nil)
}

func newAPIHarnessWith(t *testing.T, configure func(*services.Dependencies)) *apiHarness {
	t.Helper()

	dsn := "file:api_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, postgres.Migrate(db))

	repo := postgres.NewRepository(db)
	t.Cleanup(func() { _ = repo.Close() })

	log := utils.NewNopLogger()
	verifier := auth.NewJWTVerifier(testSecret, time.Hour)
	deps := services.Dependencies{Repo: repo, Logger: utils.ToSlogLogger(log)}
	if configure != nil {
		configure(&deps)
	}
	router := NewRouter(RouterConfig{
		Services: services.NewServiceManager(deps),
		Verifier: verifier,
		Logger:   log,
	})
	return &apiHarness{t: t, router: router, verifier: verifier}
}

func (h *apiHarness) token(email string, role models.UserRole) string {
	h.t.Helper()
	tok, err := h.verifier.Issue(auth.Identity{Subject: email, Email: email, Name: strings.Split(email, "@")[0], Role: role})
	require.NoError(h.t, err)
	return tok
}

func (h *apiHarness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, token)
}

func (h *apiHarness) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func multipartBody(t *testing.T, field, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func paragraphDoc(text string) map[string]interface{} {
	return map[string]interface{}{
		"blocks": []map[string]interface{}{
			{"type": "paragraph", "data": map[string]string{"text": text}},
		},
	}
}

func TestRouter_HealthAndAuth(t *testing.T) {
	h := newAPIHarness(t)

	w := h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))

	w = h.do(http.MethodGet, "/api/v1/subjects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/v1/subjects", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	faculty := h.token("new.faculty@college.edu", models.RoleFaculty)
	w = h.do(http.MethodGet, "/api/v1/me", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[services.FacultyResponse](t, w)
	assert.False(t, me.IsApproved)

	w = h.do(http.MethodPost, "/api/v1/subjects", faculty, services.CreateSubjectRequest{
		Code: "CS101", Name: "Programming", Semester: 1, AcademicYear: "2024-2025",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodGet, "/api/v1/faculty", faculty, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_QuestionToPaper(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token("admin@college.edu", models.RoleAdmin)

	w := h.do(http.MethodPost, "/api/v1/subjects", admin, services.CreateSubjectRequest{
		Code: "CS101", Name: "Programming", Semester: 1, AcademicYear: "2024-2025",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	subject := decode[services.SubjectResponse](t, w)
	assert.Equal(t, "CS101 - Programming", subject.Label)

	w = h.do(http.MethodPost, "/api/v1/subjects", admin, services.CreateSubjectRequest{Code: "CS101"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/v1/subjects/"+subject.ID+"/course-outcomes", admin, []services.SaveCourseOutcomeRequest{
		{CoCode: "CO1", Description: "Understand pointers"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ids []string
	for _, text := range []string{"What is a pointer?", "Explain recursion."} {
		w = h.do(http.MethodPost, "/api/v1/questions", admin, map[string]interface{}{
			"subjectId":  subject.ID,
			"marks":      5,
			"difficulty": "Medium",
			"editorData": paragraphDoc(text),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode[services.QuestionResponse](t, w).ID)
	}

	w = h.do(http.MethodGet, "/api/v1/questions?subjectId="+subject.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Data  []services.QuestionResponse `json:"data"`
		Total int64                       `json:"total"`
	}](t, w)
	assert.EqualValues(t, 2, list.Total)
	require.Len(t, list.Data, 2)
	assert.ElementsMatch(t, ids, []string{list.Data[0].ID, list.Data[1].ID})

	w = h.do(http.MethodGet, "/api/v1/questions/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(http.MethodPost, "/api/v1/papers", admin, services.ComposePaperRequest{
		SubjectID: subject.ID, SelectedQuestionIDs: ids,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	paper := decode[services.PaperResponse](t, w)
	require.Len(t, paper.Entries, 2)
	assert.Equal(t, 10, paper.TotalMarks)

	w = h.do(http.MethodPost, "/api/v1/papers/"+paper.ID+"/move", admin, services.MoveEntryRequest{Index: 1, Direction: "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paper = decode[services.PaperResponse](t, w)
	assert.Equal(t, ids[1], paper.Entries[0].Question.ID)

	w = h.do(http.MethodDelete, "/api/v1/papers/"+paper.ID+"/entries/5", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = h.do(http.MethodGet, "/api/v1/papers/"+paper.ID+"/print", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Explain recursion.")

	w = h.do(http.MethodGet, "/api/v1/papers/"+paper.ID+"/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = h.do(http.MethodGet, "/api/v1/questions/export?format=csv&subjectId="+subject.ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "What is a pointer?")

	w = h.do(http.MethodDelete, "/api/v1/papers/"+paper.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(http.MethodGet, "/api/v1/papers/"+paper.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_EditorSession(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token("admin@college.edu", models.RoleAdmin)

	w := h.do(http.MethodPost, "/api/v1/subjects", admin, services.CreateSubjectRequest{
		Code: "MA201", Name: "Calculus", Semester: 3, AcademicYear: "2024-2025",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	subject := decode[services.SubjectResponse](t, w)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/editor/sessions", nil)
	w = h.send(req, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[services.EditorSessionResponse](t, w)
	require.Len(t, session.EditorData.Blocks, 2)
	base := "/api/v1/editor/sessions/" + session.ID

	w = h.do(http.MethodPost, base+"/blocks", admin, map[string]interface{}{
		"index": 2,
		"block": map[string]interface{}{"type": "math", "data": map[string]interface{}{"latex": "x^2", "display": true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session = decode[services.EditorSessionResponse](t, w)
	require.Len(t, session.EditorData.Blocks, 3)

	w = h.do(http.MethodPut, base+"/alignment", admin, map[string]interface{}{"index": 2, "alignment": "justify"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodDelete, base+"/blocks/9", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	body, contentType := multipartBody(t, editor.UploadFieldName, "fig.png", pngImage(t), map[string]string{"caption": "Figure 1"})
	req = httptest.NewRequest(http.MethodPost, base+"/images", body)
	req.Header.Set("Content-Type", contentType)
	w = h.send(req, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	session = decode[services.EditorSessionResponse](t, w)
	require.Len(t, session.EditorData.Blocks, 4)

	other := h.token("someone@college.edu", models.RoleFaculty)
	w = h.do(http.MethodGet, base, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, base+"/commit", admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, base+"/commit", admin, services.CommitRequest{SubjectID: subject.ID, Marks: 4, Difficulty: "Easy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	question := decode[services.QuestionResponse](t, w)
	assert.Equal(t, subject.ID, question.SubjectID)
	assert.Len(t, question.EditorData.Blocks, 4)

	w = h.do(http.MethodDelete, base, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(http.MethodGet, base, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Uploads(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token("admin@college.edu", models.RoleAdmin)

	body, contentType := multipartBody(t, editor.UploadFieldName, "fig.png", pngImage(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", body)
	req.Header.Set("Content-Type", contentType)
	w := h.send(req, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[struct {
		Success int `json:"success"`
		File    struct {
			URL string `json:"url"`
		} `json:"file"`
	}](t, w)
	assert.Equal(t, 1, result.Success)
	assert.True(t, strings.HasPrefix(result.File.URL, "data:image/png;base64,"))

	body, contentType = multipartBody(t, editor.UploadFieldName, "notes.txt", []byte("plain text"), nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", body)
	req.Header.Set("Content-Type", contentType)
	w = h.send(req, admin)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body, contentType = multipartBody(t, editor.UploadFieldName, "x.svg", []byte(scriptedSVG), nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", body)
	req.Header.Set("Content-Type", contentType)
	w = h.send(req, admin)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body, contentType = multipartBody(t, "image", "fig.png", pngImage(t), nil)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", body)
	req.Header.Set("Content-Type", contentType)
	w = h.send(req, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", nil)
	w = h.send(req, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/uploads/questions/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

const scriptedSVG = `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.cookie)</script></svg>`

func TestRouter_ServeStoredUploads(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	h := newAPIHarnessWith(t, func(deps *services.Dependencies) { deps.Blobs = store })
	admin := h.token("admin@college.edu", models.RoleAdmin)

	body, contentType := multipartBody(t, editor.UploadFieldName, "fig.png", pngImage(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/images", body)
	req.Header.Set("Content-Type", contentType)
	w := h.send(req, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode[editor.UploadResult](t, w).File.URL
	require.True(t, strings.HasPrefix(url, "/uploads/questions/"), url)

	w = h.do(http.MethodGet, url, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "sandbox")
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	// A scripted file that reached the store by other means is never
	// rendered inline.
	key, err := store.Put(context.Background(), "questions/legacy.svg", "image/svg+xml", strings.NewReader(scriptedSVG))
	require.NoError(t, err)
	w = h.do(http.MethodGet, "/uploads/"+key, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_HTTPUploaderAgainstUploadRoute(t *testing.T) {
	h := newAPIHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	uploader := editor.NewHTTPUploader(srv.URL+"/api/v1/uploads/images", h.token("admin@college.edu", models.RoleAdmin))
	res, err := uploader.Upload(context.Background(), editor.File{Name: "fig.png", Data: pngImage(t)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.True(t, strings.HasPrefix(res.File.URL, "data:image/png;base64,"))
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(nil)
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	restricted := corsConfig([]string{"http://localhost:5173"})
	assert.False(t, restricted.AllowAllOrigins)
	assert.True(t, restricted.AllowCredentials)
	assert.Equal(t, []string{"http://localhost:5173"}, restricted.AllowOrigins)
}
