package api

import (
	"bytes"
	"clouddrop/file-api/middleware"
	"clouddrop/file-api/model"
	"clouddrop/file-api/pkg/security"
	"clouddrop/file-api/storage"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("upload.max_size", int64(10<<20))
	viper.Set("upload.allowed_types", []string{})

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.User{}, model.Upload{}, model.Stats{}))

	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	a := &API{
		DB:     db,
		Store:  store,
		Hasher: &security.Hasher{Cost: bcrypt.MinCost},
	}
	a.setupRouter()

	return a
}

func doJSON(a *API, method, path, body, email string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if email != "" {
		req.Header.Set(middleware.IdentityHeader, email)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, a *API, email, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if email != "" {
		req.Header.Set(middleware.IdentityHeader, email)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func register(t *testing.T, a *API, email, password string) {
	t.Helper()

	w := doJSON(a, http.MethodPost, "/api/register", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHeartbeat(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodHead, "/api/heartbeat", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/register", `{"email":"a@x.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "created", body["status"])

	// Same email again, different password
	w = doJSON(a, http.MethodPost, "/api/register", `{"email":"a@x.com","password":"pw2"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing password", `{"email":"a@x.com"}`},
		{"missing email", `{"password":"pw"}`},
		{"invalid email", `{"email":"nope","password":"pw"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(a, http.MethodPost, "/api/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	w := doJSON(a, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "ok", body["status"])

	// Wrong password and unknown email are indistinguishable
	w = doJSON(a, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	wrongPw := decode(t, w)["error"]

	w = doJSON(a, http.MethodPost, "/api/login", `{"email":"ghost@x.com","password":"pw1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, wrongPw, decode(t, w)["error"])

	w = doJSON(a, http.MethodPost, "/api/login", `{"email":"a@x.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginLegacyPlaintext(t *testing.T) {
	a := newTestAPI(t)

	// Rows imported from the old deployment hold plaintext passwords
	require.NoError(t, a.DB.Create(&model.User{
		ID:       "legacyuser0000..",
		Email:    "old@x.com",
		Password: "plain-secret",
	}).Error)

	w := doJSON(a, http.MethodPost, "/api/login", `{"email":"old@x.com","password":"plain-secret"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(a, http.MethodPost, "/api/login", `{"email":"old@x.com","password":"other"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadLifecycle(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	w := doUpload(t, a, "a@x.com", "file", "notes.txt", "hello")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "File uploaded successfully", body["message"])
	assert.Equal(t, "notes.txt", body["originalName"])
	assert.NotEmpty(t, body["storedName"])
	url, _ := body["url"].(string)
	require.True(t, strings.HasPrefix(url, "/api/uploads/file/"), "unexpected url %q", url)
	assert.Equal(t, url, body["filePath"])

	// List shows exactly the one upload, projected
	w = doJSON(a, http.MethodGet, "/api/uploads", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0]["originalName"])
	assert.Equal(t, body["storedName"], entries[0]["name"])
	assert.Equal(t, url, entries[0]["url"])

	// Fetch returns byte-identical content
	w = doJSON(a, http.MethodGet, url, "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")

	// Delete, then everything 404s
	id := strings.TrimPrefix(url, "/api/uploads/file/")
	w = doJSON(a, http.MethodDelete, "/api/uploads/"+id, "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "deleted", decode(t, w)["status"])

	w = doJSON(a, http.MethodGet, url, "", "a@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(a, http.MethodDelete, "/api/uploads/"+id, "", "a@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(a, http.MethodGet, "/api/uploads", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestUploadBinaryRoundTrip(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(i)
	}

	w := doUpload(t, a, "a@x.com", "file", "blob.bin", string(content))
	require.Equal(t, http.StatusOK, w.Code)
	url := decode(t, w)["url"].(string)

	w = doJSON(a, http.MethodGet, url, "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.Bytes())
}

func TestUploadRequiresFile(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	w := doUpload(t, a, "a@x.com", "", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doUpload(t, a, "a@x.com", "wrongfield", "notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentityRequired(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	// No identity header
	w := doJSON(a, http.MethodGet, "/api/uploads", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doUpload(t, a, "", "file", "notes.txt", "hello")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Claimed identity that isn't registered
	w = doJSON(a, http.MethodGet, "/api/uploads", "", "ghost@x.com")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOwnershipIsInvisible(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "owner@x.com", "pw1")
	register(t, a, "other@x.com", "pw2")

	w := doUpload(t, a, "owner@x.com", "file", "secret.txt", "classified")
	require.Equal(t, http.StatusOK, w.Code)
	url := decode(t, w)["url"].(string)
	id := strings.TrimPrefix(url, "/api/uploads/file/")

	// Another user's fetch and delete look exactly like a missing file
	w = doJSON(a, http.MethodGet, url, "", "other@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(a, http.MethodDelete, "/api/uploads/"+id, "", "other@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// And the owner is unaffected by the attempts
	w = doJSON(a, http.MethodGet, url, "", "owner@x.com")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "classified", w.Body.String())
}

func TestMalformedUploadID(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	w := doJSON(a, http.MethodGet, "/api/uploads/file/not-a-number", "", "a@x.com")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(a, http.MethodDelete, "/api/uploads/not-a-number", "", "a@x.com")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNewestFirst(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	for i, ts := range []int64{100, 200, 300} {
		require.NoError(t, a.DB.Create(&model.Upload{
			OwnerEmail:   "a@x.com",
			OriginalName: fmt.Sprintf("f%d.txt", i),
			StoredName:   fmt.Sprintf("stored%d.txt", i),
			StoragePath:  fmt.Sprintf("a_x.com/stored%d.txt", i),
			CreatedAt:    ts,
		}).Error)
	}

	w := doJSON(a, http.MethodGet, "/api/uploads", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "f2.txt", entries[0]["originalName"])
	assert.Equal(t, "f1.txt", entries[1]["originalName"])
	assert.Equal(t, "f0.txt", entries[2]["originalName"])
}

func TestListAfterCreatesAndDelete(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	urls := make([]string, 0, 3)
	for i := range 3 {
		w := doUpload(t, a, "a@x.com", "file", fmt.Sprintf("f%d.txt", i), "content")
		require.Equal(t, http.StatusOK, w.Code)
		urls = append(urls, decode(t, w)["url"].(string))
	}

	id := strings.TrimPrefix(urls[1], "/api/uploads/file/")
	w := doJSON(a, http.MethodDelete, "/api/uploads/"+id, "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(a, http.MethodGet, "/api/uploads", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, urls[1], e["url"])
	}
}

func TestUserStats(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	w := doUpload(t, a, "a@x.com", "file", "notes.txt", "hello")
	require.Equal(t, http.StatusOK, w.Code)
	url := decode(t, w)["url"].(string)

	w = doJSON(a, http.MethodGet, "/api/users/stats", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode(t, w)
	assert.Equal(t, float64(5), stats["usedStorage"])
	assert.Equal(t, float64(1), stats["uploadedFiles"])

	id := strings.TrimPrefix(url, "/api/uploads/file/")
	w = doJSON(a, http.MethodDelete, "/api/uploads/"+id, "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(a, http.MethodGet, "/api/users/stats", "", "a@x.com")
	require.Equal(t, http.StatusOK, w.Code)

	stats = decode(t, w)
	assert.Equal(t, float64(0), stats["usedStorage"])
	assert.Equal(t, float64(0), stats["uploadedFiles"])
}

func TestDatabaseNotReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	viper.Set("upload.max_size", int64(10<<20))

	a := &API{Hasher: &security.Hasher{Cost: bcrypt.MinCost}}
	a.setupRouter()

	w := doJSON(a, http.MethodPost, "/api/register", `{"email":"a@x.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(a, http.MethodPost, "/api/login", `{"email":"a@x.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(a, http.MethodGet, "/api/uploads", "", "a@x.com")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFetchWithMissingBlob(t *testing.T) {
	a := newTestAPI(t)
	register(t, a, "a@x.com", "pw1")

	// A record whose blob never made it to disk, as after an
	// interrupted delete
	require.NoError(t, a.DB.Create(&model.Upload{
		OwnerEmail:   "a@x.com",
		OriginalName: "gone.txt",
		StoredName:   "gone.txt",
		StoragePath:  "a_x.com/gone.txt",
		CreatedAt:    1,
	}).Error)

	var up model.Upload
	require.NoError(t, a.DB.Where("owner_email = ?", "a@x.com").First(&up).Error)

	w := doJSON(a, http.MethodGet, fmt.Sprintf("/api/uploads/file/%d", up.ID), "", "a@x.com")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
