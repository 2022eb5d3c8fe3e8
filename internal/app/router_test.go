package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"qrstudio/internal/auth"
	"qrstudio/internal/config"
	dom "qrstudio/internal/domain"
	"qrstudio/internal/logging"
	"qrstudio/internal/render"
	"qrstudio/internal/repo"
	"qrstudio/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router    *gin.Engine
	creations *repo.MemCreationRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploads, err := upload.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	creations := repo.NewMemCreationRepo()

	cfg := config.Config{
		HTTP:   config.HTTPConfig{CORSOrigins: []string{"http://localhost:3000"}},
		Upload: config.UploadConfig{MaxFileBytes: 1 << 20, MaxPhotoBytes: 1 << 20},
		QR:     config.QRConfig{ThumbnailSize: 200, MinSize: 64, MaxSize: 2048},
	}
	r := NewRouter(cfg, Deps{
		Users:     repo.NewMemUserRepo(),
		Creations: creations,
		Sessions:  auth.NewMemStore(time.Hour),
		Renderer:  render.NewQRRenderer(cfg.QR.MinSize, cfg.QR.MaxSize),
		Uploads:   uploads,
		Logger:    logging.Nop(),
	})
	return &testEnv{router: r, creations: creations}
}

// client keeps the session cookie between requests like a browser.
type client struct {
	t      *testing.T
	env    *testEnv
	cookie *http.Cookie
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e}
}

func (c *client) send(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.CookieName {
			if ck.MaxAge < 0 || ck.Value == "" {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	return w
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

func (c *client) multipart(path, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func (c *client) register(username string) dom.Identity {
	c.t.Helper()
	w := c.json(http.MethodPost, "/api/auth/register", map[string]string{
		"email": username + "@example.com", "name": strings.ToUpper(username[:1]) + username[1:],
		"username": username, "password": "secret1",
	})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		User dom.Identity `json:"user"`
	}
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User
}

func (c *client) generate(kind string, data any, options any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.json(http.MethodPost, "/api/qr", map[string]any{"type": kind, "data": data, "options": options})
}

func creationID(t *testing.T, w *httptest.ResponseRecorder) int64 {
	t.Helper()
	id, err := strconv.ParseInt(w.Header().Get("X-Creation-Id"), 10, 64)
	require.NoError(t, err)
	return id
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	w := c.json(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	me := c.register("ana")
	assert.Equal(t, "ana@example.com", me.Email)
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)

	w = c.json(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"username":"ana"`)

	w = c.json(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, c.cookie)
	w = c.json(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "ana@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = c.json(http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	env := newTestEnv(t)
	env.client(t).register("ana")

	c := env.client(t)
	wrong := c.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "ana", "password": "wrong-pw"})
	unknown := c.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "bob", "password": "wrong-pw"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	empty := c.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestRegisterRejects(t *testing.T) {
	env := newTestEnv(t)
	env.client(t).register("ana")

	c := env.client(t)
	w := c.json(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "ana@example.com", "name": "Other", "username": "other", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, c.cookie)

	w = c.json(http.MethodPost, "/api/auth/register", map[string]string{
		"email": "x@example.com", "name": "X", "username": "x", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"password"`)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/qr"},
		{http.MethodGet, "/api/creations"},
		{http.MethodGet, "/api/creations/1/edit"},
		{http.MethodGet, "/api/creations/1/image"},
		{http.MethodGet, "/api/creations/1/download"},
		{http.MethodPut, "/api/creations/1"},
		{http.MethodDelete, "/api/creations/1"},
		{http.MethodPost, "/upload"},
		{http.MethodPost, "/upload/profile"},
	} {
		w := c.json(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
}

func TestCreationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ana")

	w := c.generate("wifi", map[string]string{"ssid": "Home", "password": "secret", "security": "WPA2"}, map[string]any{"size": 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="qr-code-wifi.png"`, w.Header().Get("Content-Disposition"))
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	id := creationID(t, w)

	w = c.json(http.MethodGet, "/api/creations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Creations []map[string]any `json:"creations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Creations, 1)
	assert.Equal(t, "wifi", list.Creations[0]["type"])
	assert.Len(t, list.Creations[0]["publicId"], 16)
	assert.Nil(t, list.Creations[0]["photo_url"])

	path := "/api/creations/" + strconv.FormatInt(id, 10)

	w = c.json(http.MethodGet, path+"/image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	img, err = png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	w = c.json(http.MethodGet, path+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf(`attachment; filename="qr-code-wifi-%d.png"`, id), w.Header().Get("Content-Disposition"))
	img, err = png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	w = c.json(http.MethodPut, path, map[string]any{
		"type": "text", "data": map[string]string{"text": "hello"},
		"options": map[string]any{"color": "#ff6600", "bgColor": "#1a1a1a", "size": 512},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.json(http.MethodGet, path+"/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"hello"}`, string(rawField(t, w.Body.Bytes(), "data")))
	assert.JSONEq(t, `{"color":"#ff6600","bgColor":"#1a1a1a","size":512}`, string(rawField(t, w.Body.Bytes(), "options")))

	w = c.json(http.MethodPut, path, map[string]any{"type": "url", "data": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"url"`)

	w = c.json(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.json(http.MethodGet, path+"/edit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = c.json(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func rawField(t *testing.T, body []byte, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return m[key]
}

func TestGenerate_BadRequests(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ana")

	w := c.generate("sms", map[string]string{"to": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.generate("wifi", map[string]string{"password": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"ssid"`)

	w = c.generate("url", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.generate("url", []int{1, 2}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/qr", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w = c.send(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOwnerScoping(t *testing.T) {
	env := newTestEnv(t)
	ana := env.client(t)
	ana.register("ana")
	bob := env.client(t)
	bob.register("bob")

	w := ana.generate("url", map[string]string{"url": "https://ana.example"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	path := "/api/creations/" + strconv.FormatInt(creationID(t, w), 10)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, path + "/edit"},
		{http.MethodGet, path + "/image"},
		{http.MethodGet, path + "/download"},
		{http.MethodDelete, path},
	} {
		w := bob.json(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
	}
	w = bob.json(http.MethodPut, path, map[string]any{"type": "text", "data": map[string]string{"text": "mine"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = bob.json(http.MethodGet, "/api/creations", nil)
	assert.JSONEq(t, `{"creations":[]}`, w.Body.String())

	for _, bad := range []string{"abc", "0", "-3", "99999999999999999999"} {
		w := ana.json(http.MethodGet, "/api/creations/"+bad+"/edit", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, bad)
		w = ana.json(http.MethodDelete, "/api/creations/"+bad, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, bad)
	}

	w = ana.json(http.MethodGet, path+"/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://ana.example"}`, string(rawField(t, w.Body.Bytes(), "data")))
}

func TestVCardPublicPage(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ana")

	w := c.generate("vcard", map[string]string{"name": "Ana Lima", "company": "Acme", "photoUrl": "/uploads/profiles/p.png"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := creationID(t, w)

	w = c.json(http.MethodGet, "/api/creations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"vcardUrl":"http://example.com/vcard/%d"`, id))
	assert.Contains(t, w.Body.String(), `"photo_url":"/uploads/profiles/p.png"`)

	anon := env.client(t)
	w = anon.json(http.MethodGet, fmt.Sprintf("/vcard/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Ana Lima")
	assert.Contains(t, w.Body.String(), `src="/uploads/profiles/p.png"`)

	w = anon.json(http.MethodGet, "/vcard/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = anon.json(http.MethodGet, "/vcard/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCorruptRows(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	me := c.register("ana")

	w := c.generate("text", map[string]string{"text": "fine"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	bad := env.creations.Put(dom.CreationRecord{UserID: me.ID, PublicID: "broken", Kind: "text", FieldsBlob: `{"text":"cut`})

	w = c.json(http.MethodGet, "/api/creations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fine")
	assert.NotContains(t, w.Body.String(), "broken")

	w = c.json(http.MethodGet, fmt.Sprintf("/api/creations/%d/edit", bad.ID), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	w = c.json(http.MethodGet, fmt.Sprintf("/api/creations/%d/image", bad.ID), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUploadAndFileQR(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ana")

	w := c.multipart("/upload", "file", "menu.pdf", "application/pdf", []byte("%PDF-1.4 menu"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up struct {
		FileID string `json:"fileId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	require.NotEmpty(t, up.FileID)

	w = env.client(t).json(http.MethodGet, "/download/"+up.FileID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 menu", w.Body.String())
	assert.Equal(t, `attachment; filename=menu.pdf`, w.Header().Get("Content-Disposition"))

	w = c.generate("file", map[string]string{"fileId": up.FileID}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.multipart("/upload", "file", "tool.exe", "application/x-msdownload", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.multipart("/upload", "wrong", "menu.pdf", "application/pdf", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.client(t).json(http.MethodGet, "/download/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadProfilePhoto(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	c.register("ana")

	w := c.multipart("/upload/profile", "photo", "me.png", "image/png", []byte("not really a png"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up struct {
		PhotoURL string `json:"photoUrl"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.Equal(t, "/uploads/profiles/"+up.Filename, up.PhotoURL)

	w = env.client(t).json(http.MethodGet, up.PhotoURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not really a png", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = c.multipart("/upload/profile", "photo", "cv.pdf", "application/pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	for _, path := range []string{"/", "/health", "/version"} {
		w := c.json(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
