package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/keepsake/book"
	"github.com/ByLCY/keepsake/layout"
	"github.com/ByLCY/keepsake/session"
)

// client 在请求之间保留 cookie。
type client struct {
	t       *testing.T
	srv     *Server
	cookies []*http.Cookie
}

func newClient(t *testing.T, exp Exporter) *client {
	t.Helper()
	if exp == nil {
		e, err := book.New(book.Options{Theme: layout.DefaultTheme()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = e.Close() })
		exp = e
	}
	srv := New(session.NewRegistry(time.Hour), exp, Options{SessionSecret: "test-secret", MaxUploadBytes: 1 << 20})
	return &client{t: t, srv: srv}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.srv.Echo.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return rec
}

func (c *client) form(method, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) upload(files map[string][]byte, mode string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile("photos", name)
		require.NoError(c.t, err)
		_, err = fw.Write(data)
		require.NoError(c.t, err)
	}
	if mode != "" {
		require.NoError(c.t, mw.WriteField("mode", mode))
	}
	require.NoError(c.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) state() State {
	c.t.Helper()
	rec := c.do(httptest.NewRequest(http.MethodGet, "/state", nil))
	require.Equal(c.t, http.StatusOK, rec.Code)
	var st State
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIndexWarnsWithoutPhotos(t *testing.T) {
	c := newClient(t, nil)
	rec := c.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload at least one photo.")
	assert.NotEmpty(t, c.cookies, "first visit must set the session cookie")
}

func TestExportWithoutPhotosIsBadRequest(t *testing.T) {
	c := newClient(t, nil)
	rec := c.form(http.MethodPost, "/export", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), layout.ErrNoPhotos.Error())
}

func TestEditFlowAndExport(t *testing.T) {
	c := newClient(t, nil)

	rec := c.upload(map[string][]byte{"a.png": pngData(t, 60, 40)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.upload(map[string][]byte{"b.png": pngData(t, 30, 50), "broken.jpg": []byte("nope")}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	st := c.state()
	require.Len(t, st.Photos, 3)
	assert.Equal(t, "a.png", st.Photos[0].Name)

	rec = c.form(http.MethodPost, "/photos/0/caption", url.Values{"caption": {"Sunset 🌅"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.form(http.MethodPost, "/photos/0/move", url.Values{"to": {"2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.form(http.MethodPost, "/meta", url.Values{"title": {"Us"}, "author": {"Alice"}, "recipient": {"Bob"}})
	require.Equal(t, http.StatusOK, rec.Code)

	st = c.state()
	assert.Equal(t, "a.png", st.Photos[2].Name)
	assert.Equal(t, "Sunset 🌅", st.Photos[2].Caption)
	assert.Equal(t, "Bob", st.Meta.Recipient)

	rec = c.do(httptest.NewRequest(http.MethodGet, "/photos/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = c.form(http.MethodPost, "/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), book.DefaultFilename)
	assert.Equal(t, "4", rec.Header().Get("X-Keepsake-Pages"))
	assert.Equal(t, "1", rec.Header().Get("X-Keepsake-Failures"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	req := httptest.NewRequest(http.MethodDelete, "/photos/1", nil)
	req.Header.Set("Accept", "application/json")
	rec = c.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, c.state().Photos, 2)
}

func TestReplaceModeAndErrors(t *testing.T) {
	c := newClient(t, nil)
	c.upload(map[string][]byte{"a.png": pngData(t, 10, 10), "b.png": pngData(t, 10, 10)}, "")
	c.form(http.MethodPost, "/photos/0/caption", url.Values{"caption": {"old"}})

	rec := c.upload(map[string][]byte{"c.png": pngData(t, 10, 10)}, "replace")
	require.Equal(t, http.StatusOK, rec.Code)
	st := c.state()
	require.Len(t, st.Photos, 1)
	assert.Equal(t, "c.png", st.Photos[0].Name)
	assert.Empty(t, st.Photos[0].Caption)

	assert.Equal(t, http.StatusNotFound, c.form(http.MethodPost, "/photos/5/caption", url.Values{"caption": {"x"}}).Code)
	assert.Equal(t, http.StatusBadRequest, c.form(http.MethodPost, "/photos/x/caption", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.form(http.MethodPost, "/photos/0/move", url.Values{"to": {"left"}}).Code)

	big := make([]byte, 2<<20)
	assert.Equal(t, http.StatusRequestEntityTooLarge, c.upload(map[string][]byte{"huge.png": big}, "").Code)
}

func TestBrowserFormsRedirect(t *testing.T) {
	c := newClient(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/meta", strings.NewReader("title=Hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := c.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

// blockingExporter 占用会话的忙碌状态直到 release 被关闭。
type blockingExporter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingExporter) Export(ctx context.Context, s *session.Session) (*book.Export, error) {
	_, done, err := s.BeginExport()
	if err != nil {
		return nil, err
	}
	defer done()
	close(b.started)
	<-b.release
	return &book.Export{PDF: []byte("%PDF-stub"), Filename: "x.pdf", Pages: 2}, nil
}

func TestMutationsDuringExportConflict(t *testing.T) {
	exp := &blockingExporter{started: make(chan struct{}), release: make(chan struct{})}
	c := newClient(t, exp)
	c.upload(map[string][]byte{"a.png": pngData(t, 10, 10)}, "")

	cookies := c.cookies
	finished := make(chan int)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/export", nil)
		for _, ck := range cookies {
			req.AddCookie(ck)
		}
		rec := httptest.NewRecorder()
		c.srv.Echo.ServeHTTP(rec, req)
		finished <- rec.Code
	}()
	<-exp.started

	assert.Equal(t, http.StatusConflict, c.form(http.MethodPost, "/photos/0/caption", url.Values{"caption": {"x"}}).Code)
	assert.Equal(t, http.StatusConflict, c.form(http.MethodPost, "/export", nil).Code)
	assert.True(t, c.state().Busy)

	close(exp.release)
	assert.Equal(t, http.StatusOK, <-finished)
	assert.Equal(t, http.StatusOK, c.form(http.MethodPost, "/photos/0/caption", url.Values{"caption": {"x"}}).Code)
}
