package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/intake/internal/config"
	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/model"
	"github.com/dharsanguruparan/intake/internal/queue"
	"github.com/dharsanguruparan/intake/internal/reportlog"
)

var fixedNow = time.Date(2024, 5, 1, 10, 4, 5, 123_000_000, time.UTC)

type recordingDispatcher struct {
	payloads []queue.ArchivePayload
	err      error
}

func (d *recordingDispatcher) EnqueueArchive(_ context.Context, p queue.ArchivePayload) error {
	d.payloads = append(d.payloads, p)
	return d.err
}

type fixture struct {
	t          *testing.T
	cfg        *config.Config
	srv        *Server
	reports    *reportlog.JSONFile
	logPath    string
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Address:           ":0",
		PublicDir:         filepath.Join(dir, "public"),
		MaxFileSize:       1 << 20,
		AllowedExtensions: intake.DefaultExtensions,
		Blacklist:         intake.DefaultBlacklist,
	}
	for _, m := range mutate {
		m(cfg)
	}
	logPath := filepath.Join(dir, "db", "laporan.json")
	reports, err := reportlog.NewJSONFile(logPath)
	require.NoError(t, err)
	dispatcher := &recordingDispatcher{}
	srv, err := New(cfg, reports, dispatcher, nil)
	require.NoError(t, err)
	srv.now = func() time.Time { return fixedNow }
	return &fixture{t: t, cfg: cfg, srv: srv, reports: reports, logPath: logPath, dispatcher: dispatcher}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(field, name, content string) *httptest.ResponseRecorder {
	f.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(f.t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(f.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(f.t, err)
	require.NoError(f.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.do(req)
}

func (f *fixture) listFiles() []string {
	f.t.Helper()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))
	require.Equal(f.t, http.StatusOK, rec.Code)
	var body struct {
		Files []string `json:"files"`
	}
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Files
}

func (f *fixture) report(value string) *httptest.ResponseRecorder {
	form := url.Values{"laporan": {value}}
	req := httptest.NewRequest(http.MethodPost, "/api/lapor", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func (f *fixture) logBytes() []byte {
	data, err := os.ReadFile(f.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(f.t, err)
	return data
}

func (f *fixture) records() []model.ReportRecord {
	records, err := f.reports.List(context.Background())
	require.NoError(f.t, err)
	return records
}

func TestUpload_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("file", "page.html", "<p>hello</p>")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Upload sukses! Akses di: /public/page.html", rec.Body.String())
	data, err := os.ReadFile(filepath.Join(f.cfg.PublicDir, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", string(data))
	assert.Equal(t, []string{"page.html"}, f.listFiles())

	require.Len(t, f.dispatcher.payloads, 1)
	p := f.dispatcher.payloads[0]
	assert.Equal(t, "page.html", p.FileName)
	assert.True(t, strings.HasPrefix(p.ObjectKey, "uploads/"))
	assert.True(t, strings.HasSuffix(p.ObjectKey, "/page.html"))
}

func TestUpload_AcceptedNamesAreListed(t *testing.T) {
	f := newFixture(t)
	names := []string{"a.html", "B.TXT", "Mixed.Html", "with space.txt"}
	for _, name := range names {
		rec := f.upload("file", name, "x")
		require.Equal(t, http.StatusOK, rec.Code, name)
	}
	assert.ElementsMatch(t, names, f.listFiles())
}

func TestUpload_OverwritesSameName(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload("file", "note.txt", "first").Code)
	require.Equal(t, http.StatusOK, f.upload("file", "note.txt", "second").Code)

	data, err := os.ReadFile(filepath.Join(f.cfg.PublicDir, "note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestUpload_BlacklistedName(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("file", "INDEX.HTML", "<h1>pwned</h1>")

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Nama file ini diblokir!", rec.Body.String())
	_, err := os.Stat(filepath.Join(f.cfg.PublicDir, "INDEX.HTML"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, f.listFiles())
	assert.Empty(t, f.dispatcher.payloads)
}

func TestUpload_BlacklistedNameLeavesExistingFileAlone(t *testing.T) {
	f := newFixture(t)
	protected := filepath.Join(f.cfg.PublicDir, "lapor.html")
	require.NoError(t, os.WriteFile(protected, []byte("original"), 0o600))

	rec := f.upload("file", "lapor.html", "replacement")

	require.Equal(t, http.StatusForbidden, rec.Code)
	data, err := os.ReadFile(protected)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestUpload_DisallowedExtension(t *testing.T) {
	f := newFixture(t)

	for name, ext := range map[string]string{"shell.php": ".php", "image.PNG": ".png", "README": "", ".html": ""} {
		rec := f.upload("file", name, "payload")
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Equal(t, `[!] Ekstensi "`+ext+`" ga boleh, jangan ngeyel!`, rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	}

	entries, err := os.ReadDir(f.cfg.PublicDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "public directory must not be modified")
}

func TestUpload_TraversalNameIsReducedToBase(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("file", "../../escape.txt", "x")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Upload sukses! Akses di: /public/escape.txt", rec.Body.String())
	_, err := os.Stat(filepath.Join(f.cfg.PublicDir, "escape.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(f.cfg.PublicDir), "escape.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_MissingFile(t *testing.T) {
	f := newFixture(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("file", "not a file"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File tidak ditemukan!", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File tidak ditemukan!", rec.Body.String())
}

func TestUpload_UnexpectedField(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("attachment", "a.html", "x")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unexpected field", rec.Body.String())
}

func TestUpload_SecondFileIsUnexpected(t *testing.T) {
	for name, second := range map[string]string{
		"same field":  "file",
		"other field": "attachment",
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)

			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			for i, field := range []string{"file", second} {
				fw, err := mw.CreateFormFile(field, []string{"one.txt", "two.txt"}[i])
				require.NoError(t, err)
				_, err = fw.Write([]byte("x"))
				require.NoError(t, err)
			}
			require.NoError(t, mw.Close())
			req := httptest.NewRequest(http.MethodPost, "/upload", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := f.do(req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Unexpected field", rec.Body.String())
			entries, err := os.ReadDir(f.cfg.PublicDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "neither file nor its temporary copy remains")
			assert.Empty(t, f.dispatcher.payloads)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MaxFileSize = 16 })

	rec := f.upload("file", "big.txt", strings.Repeat("a", 64<<10))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	_, err := os.Stat(filepath.Join(f.cfg.PublicDir, "big.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUpload_DispatchFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("redis down")

	rec := f.upload("file", "a.txt", "x")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListFiles_FiltersEntries(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a.html", "b.txt", "c.php", ".hidden", "d.HTML"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.cfg.PublicDir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(f.cfg.PublicDir, "dir.html"), 0o750))

	assert.Equal(t, []string{"a.html", "b.txt", "d.HTML"}, f.listFiles())
}

func TestListFiles_EmptyIsArray(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestListFiles_ReadFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.RemoveAll(f.cfg.PublicDir))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/files", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Gagal membaca file!", rec.Body.String())
}

func TestReport_Accepted(t *testing.T) {
	f := newFixture(t)

	rec := f.report("/a.html")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Laporan diterima. Terima kasih!"}`, rec.Body.String())
	records := f.records()
	require.Len(t, records, 1)
	assert.Equal(t, "/a.html", records[0].Path)
	assert.Equal(t, "2024-05-01T10:04:05.123Z", records[0].Waktu)
	assert.Equal(t, "192.0.2.1", records[0].IP)
	_, err := time.Parse(time.RFC3339Nano, records[0].Waktu)
	assert.NoError(t, err)
}

func TestReport_TrimsAndAppends(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.report("/first.html").Code)

	rec := f.report("   /docs/second.html\t")

	require.Equal(t, http.StatusOK, rec.Code)
	records := f.records()
	require.Len(t, records, 2)
	assert.Equal(t, "/docs/second.html", records[1].Path)
}

func TestReport_RejectedLeavesLogUnchanged(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.report("/seed.html").Code)
	before := f.logBytes()

	cases := []string{
		"/a.h",
		"/" + strings.Repeat("x", 100) + ".html",
		"a.html/",
		"/index.htm",
		"/<script>.html",
		"/a`b.html",
		`/a"b.html`,
		"/a'b.html",
		"/a|b.html",
		"/a;b.html",
		"/a&b.html",
		"/../x.html",
	}
	for _, value := range cases {
		rec := f.report(value)
		require.Equal(t, http.StatusBadRequest, rec.Code, value)
		assert.JSONEq(t, `{"error":"Format laporan tidak diizinkan."}`, rec.Body.String(), value)
	}
	assert.Equal(t, before, f.logBytes())
}

func TestReport_MissingField(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/lapor", strings.NewReader("other=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Laporan tidak valid."}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/lapor", strings.NewReader("laporan=/a.html&laporan=/b.html"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.logBytes(), "log file is created lazily")
}

func TestReport_JSONBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/lapor", strings.NewReader(`{"laporan":"/json.html"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/json.html", f.records()[0].Path)

	req = httptest.NewRequest(http.MethodPost, "/api/lapor", strings.NewReader(`{"laporan":["/x.html"]}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Laporan tidak valid."}`, rec.Body.String())
}

type failingLog struct {
	reportlog.Log
	panics bool
}

func (l failingLog) Append(context.Context, model.ReportRecord) error {
	if l.panics {
		panic("boom")
	}
	return errors.New("disk full")
}

func TestReport_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.srv.reports = failingLog{}

	rec := f.report("/a.html")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Gagal menyimpan laporan."}`, rec.Body.String())
}

func TestRecoverPanics(t *testing.T) {
	f := newFixture(t)
	f.srv.reports = failingLog{panics: true}

	rec := f.report("/a.html")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPages(t *testing.T) {
	f := newFixture(t)
	for path, marker := range map[string]string{
		"/":         "<title>Upload File</title>",
		"/lapor":    "<title>Lapor Halaman</title>",
		"/tutorial": "<title>Tutorial</title>",
	} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), marker, path)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"), path)
	}
}

func TestPages_ViewsDirOverride(t *testing.T) {
	views := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(views, "tutorial.html"), []byte("<p>custom</p>"), 0o600))
	f := newFixture(t, func(c *config.Config) { c.ViewsDir = views })

	rec := f.do(httptest.NewRequest(http.MethodGet, "/tutorial", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>custom</p>", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/lapor", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_MissingViewsDir(t *testing.T) {
	cfg := &config.Config{PublicDir: t.TempDir(), ViewsDir: filepath.Join(t.TempDir(), "nope")}
	_, err := New(cfg, reportlog.NewMemory(), nil, nil)
	require.Error(t, err)
}

func TestTrollRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mau ngapain sih mas?", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestPublicFiles(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.upload("file", "hello.txt", "hi there").Code)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/public/hello.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi there", rec.Body.String())

	rec = f.do(httptest.NewRequest(http.MethodGet, "/public/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/public/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/upload", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = f.do(req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRejectionResponse_Unknown(t *testing.T) {
	status, msg := rejectionResponse(intake.Reject(intake.Reason(42), ""))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Permintaan tidak valid.", msg)
}
