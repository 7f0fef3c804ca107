package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"entrysummary/internal/model"
	"entrysummary/internal/pipeline"
	"entrysummary/internal/store"
)

const sampleJSON = `{"entry_summary":{
	"entry_number":"KX-0711086-1",
	"line_items":[
		{"line_number":"001","primary_hts":{"hts_code":"6910.10.0030","rate":"FREE","entered_value":"1000",
			"additional_hts_codes":[{"hts_code":"9903.01.24","rate":"10%","duty_amount":"100"}]}},
		{"line_number":"INV1","description_of_merchandise":"Commercial Invoice #: 20250810-2"}
	]
}}`

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()

	st, err := store.New(store.MemoryPath)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	coordinator := pipeline.NewCoordinator(nil, st, nil, pipeline.Options{ExportDir: t.TempDir()})
	h := NewHandler(coordinator, st, Options{Version: "test", MaxUploadBytes: 1 << 20})

	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r, st
}

func doRequest(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, filename string, content []byte) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

func TestProcessJSONData_AndOneShotDownload(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/process-json-data", []byte(sampleJSON), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		JobID         string            `json:"jobId"`
		RowCount      int               `json:"rowCount"`
		Rows          []json.RawMessage `json:"rows"`
		DownloadToken string            `json:"downloadToken"`
		DownloadURL   string            `json:"downloadUrl"`
		Expand        struct {
			FallbackInvoiceNumber string `json:"fallbackInvoiceNumber"`
		} `json:"expand"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" || resp.RowCount != 2 || len(resp.Rows) != 2 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if resp.Expand.FallbackInvoiceNumber != "20250810-2" {
		t.Fatalf("expand report missing: %s", w.Body.String())
	}
	if resp.DownloadToken == "" || !strings.HasSuffix(resp.DownloadURL, resp.DownloadToken) {
		t.Fatalf("missing download token: %s", w.Body.String())
	}

	w = doRequest(r, http.MethodGet, resp.DownloadURL, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("download status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type=%q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatalf("download is not an xlsx archive")
	}

	w = doRequest(r, http.MethodGet, resp.DownloadURL, nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second download should be 404, got %d", w.Code)
	}
}

func TestProcessJSONData_Errors(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	if w := doRequest(r, http.MethodPost, "/api/process-json-data", nil, "application/json"); w.Code != http.StatusBadRequest {
		t.Fatalf("empty body want 400 got %d", w.Code)
	}
	w := doRequest(r, http.MethodPost, "/api/process-json-data", []byte("not json at all"), "application/json")
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "error") {
		t.Fatalf("invalid payload want 400 got %d %s", w.Code, w.Body.String())
	}
	big := bytes.Repeat([]byte(" "), 2<<20)
	if w := doRequest(r, http.MethodPost, "/api/process-json-data", big, "application/json"); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body want 413 got %d", w.Code)
	}
}

func TestProcessJSONFile(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	body, ct := multipartBody(t, "entry.txt", []byte(sampleJSON))
	if w := doRequest(r, http.MethodPost, "/api/process-json", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("non-json extension want 400 got %d", w.Code)
	}

	body, ct = multipartBody(t, "entry.json", []byte(sampleJSON))
	w := doRequest(r, http.MethodPost, "/api/process-json?download=1", body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "entry_") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	if w := doRequest(r, http.MethodPost, "/api/upload", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file want 400 got %d", w.Code)
	}
	body, ct := multipartBody(t, "7501.pdf", []byte(sampleJSON))
	w := doRequest(r, http.MethodPost, "/api/upload", body, ct)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "only PDF") {
		t.Fatalf("want 400 for json disguised as pdf, got %d %s", w.Code, w.Body.String())
	}
}

func TestFetchByRunID(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	if w := doRequest(r, http.MethodPost, "/api/fetch-by-runid", []byte(`{}`), "application/json"); w.Code != http.StatusBadRequest {
		t.Fatalf("missing run_id want 400 got %d", w.Code)
	}
	w := doRequest(r, http.MethodPost, "/api/fetch-by-runid", []byte(`{"run_id":"run-1"}`), "application/json")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no extractor want 503 got %d %s", w.Code, w.Body.String())
	}
}

func TestJobsAndStatus(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/process-json-data", []byte(sampleJSON), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("process status=%d", w.Code)
	}
	_ = doRequest(r, http.MethodPost, "/api/process-json-data", []byte("42"), "application/json")

	w = doRequest(r, http.MethodGet, "/api/jobs?limit=10", nil, "")
	var list struct {
		Items []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("want 2 jobs got %d: %s", len(list.Items), w.Body.String())
	}

	if w := doRequest(r, http.MethodGet, "/api/jobs/"+list.Items[0].ID, nil, ""); w.Code != http.StatusOK {
		t.Fatalf("get job want 200 got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/jobs/missing", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing job want 404 got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/jobs?limit=0", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 want 400 got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/status", nil, "")
	var status struct {
		Status  string         `json:"status"`
		Columns int            `json:"columns"`
		Jobs    map[string]int `json:"jobs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != "ok" || status.Columns != 80 {
		t.Fatalf("unexpected status: %s", w.Body.String())
	}
	if status.Jobs["completed"] != 1 || status.Jobs["failed"] != 1 {
		t.Fatalf("unexpected job counts: %v", status.Jobs)
	}
}

func TestListColumns(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/columns", nil, "")
	var resp struct {
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Columns) != 80 || resp.Columns[0] != model.ColShipmentID {
		t.Fatalf("unexpected columns: %v", resp.Columns)
	}
}
