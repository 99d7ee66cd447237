package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/goinforme"
	"github.com/brunobiangulo/goinforme/llm"
	"github.com/brunobiangulo/goinforme/parser"
)

const report = "3.2 VISITA TÉCNICA\n2023-05-01\n4.1 ALMACENAMIENTO\nPZ1\n4.1.3 Antecedentes\nradicado 2014ER216333"

type stubProvider struct {
	content string
	err     error
	reqIDs  []string
}

func (s *stubProvider) Chat(ctx context.Context, _ llm.ChatRequest) (*llm.ChatResponse, error) {
	s.reqIDs = append(s.reqIDs, llm.RequestID(ctx))
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.content, Raw: `{"raw":true}`}, nil
}

func newTestRouter(t *testing.T, p *stubProvider, text string, apiKey string) http.Handler {
	t.Helper()
	cfg := goinforme.DefaultConfig()
	cfg.Store = "memory"
	e, err := goinforme.New(cfg,
		goinforme.WithProvider(p),
		goinforme.WithExtractor(parser.ExtractorFunc(func(context.Context, []byte) (string, error) {
			return text, nil
		})),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return newRouter(e, cfg, apiKey, "")
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/process-pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

var pdf = []byte("%PDF-1.7\n...")

const goodReply = "```json\n{\"visita_tecnica_fecha\": \"2023-05-01\", \"pozos_afectados\": \"PZ1\", \"antecedentes\": \"2014ER216333\"}\n```"

// ---------------------------------------------------------------------------
// POST /process-pdf
// ---------------------------------------------------------------------------

func TestProcessPDF(t *testing.T) {
	p := &stubProvider{content: goodReply}
	router := newTestRouter(t, p, report, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "informe.pdf", pdf))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	got := decode(t, rec)
	if got["visita_tecnica_fecha"] != "2023-05-01" || got["pozos_afectados"] != "PZ1" || got["antecedentes"] != "2014ER216333" {
		t.Errorf("body = %v", got)
	}
	if len(got) != 3 {
		t.Errorf("expected exactly three keys, got %v", got)
	}

	// The request id handed to the model matches the response header.
	id := rec.Header().Get("X-Request-ID")
	if id == "" || len(p.reqIDs) != 1 || p.reqIDs[0] != id {
		t.Errorf("request id header %q, model saw %v", id, p.reqIDs)
	}
}

func TestProcessPDFClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		text    string
		wantMsg string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/process-pdf", strings.NewReader("{}"))
			},
			text:    report,
			wantMsg: msgNoFile,
		},
		{
			name:    "wrong field",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "documento", "informe.pdf", pdf) },
			text:    report,
			wantMsg: msgNoFile,
		},
		{
			name:    "wrong extension",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "file", "informe.docx", pdf) },
			text:    report,
			wantMsg: msgNotPDF,
		},
		{
			name:    "not a pdf",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "file", "informe.pdf", []byte("hola")) },
			text:    report,
			wantMsg: msgNotPDF,
		},
		{
			name:    "no text",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "file", "escaneado.pdf", pdf) },
			text:    "",
			wantMsg: msgNoText,
		},
		{
			name:    "no sections",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "file", "otro.pdf", pdf) },
			text:    "un acta sin numerales",
			wantMsg: msgNoSections,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubProvider{content: goodReply}
			router := newTestRouter(t, p, tt.text, "")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tt.req(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decode(t, rec)["error"]; got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
			if len(p.reqIDs) != 0 {
				t.Error("model must not be called")
			}
		})
	}
}

func TestProcessPDFUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		p       *stubProvider
		wantRaw string
	}{
		{"malformed reply", &stubProvider{content: "no es json"}, `{"raw":true}`},
		{"api error", &stubProvider{err: &llm.APIError{StatusCode: 402, Body: `{"error":"Insufficient Balance"}`}}, `{"error":"Insufficient Balance"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, tt.p, report, "")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, uploadRequest(t, "file", "informe.pdf", pdf))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			got := decode(t, rec)
			if got["error"] == "" {
				t.Error("missing error message")
			}
			if got["response"] != tt.wantRaw {
				t.Errorf("response = %q, want %q", got["response"], tt.wantRaw)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Results and export
// ---------------------------------------------------------------------------

func TestResultsAndExport(t *testing.T) {
	router := newTestRouter(t, &stubProvider{content: goodReply}, report, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/informe", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing result status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "informe.pdf", pdf))
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/informe", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["pozos_afectados"] != "PZ1" {
		t.Fatalf("get result status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results", nil))
	var list struct {
		Results []goinforme.NamedResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Results) != 1 || list.Results[0].Name != "informe" {
		t.Errorf("results = %+v", list.Results)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("export status = %d, content-type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(io.Reader(rec.Body))
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Informes")
	if err != nil || len(rows) != 2 || rows[1][0] != "informe" {
		t.Errorf("rows = %v, err = %v", rows, err)
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestAuth(t *testing.T) {
	router := newTestRouter(t, &stubProvider{content: goodReply}, report, "secret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health without auth = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "file", "informe.pdf", pdf))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("process without auth = %d, want 401", rec.Code)
	}

	req := uploadRequest(t, "file", "informe.pdf", pdf)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("process with auth = %d, want 200", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	p := &stubProvider{content: goodReply}
	router := newTestRouter(t, p, report, "")

	req := uploadRequest(t, "file", "informe.pdf", pdf)
	req.Header.Set("X-Request-ID", "cliente-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "cliente-123" {
		t.Errorf("response id = %q", got)
	}
	if len(p.reqIDs) != 1 || p.reqIDs[0] != "cliente-123" {
		t.Errorf("model saw %v", p.reqIDs)
	}
}

func TestRecovery(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := corsMiddleware("https://informes.example", http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/process-pdf", nil)
	req.Header.Set("Origin", "https://informes.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://informes.example" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORSOriginList(t *testing.T) {
	h := corsMiddleware("https://a.example, https://b.example", http.NotFoundHandler())
	tests := []struct {
		origin string
		want   string
	}{
		{"https://a.example", "https://a.example"},
		{"https://b.example", "https://b.example"},
		{"https://evil.example", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
			t.Errorf("origin %q: allow-origin = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestCORSWildcard(t *testing.T) {
	h := corsMiddleware("*", http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://any.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}
