package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/brunobiangulo/goinforme"
	"github.com/brunobiangulo/goinforme/export"
)

// Client-facing messages, kept in the language of the reports.
const (
	msgNoFile     = "No se envió ningún archivo"
	msgNotPDF     = "Archivo PDF inválido"
	msgNoText     = "No se pudo extraer texto del PDF"
	msgNoSections = "No se encontró información relevante en el PDF"
	msgTooLarge   = "El archivo excede el tamaño permitido"
	msgNotFound   = "No existe un resultado para ese documento"
	msgInternal   = "Error interno al procesar el PDF"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type handler struct {
	engine    goinforme.Engine
	maxUpload int64
	timeout   time.Duration
}

func newHandler(e goinforme.Engine, cfg goinforme.Config) *handler {
	h := &handler{
		engine:    e,
		maxUpload: cfg.MaxUploadBytes,
		timeout:   time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 32 << 20
	}
	if h.timeout <= 0 {
		h.timeout = 2 * time.Minute
	}
	return h
}

// POST /process-pdf
// Multipart upload with the report in the "file" field.
func (h *handler) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	// Reject by name before reading the body.
	if _, err := goinforme.DocumentName(header.Filename); err != nil {
		h.writeProcessError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgInternal)
		slog.Error("reading upload", "error", err)
		return
	}

	result, err := h.engine.Process(ctx, header.Filename, data)
	if err != nil {
		slog.Warn("process failed", "filename", header.Filename, "error", err)
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) writeProcessError(w http.ResponseWriter, err error) {
	var upstream *goinforme.UpstreamError
	switch {
	case errors.Is(err, goinforme.ErrNoFile):
		writeError(w, http.StatusBadRequest, msgNoFile)
	case errors.Is(err, goinforme.ErrNotPDF):
		writeError(w, http.StatusBadRequest, msgNotPDF)
	case errors.Is(err, goinforme.ErrNoText):
		writeError(w, http.StatusBadRequest, msgNoText)
	case errors.Is(err, goinforme.ErrNoSections):
		writeError(w, http.StatusBadRequest, msgNoSections)
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":    upstream.Error(),
			"response": upstream.Raw,
		})
	default:
		slog.Error("process error", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// GET /results/{name}
func (h *handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Result(r.Context(), r.PathValue("name"))
	if errors.Is(err, goinforme.ErrResultNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read result")
		slog.Error("get result error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /results
func (h *handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.Results(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list results")
		slog.Error("list results error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// GET /export.xlsx
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.Results(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list results")
		slog.Error("export error", "error", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, results); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		slog.Error("export error", "error", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="informes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
