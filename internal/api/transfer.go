package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/audit"
	"github.com/eugenenazirov/stowage/internal/export"
	"github.com/eugenenazirov/stowage/internal/importer"
)

const uploadField = "file"

type importResponse struct {
	Success       bool                `json:"success"`
	ItemsImported int                 `json:"itemsImported"`
	Errors        []importer.RowError `json:"errors"`
}

// handleImportItems replaces the item list with the rows of an uploaded
// CSV or XLSX file. Invalid rows are reported and skipped.
func (h *Handler) handleImportItems(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := importer.ParseItems(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file", err.Error())
		return
	}

	h.storage.Lock()
	err = h.storage.ReplaceItems(result.Items)
	h.storage.Unlock()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(userOrSystem(r.URL.Query().Get("userId")), audit.ActionImport, "", map[string]any{
		"kind":     "items",
		"imported": len(result.Items),
		"rejected": len(result.Errors),
	})
	h.logger.Info("items imported", zap.Int("imported", len(result.Items)), zap.Int("rejected", len(result.Errors)))
	writeJSON(w, http.StatusOK, importResponse{Success: true, ItemsImported: len(result.Items), Errors: rowErrors(result.Errors)})
}

type importContainersResponse struct {
	Success            bool                `json:"success"`
	ContainersImported int                 `json:"containersImported"`
	Errors             []importer.RowError `json:"errors"`
}

// handleImportContainers replaces the container list with the rows of an
// uploaded CSV or XLSX file.
func (h *Handler) handleImportContainers(w http.ResponseWriter, r *http.Request) {
	data, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	result, err := importer.ParseContainers(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file", err.Error())
		return
	}

	h.storage.Lock()
	err = h.storage.ReplaceContainers(result.Containers)
	h.storage.Unlock()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(userOrSystem(r.URL.Query().Get("userId")), audit.ActionImport, "", map[string]any{
		"kind":     "containers",
		"imported": len(result.Containers),
		"rejected": len(result.Errors),
	})
	h.logger.Info("containers imported", zap.Int("imported", len(result.Containers)), zap.Int("rejected", len(result.Errors)))
	writeJSON(w, http.StatusOK, importContainersResponse{
		Success:            true,
		ContainersImported: len(result.Containers),
		Errors:             rowErrors(result.Errors),
	})
}

func rowErrors(errs []importer.RowError) []importer.RowError {
	if errs == nil {
		return []importer.RowError{}
	}
	return errs
}

// readUpload returns the uploaded file from a multipart "file" field, or the
// raw request body for any other content type.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		data, err = readFormFile(r)
	} else {
		data, err = limitedBody(w, r, h.maxUpload)
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Sprintf("uploads are limited to %d bytes", h.maxUpload))
		return nil, false
	case err != nil:
		writeError(w, http.StatusBadRequest, "Invalid upload", err.Error())
		return nil, false
	case len(bytes.TrimSpace(data)) == 0:
		writeError(w, http.StatusBadRequest, "Invalid upload", "file is empty")
		return nil, false
	}
	return data, true
}

func readFormFile(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile(uploadField)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleExportArrangement streams the current arrangement as CSV.
func (h *Handler) handleExportArrangement(w http.ResponseWriter, r *http.Request) {
	_ = r
	var buf bytes.Buffer
	if err := importer.WriteArrangement(&buf, h.storage.Items()); err != nil {
		writeInternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="arrangement.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleExportManifest plans a return and renders its manifest as an XLSX
// workbook (default) or a PDF document.
func (h *Handler) handleExportManifest(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "pdf" {
		writeError(w, http.StatusBadRequest, "Invalid format",
			fmt.Sprintf("unsupported format %q", format), "use format=xlsx or format=pdf")
		return
	}

	var req returnPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.planReturn(req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	if format == "pdf" {
		err = export.WriteManifestPDF(&buf, result.Manifest)
		contentType = "application/pdf"
	} else {
		err = export.WriteManifestXLSX(&buf, result.Manifest)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="manifest-%s.%s"`, req.UndockingContainerID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
