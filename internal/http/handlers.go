package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finances/internal/core"
	"finances/internal/log"
)

type importResponse struct {
	Imported     int                `json:"imported"`
	Transactions []core.Transaction `json:"transactions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"requests": s.tracer.GetMetrics().TotalRequests,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Transactions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.deps.Transactions.Balance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var payload createTransactionPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.deps.Transactions.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction recorded",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(tx.ID, tx.Type.String(), tx.Value.String(), tx.CategoryTitle()).
			ToSlice()...)
	w.Header().Set("Location", "/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, tx)
}

// handleImportCSV spools the uploaded "file" part into the upload directory
// and imports it. The CSV source deletes the file after a successful import;
// on failure it is removed here.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	defer drain(r.Body)

	path, err := s.spoolUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.deps.CSVImport.Import(r.Context(), path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to remove upload", log.FieldSource, path, log.FieldError, rmErr)
		}
		writeError(w, r, err)
		return
	}
	s.imported(r, path, created)
	writeJSON(w, http.StatusCreated, importResponse{Imported: len(created), Transactions: created})
}

func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	var payload importSheetPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err)
		return
	}
	sheet := sanitizeInput(payload.Sheet)
	if sheet == "" {
		sheet = s.opts.DefaultSheet
	}
	if sheet == "" {
		writeError(w, r, &core.ValidationError{Field: "sheet", Err: errors.New("sheet name is required")})
		return
	}

	created, err := s.deps.SheetImport.Import(r.Context(), sheet)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.imported(r, sheet, created)
	writeJSON(w, http.StatusCreated, importResponse{Imported: len(created), Transactions: created})
}

func (s *Server) spoolUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", err
		}
		return "", fmt.Errorf("%w: multipart field \"file\" is required", errBadRequest)
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && ext != ".csv" {
		return "", &core.ValidationError{Field: "file", Err: fmt.Errorf("unsupported file type %q", ext)}
	}

	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	out, err := os.CreateTemp(s.opts.UploadDir, "import-*.csv")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Upload stored",
		log.FieldSource, out.Name(),
		"filename", header.Filename,
		"size", header.Size)
	return out.Name(), nil
}

func (s *Server) imported(r *http.Request, source string, created []core.Transaction) {
	fields := log.NewFields().WithOperation(log.OpImport)
	fields[log.FieldSource] = source
	fields[log.FieldCount] = len(created)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Import request completed", fields.ToSlice()...)
}
