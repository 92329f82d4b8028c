package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cabinetworks/catalog/internal/catalog"
	"github.com/cabinetworks/catalog/internal/logging"
)

// uploadResponse is the success body for a catalog upload.
type uploadResponse struct {
	Success         bool                `json:"success"`
	Message         string              `json:"message"`
	UploadSessionID string              `json:"uploadSessionId"`
	Stats           catalog.UploadStats `json:"stats"`
}

// rollbackResponse is the success body for a rollback.
type rollbackResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	RestoredItemsCount int    `json:"restoredItemsCount"`
}

// backupsResponse is the body for the backup listing.
type backupsResponse struct {
	Success bool                    `json:"success"`
	Backups []catalog.BackupSummary `json:"backups"`
}

// handleCatalogUpload accepts a multipart catalog file, spools it to the
// upload directory, and runs it through the ingestion pipeline.
func (s *Server) handleCatalogUpload(w http.ResponseWriter, r *http.Request) {
	manufacturerID, err := manufacturerParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Bound the request body; multipart framing needs a little headroom
	// over the file ceiling itself.
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, fmt.Errorf("%w: request body exceeds limit of %d bytes",
				catalog.ErrFileTooLarge, maxErr.Limit))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: malformed multipart request: %v", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("catalogFiles")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no catalog file provided", errBadRequest))
		return
	}
	defer file.Close()

	// Reject oversized files before touching disk.
	if header.Size > maxSize {
		s.respondError(w, r, fmt.Errorf("%w: %d bytes exceeds limit of %d bytes",
			catalog.ErrFileTooLarge, header.Size, maxSize))
		return
	}

	storedName := uuid.New().String() + filepath.Ext(header.Filename)
	path, err := s.spoolUpload(file, storedName)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("spool upload: %w", err))
		return
	}

	uploadedBy := r.FormValue("uploadedBy")
	if uploadedBy == "" {
		uploadedBy = "unknown"
	}

	result, err := s.service.Upload(r.Context(), catalog.UploadRequest{
		ManufacturerID: manufacturerID,
		Path:           path,
		OriginalName:   header.Filename,
		StoredName:     storedName,
		ContentType:    header.Header.Get("Content-Type"),
		Size:           header.Size,
		UploadedBy:     uploadedBy,
	})
	if err != nil {
		// The spooled file is useless if ingestion never succeeded.
		os.Remove(path)
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(),
		"manufacturer_id", manufacturerID,
		"session_id", result.SessionID,
	).Info("catalog upload complete",
		"file", header.Filename,
		"created", result.Stats.Created,
		"updated", result.Stats.Updated,
	)

	writeJSON(w, http.StatusCreated, uploadResponse{
		Success:         true,
		Message:         "Catalog file uploaded and data saved successfully",
		UploadSessionID: result.SessionID,
		Stats:           result.Stats,
	})
}

// handleRollback restores a manufacturer's catalog to its pre-upload state.
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	manufacturerID, err := manufacturerParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		s.respondError(w, r, catalog.ErrSessionNotFound)
		return
	}

	result, err := s.service.Rollback(r.Context(), manufacturerID, sessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(),
		"manufacturer_id", manufacturerID,
		"session_id", sessionID,
	).Info("catalog rollback complete", "restored", result.RestoredItems)

	writeJSON(w, http.StatusOK, rollbackResponse{
		Success:            true,
		Message:            "Catalog rolled back successfully",
		RestoredItemsCount: result.RestoredItems,
	})
}

// handleListBackups returns the manufacturer's recent upload sessions that
// are still eligible for rollback.
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	manufacturerID, err := manufacturerParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	backups, err := s.service.ListBackups(r.Context(), manufacturerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if backups == nil {
		backups = []catalog.BackupSummary{}
	}

	writeJSON(w, http.StatusOK, backupsResponse{
		Success: true,
		Backups: backups,
	})
}

// spoolUpload writes the uploaded file to the upload directory and returns
// the path on disk.
func (s *Server) spoolUpload(src io.Reader, storedName string) (string, error) {
	if err := os.MkdirAll(s.cfg.Upload.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.cfg.Upload.Dir, storedName)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// manufacturerParam parses the manufacturer ID from the URL.
func manufacturerParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "manufacturerID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid manufacturer id %q", errBadRequest, raw)
	}
	return id, nil
}
