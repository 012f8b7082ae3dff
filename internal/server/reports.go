package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/manp-monitoring/report-service/internal/drive"
	"github.com/manp-monitoring/report-service/internal/model"
)

const maxUploadMemory = 32 << 20 // 32 MiB before multipart parts spill to disk

// handleSync bulk-inserts previously validated reports. Reports are inserted
// sequentially in client order; the first failure aborts the batch. The
// returned count is the number of reports received, not inserted: duplicates
// are absorbed silently by the store's conflict clause.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reports []json.RawMessage `json:"reports"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("sync: decode request", "error", err)
		s.writeError(w, "Failed to sync reports.")
		return
	}

	for i, raw := range req.Reports {
		if err := s.schema.Validate(raw); err != nil {
			s.logger.Error("sync: validate report", "index", i, "error", err)
			s.writeError(w, "Failed to sync reports.")
			return
		}

		var report model.Report
		if err := json.Unmarshal(raw, &report); err != nil {
			s.logger.Error("sync: decode report", "index", i, "error", err)
			s.writeError(w, "Failed to sync reports.")
			return
		}
		report.Synced = 1
		report.UpdatedAt = report.CreatedAt

		if err := s.store.UpsertReport(r.Context(), &report); err != nil {
			s.logger.Error("sync: store report", "report_id", report.ID, "error", err)
			s.writeError(w, "Failed to sync reports.")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(req.Reports),
	})
}

// handleListReports returns all of a user's reports, newest first.
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	reports, err := s.store.ListReportsByUser(r.Context(), userID)
	if err != nil {
		s.logger.Error("list reports", "user_id", userID, "error", err)
		s.writeError(w, "Failed to fetch reports.")
		return
	}
	if reports == nil {
		reports = []*model.Report{}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"reports": reports,
	})
}

// handleUploadReport accepts a multipart request holding one JSON-encoded
// report in the "report" field plus zero or more photo file parts. Every file
// is staged locally; the remote upload is best-effort per file and a failure
// there degrades that photo's metadata without failing the request.
func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.logger.Error("upload-report: parse multipart form", "error", err)
		s.writeError(w, "Failed to save report.")
		return
	}

	rawReport := r.FormValue("report")
	if rawReport == "" {
		s.logger.Error("upload-report: missing report field")
		s.writeError(w, "Failed to save report.")
		return
	}
	if err := s.schema.Validate([]byte(rawReport)); err != nil {
		s.logger.Error("upload-report: validate report", "error", err)
		s.writeError(w, "Failed to save report.")
		return
	}

	var report model.Report
	if err := json.Unmarshal([]byte(rawReport), &report); err != nil {
		s.logger.Error("upload-report: decode report", "error", err)
		s.writeError(w, "Failed to save report.")
		return
	}

	report.ID = fmt.Sprintf("%s-%d", report.UserID, time.Now().UnixMilli())
	stamp := drive.SanitizeStamp(report.CreatedAt)

	stagingDir := filepath.Join(s.config.UploadsDir, report.UserID, stamp)
	if err := os.MkdirAll(stagingDir, 0o750); err != nil {
		s.logger.Error("upload-report: create staging dir", "dir", stagingDir, "error", err)
		s.writeError(w, "Failed to save report.")
		return
	}

	photos := []model.Photo{}
	photoURLs := []string{}
	for _, fh := range uploadedFiles(r) {
		photo, err := s.stagePhoto(stagingDir, fh)
		if err != nil {
			s.logger.Error("upload-report: stage photo", "filename", fh.Filename, "error", err)
			s.writeError(w, "Failed to save report.")
			return
		}

		if s.uploader != nil {
			file, err := s.uploader.UploadReportPhoto(r.Context(),
				report.UserID, report.CreatedAt, fh.Filename, photo.MimeType, photo.data)
			if err != nil {
				// Degraded metadata, not a fatal error: the staging copy
				// remains the only record of this photo.
				s.logger.Error("upload-report: remote upload", "filename", fh.Filename, "error", err)
			} else {
				photo.RemoteID = file.ID
				photo.RemoteLink = file.WebViewLink
				photoURLs = append(photoURLs, file.WebViewLink)
			}
		}

		photos = append(photos, photo.Photo)
	}

	if len(photos) > 0 {
		report.Photos = photos
	}
	report.Synced = 1
	report.UpdatedAt = report.CreatedAt

	if err := s.store.UpsertReport(r.Context(), &report); err != nil {
		s.logger.Error("upload-report: store report", "report_id", report.ID, "error", err)
		s.writeError(w, "Failed to save report.")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"report_id":    report.ID,
		"saved_photos": len(photos),
		"photo_urls":   photoURLs,
	})
}

// uploadedFiles flattens the request's file parts. Field names are visited in
// sorted order so processing is deterministic; within a field, parts keep the
// order the client sent them.
func uploadedFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	fields := make([]string, 0, len(r.MultipartForm.File))
	for name := range r.MultipartForm.File {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var files []*multipart.FileHeader
	for _, name := range fields {
		files = append(files, r.MultipartForm.File[name]...)
	}
	return files
}

// stagedPhoto couples the recorded metadata with the file bytes, which the
// remote uploader still needs after the local write.
type stagedPhoto struct {
	model.Photo
	data []byte
}

// stagePhoto writes one uploaded file into the staging directory.
func (s *Server) stagePhoto(dir string, fh *multipart.FileHeader) (*stagedPhoto, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read part: %w", err)
	}

	filename := filepath.Base(fh.Filename)
	localPath := filepath.Join(dir, filename)
	if err := os.WriteFile(localPath, data, 0o640); err != nil {
		return nil, fmt.Errorf("write staging copy: %w", err)
	}

	return &stagedPhoto{
		Photo: model.Photo{
			Filename:  filename,
			LocalPath: localPath,
			MimeType:  fh.Header.Get("Content-Type"),
		},
		data: data,
	}, nil
}
