package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/meetly/meetly/internal/handler/dto"
	"github.com/meetly/meetly/internal/storage"
)

// multipartMemory is how much of a form ParseMultipartForm keeps in memory
// before spilling to temp files.
const multipartMemory = 1 << 20

// FileStore is the subset of storage.Files used here.
type FileStore interface {
	Save(ctx context.Context, kind storage.Kind, filename string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, p string) (io.ReadCloser, error)
	MaxSize() int64
}

// FileHandler serves profile photo and document uploads and downloads.
type FileHandler struct {
	files  FileStore
	logger *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files FileStore, logger *slog.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// UploadPhoto handles POST /api/filestorage/photo-upload.
func (h *FileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, storage.KindProfile)
}

// UploadDocument handles POST /api/filestorage/document-upload.
func (h *FileHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, storage.KindDocument)
}

func (h *FileHandler) upload(w http.ResponseWriter, r *http.Request, kind storage.Kind) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxSize())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "", "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "file: multipart form expected")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "file: is required")
		return
	}
	defer file.Close()

	stored, err := h.files.Save(r.Context(), kind, header.Filename, file, header.Size)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(r.Context(), "file_uploaded",
		"kind", string(kind),
		"path", stored,
		"bytes", header.Size,
	)
	writeJSON(w, http.StatusOK, dto.FileUploadResponse{Path: stored})
}

// GetFile handles GET /api/filestorage/get-file?path=.
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "path: is required")
		return
	}

	rc, err := h.files.Open(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.ContentType(p))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": path.Base(p),
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "file_stream_interrupted", "error", err)
	}
}
