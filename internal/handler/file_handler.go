package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/squidcoin/internal/domain"
	"github.com/prn-tf/squidcoin/internal/service"
)

// FileHandler serves the file registry.
type FileHandler struct {
	files     *service.FileService
	downloads *service.DownloadService
	maxBody   int64
	logger    zerolog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files *service.FileService, downloads *service.DownloadService, maxBody int64, logger zerolog.Logger) *FileHandler {
	return &FileHandler{
		files:     files,
		downloads: downloads,
		maxBody:   maxBody,
		logger:    logger.With().Str("handler", "file").Logger(),
	}
}

// RegisterRoutes registers file registry routes.
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
	r.Get("/fetchUploadedFiles", h.handleList)
	r.Get("/files/getFile", h.handleGet)
	r.Get("/files/{hash}", h.handleGet)
	r.Put("/update/{hash}", h.handleUpdate)
	r.Delete("/delete/{hash}", h.handleDelete)

	r.Post("/download/request", h.handleDownloadRequest)
	r.Post("/files/upload-url", h.handleUploadURL)
}

// uploadRequest uses pointers so absent fields differ from zero values.
type uploadRequest struct {
	Hash        *string          `json:"hash"`
	Name        *string          `json:"name"`
	Type        *string          `json:"type"`
	Size        *int64           `json:"size"`
	Description *string          `json:"description"`
	IsPublished *bool            `json:"isPublished"`
	Fee         *decimal.Decimal `json:"fee"`
}

func (h *FileHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	file, err := h.files.Upload(r.Context(), service.UploadFileInput{
		Hash:        req.Hash,
		Name:        req.Name,
		Type:        req.Type,
		Size:        req.Size,
		Description: req.Description,
		IsPublished: req.IsPublished,
		Fee:         req.Fee,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}

	publishedOnly := false
	if raw := r.URL.Query().Get("published"); raw != "" {
		publishedOnly, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "published must be true or false")
			return
		}
	}

	result, err := h.files.List(r.Context(), publishedOnly, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []*domain.FileData{}
	}
	setTotalCount(w, result.Total)
	writeJSON(w, http.StatusOK, items)
}

// hashParam reads the hash from the path, falling back to ?hash=.
func hashParam(r *http.Request) string {
	if hash := chi.URLParam(r, "hash"); hash != "" {
		return hash
	}
	return r.URL.Query().Get("hash")
}

func (h *FileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.Get(r.Context(), hashParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

type updateFileRequest struct {
	Name        *string          `json:"name"`
	Type        *string          `json:"type"`
	Size        *int64           `json:"size"`
	Description *string          `json:"description"`
	IsPublished *bool            `json:"isPublished"`
	Fee         *decimal.Decimal `json:"fee"`
}

func (h *FileHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateFileRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	file, err := h.files.Update(r.Context(), chi.URLParam(r, "hash"), service.UpdateFileInput{
		Name:        req.Name,
		Type:        req.Type,
		Size:        req.Size,
		Description: req.Description,
		IsPublished: req.IsPublished,
		Fee:         req.Fee,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), chi.URLParam(r, "hash")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "File deleted successfully"})
}

type hashRequest struct {
	Hash string `json:"hash" validate:"required"`
}

func (h *FileHandler) handleDownloadRequest(w http.ResponseWriter, r *http.Request) {
	var req hashRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	ticket, err := h.downloads.RequestDownload(r.Context(), req.Hash)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *FileHandler) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req hashRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeRequestError(w, r, err)
		return
	}

	ticket, err := h.downloads.RequestUpload(r.Context(), req.Hash)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
