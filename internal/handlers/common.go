package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/imagetoprompts/naimeta/internal/extract"
	"github.com/imagetoprompts/naimeta/internal/images"
	"github.com/imagetoprompts/naimeta/internal/models"
	"github.com/imagetoprompts/naimeta/internal/storage"
)

type Handler struct {
	recordStore *storage.RecordStore
	extractor   *extract.Service
	fetcher     *images.Fetcher
}

// New creates a handler around an extraction service. Requests that ask for
// alpha decoding only get it when the service has a decoder.
func New(extractor *extract.Service) *Handler {
	if extractor == nil {
		extractor = &extract.Service{}
	}
	return &Handler{
		recordStore: storage.New(),
		extractor:   extractor,
		fetcher:     images.NewFetcher(),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Record helpers
func (h *Handler) getRecordOrError(w http.ResponseWriter, id string) (*models.StoredRecord, bool) {
	record, exists := h.recordStore.Get(id)
	if !exists {
		h.writeError(w, "Record not found", http.StatusNotFound)
		return nil, false
	}
	return record, true
}
