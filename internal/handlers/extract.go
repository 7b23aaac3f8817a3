package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imagetoprompts/naimeta/internal/extract"
	"github.com/imagetoprompts/naimeta/internal/images"
	"github.com/imagetoprompts/naimeta/internal/models"
)

type extractRequest struct {
	ImageURL    string            `json:"image_url"`
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
	Alpha       bool              `json:"alpha"`
}

type extractResponse struct {
	ID               string                   `json:"id"`
	Filename         string                   `json:"filename"`
	Record           models.MetadataRecord    `json:"record"`
	ExtractionMethod string                   `json:"extraction_method"`
	Fields           map[string]models.Source `json:"fields"`
	Stealth          bool                     `json:"stealth"`
}

func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// JSON requests name an image URL, anything else is a multipart upload
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLExtract(w, r)
		return
	}

	h.handleFileExtract(w, r)
}

func (h *Handler) handleURLExtract(w http.ResponseWriter, r *http.Request) {
	var request extractRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	data, filename, err := h.fetcher.Fetch(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.extractAndStore(w, r, extract.Input{
		Bytes:       data,
		Filename:    filename,
		Description: request.Description,
		Properties:  request.Properties,
	}, request.Alpha)
}

func (h *Handler) handleFileExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxImageSize+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := images.ReadLimited(file)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var properties map[string]string
	if raw := r.FormValue("properties"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &properties); err != nil {
			h.writeError(w, "Invalid properties JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	h.extractAndStore(w, r, extract.Input{
		Bytes:       fileData,
		Filename:    header.Filename,
		Description: r.FormValue("description"),
		Properties:  properties,
	}, r.FormValue("alpha") == "true")
}

func (h *Handler) extractAndStore(w http.ResponseWriter, r *http.Request, in extract.Input, alpha bool) {
	svc := *h.extractor
	if !alpha {
		svc.Alpha = nil
	}
	result := svc.Process(r.Context(), in)

	id := uuid.NewString()
	h.recordStore.Set(id, &models.StoredRecord{
		ID:               id,
		Filename:         in.Filename,
		Record:           result.Record,
		ExtractionMethod: result.ExtractionMethod,
		Fields:           result.Fields,
		Stealth:          result.Stealth,
		CreatedAt:        time.Now(),
	})

	slog.Info("Extracted metadata",
		"id", id,
		"filename", in.Filename,
		"method", result.ExtractionMethod,
		"has_prompt", result.Record.Prompt != "")

	h.writeJSON(w, extractResponse{
		ID:               id,
		Filename:         in.Filename,
		Record:           result.Record,
		ExtractionMethod: result.ExtractionMethod,
		Fields:           result.Fields,
		Stealth:          result.Stealth,
	})
}

