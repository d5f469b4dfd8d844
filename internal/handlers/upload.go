package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/promoops/artaudit/internal/models"
)

const maxImageSize = 10 * 1024 * 1024

// HandleUpload enqueues one or more marketing-art images, either as
// multipart file uploads or as a JSON body with an image URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r)
		return
	}

	h.handleFileUpload(w, r)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	data, mimeType, err := h.downloadImage(request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to fetch image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	parts := strings.Split(strings.TrimSuffix(request.ImageURL, "/"), "/")
	name := parts[len(parts)-1]
	if name == "" {
		name = "image.jpg"
	}

	id := h.scheduler.Enqueue(name, models.ImagePayload{Data: data, MIMEType: mimeType})

	h.writeJSON(w, map[string]any{
		"ids":     []string{id},
		"message": "Successfully enqueued image from URL",
		"source":  "url",
	})
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		h.writeError(w, "No files in upload", http.StatusBadRequest)
		return
	}

	// Read and validate every file before enqueueing any of them, so a
	// rejected batch never runs partially.
	type upload struct {
		name    string
		payload models.ImagePayload
	}
	uploads := make([]upload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, maxImageSize))
		file.Close()
		if err != nil {
			h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if len(data) >= maxImageSize {
			h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
			return
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(mimeType, "image/") {
			h.writeError(w, fmt.Sprintf("%s is not an image", header.Filename), http.StatusBadRequest)
			return
		}

		uploads = append(uploads, upload{
			name:    header.Filename,
			payload: models.ImagePayload{Data: data, MIMEType: mimeType},
		})
	}

	ids := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ids = append(ids, h.scheduler.Enqueue(u.name, u.payload))
	}

	h.writeJSON(w, map[string]any{
		"ids":     ids,
		"message": fmt.Sprintf("Successfully enqueued %d image(s)", len(ids)),
	})
}

func (h *Handler) downloadImage(imageURL string) ([]byte, string, error) {
	resp, err := http.Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("URL did not return an image (%s)", mimeType)
	}

	return data, mimeType, nil
}
