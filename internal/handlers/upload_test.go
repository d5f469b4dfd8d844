package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promoops/artaudit/internal/models"
	"github.com/promoops/artaudit/internal/queue"
)

type nopPipeline struct{}

func (nopPipeline) Process(ctx context.Context, payload models.ImagePayload, onExtracted func([]models.DetectedProduct)) (*queue.Outcome, error) {
	return &queue.Outcome{}, nil
}

// newTestHandler wraps a scheduler that is never started, so enqueued
// items stay pending and observable.
func newTestHandler() (*Handler, *queue.Scheduler) {
	s := queue.NewScheduler(nopPipeline{}, 0)
	return New(s), s
}

// pngMagic is enough for content sniffing to call the part an image.
var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

func multipartBody(t *testing.T, parts map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range parts {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("Writing part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Closing writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestHandleUploadEnqueuesAllFiles(t *testing.T) {
	h, s := newTestHandler()

	body, contentType := multipartBody(t, map[string][]byte{
		"a.png": pngMagic,
		"b.png": pngMagic,
	})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	items := s.Snapshot()
	if len(items) != 2 {
		t.Fatalf("Expected 2 enqueued items, got %d", len(items))
	}
	for _, item := range items {
		if item.Status != models.StatusPending {
			t.Errorf("Item %s status = %s, want pending", item.DisplayName, item.Status)
		}
	}
}

func TestHandleUploadRejectedBatchEnqueuesNothing(t *testing.T) {
	h, s := newTestHandler()

	// One valid image alongside a non-image: the whole batch is rejected
	// and no part of it may run.
	body, contentType := multipartBody(t, map[string][]byte{
		"a.png":     pngMagic,
		"notes.txt": []byte("just some text, clearly not an image"),
	})
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.HandleUpload(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Status = %d, want 400", rec.Code)
	}
	if items := s.Snapshot(); len(items) != 0 {
		t.Errorf("Rejected batch must enqueue nothing, got %d items", len(items))
	}
}

func TestHandleUploadMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest("GET", "/api/upload", nil)
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}
}
