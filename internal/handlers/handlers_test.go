package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/abhijaysinghthakur/plant-disease-detection/internal/storage"
)

type stubClassifier struct {
	label string
	err   error
}

func (s *stubClassifier) Classify(ctx context.Context, imagePath string) (string, error) {
	return s.label, s.err
}

func (s *stubClassifier) Backend() string { return "stub" }

func newTestHandler(t *testing.T, cls *stubClassifier) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(dir)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	return New(cls, store), dir
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("img", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIndex(t *testing.T) {
	h, _ := newTestHandler(t, &stubClassifier{label: "Healthy"})

	rec := httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Hey there!!") {
		t.Errorf("index page missing greeting, got: %s", rec.Body.String())
	}
}

func TestPredictJSON(t *testing.T) {
	h, _ := newTestHandler(t, &stubClassifier{label: "Tomato___Late_blight"})

	req := uploadRequest(t, "leaf1.jpg", []byte("fake jpeg bytes"))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status field = %q, want %q", resp.Status, "success")
	}
	if resp.Prediction != "Tomato___Late_blight" {
		t.Errorf("prediction = %q, want %q", resp.Prediction, "Tomato___Late_blight")
	}
	if resp.ImageURL != "leaf1.jpg" {
		t.Errorf("image_url = %q, want original filename back", resp.ImageURL)
	}
	if resp.StoredAs == "" || resp.StoredAs == "leaf1.jpg" {
		t.Errorf("stored_as = %q, want a generated name", resp.StoredAs)
	}
}

func TestPredictHTML(t *testing.T) {
	h, _ := newTestHandler(t, &stubClassifier{label: "Apple___Cedar_rust"})

	req := uploadRequest(t, "leaf2.png", []byte("fake png bytes"))
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Apple___Cedar_rust") {
		t.Errorf("page missing prediction label: %s", body)
	}
	if !strings.Contains(body, "/static/") {
		t.Errorf("page missing image reference: %s", body)
	}
}

func TestPredictNoFile(t *testing.T) {
	h, dir := newTestHandler(t, &stubClassifier{label: "Healthy"})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.WriteField("note", "no image here")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/predict", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not valid JSON: %v", err)
	}
	if resp.Status != "error" || resp.Error != "No image file provided" {
		t.Errorf("error body = %+v", resp)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries after rejected request, want 0", len(entries))
	}
}

func TestPredictClassifierFailure(t *testing.T) {
	cls := &stubClassifier{err: errors.New("model exploded")}
	h, _ := newTestHandler(t, cls)

	req := uploadRequest(t, "leaf3.jpg", []byte("bytes"))
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.Predict(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not valid JSON: %v", err)
	}
	if resp.Status != "error" || !strings.Contains(resp.Error, "model exploded") {
		t.Errorf("error body = %+v", resp)
	}

	// The handler must keep serving after a failure.
	cls.err = nil
	cls.label = "Healthy"
	req = uploadRequest(t, "leaf3.jpg", []byte("bytes"))
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	h.Predict(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("follow-up request status = %d, want 200", rec.Code)
	}
}

func TestPredictGetIsReadOnly(t *testing.T) {
	h, dir := newTestHandler(t, &stubClassifier{label: "Healthy"})

	rec := httptest.NewRecorder()
	h.Predict(rec, httptest.NewRequest(http.MethodGet, "/predict", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please upload an image") {
		t.Errorf("GET /predict missing prompt: %s", rec.Body.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GET wrote %d files to the upload dir", len(entries))
	}
}

func TestPredictRepeatUpload(t *testing.T) {
	h, dir := newTestHandler(t, &stubClassifier{label: "Grape___Black_rot"})

	for i := 0; i < 2; i++ {
		req := uploadRequest(t, "same-name.jpg", []byte("same bytes"))
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.Predict(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("upload %d status = %d, want 200", i+1, rec.Code)
		}
	}

	// Saved under generated names, the second upload must not replace the first.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("upload dir has %d files after two uploads, want 2", len(entries))
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/predict", nil)
	if wantsJSON(req) {
		t.Error("no headers should negotiate HTML")
	}

	req.Header.Set("Accept", "text/html,application/json;q=0.9")
	if !wantsJSON(req) {
		t.Error("Accept mentioning application/json should negotiate JSON")
	}

	req.Header.Set("Accept", "text/html")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if !wantsJSON(req) {
		t.Error("JSON request body should negotiate JSON")
	}
}
