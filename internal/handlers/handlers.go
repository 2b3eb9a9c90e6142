package handlers

import (
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/abhijaysinghthakur/plant-disease-detection/internal/classifier"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

const maxUploadBytes = 10 << 20

type Handler struct {
	classifier classifier.Classifier
	store      *storage.Store
}

func New(c classifier.Classifier, store *storage.Store) *Handler {
	return &Handler{
		classifier: c,
		store:      store,
	}
}

// PredictResponse is the JSON body returned for a successful prediction.
// image_url carries the client's own filename back, since the paired
// front-end displays it; stored_as is the servable name under /static/.
type PredictResponse struct {
	Status     string `json:"status"`
	Prediction string `json:"prediction"`
	ImageURL   string `json:"image_url"`
	StoredAs   string `json:"stored_as"`
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// indexData feeds the index template: a message or prediction label, and
// optionally the stored name of the image to show.
type indexData struct {
	Data     string
	ImageLoc string
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderIndex(w, indexData{Data: "Hey there!!"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"backend": h.classifier.Backend(),
	})
}

// Predict accepts a multipart upload under the "img" field, classifies it
// and answers with JSON or HTML depending on what the client asked for.
// GET renders the upload prompt and touches nothing on disk.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.renderIndex(w, indexData{Data: "Please upload an image"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	file, header, err := r.FormFile("img")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	saved, err := h.store.Save(file, header.Filename)
	if err != nil {
		log.Printf("Failed to save upload %q: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "Failed to save uploaded image")
		return
	}

	log.Printf("Received file: %s (%d bytes), stored as %s", saved.DisplayName, saved.Size, saved.StoredName)

	label, err := h.classifier.Classify(r.Context(), saved.Path)
	if err != nil {
		log.Printf("Prediction failed for %s: %v", saved.Path, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PredictResponse{
			Status:     "success",
			Prediction: label,
			ImageURL:   saved.DisplayName,
			StoredAs:   saved.StoredName,
		})
		return
	}

	h.renderIndex(w, indexData{Data: label, ImageLoc: saved.StoredName})
}

// wantsJSON applies the canonical negotiation rule: JSON when the Accept
// header mentions it or the request body itself is JSON, HTML otherwise.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Status: "error", Error: message})
}

func (h *Handler) renderIndex(w http.ResponseWriter, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("Template render failed: %v", err)
	}
}
