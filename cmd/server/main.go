package main

import (
	"context"
	"io"
	"log"

	"github.com/joho/godotenv"

	"github.com/abhijaysinghthakur/plant-disease-detection/internal/classifier"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/config"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/handlers"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/server"
	"github.com/abhijaysinghthakur/plant-disease-detection/internal/storage"
)

func buildClassifier(cfg config.Config) (classifier.Classifier, error) {
	switch cfg.Backend {
	case "onnx":
		log.Printf("Loading model from: %s", cfg.ModelPath)
		return classifier.NewONNX(cfg.ModelPath, cfg.MetadataPath)
	case "remote":
		log.Printf("Using model server at: %s", cfg.ModelServerURL)
		return classifier.NewRemote(cfg.ModelServerURL), nil
	case "gemini":
		return classifier.NewGemini(context.Background(), cfg.GeminiAPIKey)
	default:
		log.Fatalf("Unknown classifier backend %q (want onnx, remote or gemini)", cfg.Backend)
		return nil, nil
	}
}

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cls, err := buildClassifier(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s classifier: %v", cfg.Backend, err)
	}
	if closer, ok := cls.(io.Closer); ok {
		defer closer.Close()
	}

	store, err := storage.New(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	srv := server.New(cfg, handlers.New(cls, store))

	log.Printf("Classifier backend: %s", cfg.Backend)
	log.Printf("Uploads directory: %s", cfg.UploadDir)
	log.Println("Endpoints:")
	log.Println("  GET  /         - Index page")
	log.Println("  POST /predict  - Predict from image upload (field 'img')")
	log.Println("  GET  /health   - Health check")

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
