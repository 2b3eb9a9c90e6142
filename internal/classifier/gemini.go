package classifier

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiPrompt = "Identify the plant leaf disease shown in this image. " +
	"Answer with only the disease label, nothing else. " +
	"If the leaf looks healthy, answer 'Healthy'."

// Gemini asks a multimodal model for the disease label instead of running
// a local network. Useful when no exported model file is available.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{client: client, model: "gemini-1.5-pro-002"}, nil
}

func (g *Gemini) Backend() string { return "gemini" }

func (g *Gemini) Classify(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	uploaded, err := g.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(imagePath),
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.FileData{URI: uploaded.URI},
		genai.Text(geminiPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var label strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			label.WriteString(string(text))
		}
	}

	result := strings.TrimSpace(label.String())
	if result == "" {
		return "", fmt.Errorf("model returned no text")
	}

	return result, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}
