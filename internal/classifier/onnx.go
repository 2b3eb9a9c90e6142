package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// Metadata describes the exported model: tensor shapes, the ordered class
// labels and the square input size the image must be resized to.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// ONNX runs the leaf-disease model in-process through onnxruntime.
type ONNX struct {
	session      *ort.AdvancedSession
	meta         Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]

	// The session reuses one pair of tensors, so runs must not overlap.
	mu sync.Mutex
}

// NewONNX loads the model and its metadata and prepares a reusable session.
func NewONNX(modelPath, metadataPath string) (*ONNX, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(metaFile, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if len(meta.Classes) == 0 {
		return nil, fmt.Errorf("metadata %s lists no classes", metadataPath)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNX{
		session:      session,
		meta:         meta,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (o *ONNX) Backend() string { return "onnx" }

// Classify decodes the saved image, preprocesses it to the model's input
// layout and returns the highest-scoring class label.
func (o *ONNX) Classify(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	inputData := preprocess(img, o.meta.ImageSize)

	o.mu.Lock()
	defer o.mu.Unlock()

	copy(o.inputTensor.GetData(), inputData)
	if err := o.session.Run(); err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}

	return topClass(o.outputTensor.GetData(), o.meta.Classes), nil
}

func (o *ONNX) Close() error {
	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
	}
	if o.session != nil {
		o.session.Destroy()
	}
	ort.DestroyEnvironment()
	return nil
}

// preprocess resizes the image to size x size and lays it out as
// channel-first float32 values normalized to [0, 1].
func preprocess(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	data := make([]float32, 3*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*width + x
			data[idx] = float32(r) / 65535.0
			data[width*height+idx] = float32(g) / 65535.0
			data[2*width*height+idx] = float32(b) / 65535.0
		}
	}

	return data
}

// topClass returns the label whose score is highest. Scores beyond the
// class list are ignored.
func topClass(scores []float32, classes []string) string {
	maxIdx := 0
	maxVal := scores[0]
	for i, val := range scores {
		if i >= len(classes) {
			break
		}
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return classes[maxIdx]
}
