package classifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Remote forwards the saved image to an external model server and relays
// its prediction. The server is expected to answer POST /predict with a
// JSON body containing a "prediction" field.
type Remote struct {
	client  *resty.Client
	baseURL string
}

func NewRemote(baseURL string) *Remote {
	return &Remote{
		client:  resty.New().SetTimeout(30 * time.Second),
		baseURL: baseURL,
	}
}

func (r *Remote) Backend() string { return "remote" }

func (r *Remote) Classify(ctx context.Context, imagePath string) (string, error) {
	var result struct {
		Prediction string `json:"prediction"`
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetFile("img", imagePath).
		SetResult(&result).
		Post(r.baseURL + "/predict")
	if err != nil {
		return "", fmt.Errorf("failed to reach model server: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("model server error: status %d", resp.StatusCode())
	}
	if result.Prediction == "" {
		return "", fmt.Errorf("model server returned no prediction")
	}

	return result.Prediction, nil
}
