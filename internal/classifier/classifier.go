package classifier

import "context"

// Classifier is the external collaborator that turns a saved leaf image
// into a disease label. Failures come back as ordinary errors; nothing
// here is allowed to panic across the handler boundary.
type Classifier interface {
	// Classify reads the image at imagePath and returns a disease label.
	Classify(ctx context.Context, imagePath string) (string, error)

	// Backend names the implementation, for the health endpoint and logs.
	Backend() string
}
