package provider

import (
	"context"
	"errors"
	"fmt"

	"picmagic/models"
)

// Request carries one stylization job to a backend. ImageURL must be a
// dereferenceable location, never raw bytes, so providers do no storage of
// their own. APIKey is the caller-supplied upstream credential.
type Request struct {
	ImageURL string
	Style    string
	APIKey   string
}

// Stylizer is the uniform contract every backend variant implements. The
// selected implementation is chosen once at process start and handed to
// the task executor.
type Stylizer interface {
	Stylize(ctx context.Context, req Request) (*models.StylizeResult, error)
}

var (
	// ErrMissingCredential is returned before any outbound call is made.
	ErrMissingCredential = errors.New("api key not provided")

	// ErrNoImageInResponse means the upstream call succeeded but no usable
	// image reference could be extracted. Hard failure, not retried.
	ErrNoImageInResponse = errors.New("no image url found in provider response")

	// ErrStillProcessing means the provider accepted the job but had not
	// finished within the provider-side poll budget. Retry later; not a
	// failure.
	ErrStillProcessing = errors.New("provider is still processing")
)

// UpstreamError carries a non-success provider HTTP status and body.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream request failed with status %d: %s", e.StatusCode, e.Body)
}
