package core

import "context"

const (
	JobIdle      JobState = "idle"
	JobSubmitted JobState = "submitted"
	JobPolling   JobState = "polling"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
)

type (
	JobState string

	InlineImage struct {
		Data     []byte `json:"data"`
		MimeType string `json:"mimeType"`
	}

	VideoRequest struct {
		Prompt      string       `json:"prompt"`
		Image       *InlineImage `json:"image,omitempty"`
		AspectRatio string       `json:"aspectRatio"`
	}

	// OperationStatus is what a status check reports for an in-flight operation.
	// ResultRef is empty when the operation finished without a usable result.
	OperationStatus struct {
		Done      bool
		ResultRef string
	}

	// Job is a snapshot of a video generation job.
	Job struct {
		State    JobState     `json:"state"`
		Request  VideoRequest `json:"request"`
		Handle   string       `json:"handle,omitempty"`
		Result   string       `json:"result,omitempty"`
		Error    *Error       `json:"error,omitempty"`
		Progress string       `json:"progress,omitempty"`
	}

	// VideoService is the long-running video capability of the generative-media service.
	VideoService interface {
		Submit(ctx context.Context, req VideoRequest) (handle string, err error)
		Check(ctx context.Context, handle string) (OperationStatus, error)
		Fetch(ctx context.Context, ref string) (data []byte, mimeType string, err error)
	}

	// CredentialGate guards access to video generation.
	CredentialGate interface {
		HasSelected(ctx context.Context) bool
		Select(ctx context.Context, credential string) error
		Invalidate()
	}
)

// Validate checks the user input of a video request before anything is submitted.
func (r *VideoRequest) Validate() error {
	if BlankText(r.Prompt) && (r.Image == nil || len(r.Image.Data) == 0) {
		return Validation("Please enter a prompt or upload an image.")
	}
	switch r.AspectRatio {
	case "":
		r.AspectRatio = AspectLandscape
	case AspectLandscape, AspectPortrait:
	default:
		return Validation("aspect ratio must be 16:9 or 9:16")
	}
	if r.Image != nil && r.Image.MimeType == "" {
		return Validation("image mime type is required")
	}
	return nil
}
