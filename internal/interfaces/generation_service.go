package interfaces

import (
	"context"

	"github.com/ternarybob/bizassess/internal/models"
)

// UploadedFile is a file registered with the generation service
type UploadedFile struct {
	Name     string // Service resource name, e.g. "files/abc123"
	URI      string
	MIMEType string
}

// GenerationRequest describes a single generation call
type GenerationRequest struct {
	// Prompt is the fully rendered prompt text
	Prompt string

	// Model overrides the service's default model when set
	Model string

	// File is attached ahead of the prompt when set
	File *UploadedFile

	// SearchEnabled turns on the web search tool and grounding metadata
	SearchEnabled bool

	// CachedContext references a priming artifact created by CreateCachedContext
	CachedContext string
}

// GenerationResponse is the text of the first candidate plus optional grounding
type GenerationResponse struct {
	Text      string
	Grounding *models.Grounding
}

// GenerationService is the external text generation collaborator
type GenerationService interface {
	// Generate runs one generation call and returns the first candidate's text
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)

	// Upload registers a local file with the service
	Upload(ctx context.Context, path string) (*UploadedFile, error)

	// CreateCachedContext creates a reusable priming artifact holding file under
	// systemInstruction and returns its handle
	CreateCachedContext(ctx context.Context, systemInstruction string, file *UploadedFile) (string, error)
}
