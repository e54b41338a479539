package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/bizassess/internal/interfaces"
)

// fakeService is a scripted GenerationService
type fakeService struct {
	mu sync.Mutex

	responses []*interfaces.GenerationResponse
	errs      []error

	requests     []interfaces.GenerationRequest
	uploads      []string
	caches       []string
	instructions []string

	uploadErr error
	cacheErr  error
}

func (f *fakeService) Generate(ctx context.Context, req interfaces.GenerationRequest) (*interfaces.GenerationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.requests)
	f.requests = append(f.requests, req)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	if len(f.responses) > 0 {
		return f.responses[len(f.responses)-1], nil
	}
	return &interfaces.GenerationResponse{}, nil
}

func (f *fakeService) Upload(ctx context.Context, path string) (*interfaces.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, path)
	return &interfaces.UploadedFile{
		Name:     fmt.Sprintf("files/%d", len(f.uploads)),
		URI:      fmt.Sprintf("https://files.example/%d", len(f.uploads)),
		MIMEType: "application/pdf",
	}, nil
}

func (f *fakeService) CreateCachedContext(ctx context.Context, systemInstruction string, file *interfaces.UploadedFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cacheErr != nil {
		return "", f.cacheErr
	}
	f.instructions = append(f.instructions, systemInstruction)
	handle := fmt.Sprintf("cachedContents/%d", len(f.caches)+1)
	f.caches = append(f.caches, handle)
	return handle, nil
}

func textResponse(text string) *interfaces.GenerationResponse {
	return &interfaces.GenerationResponse{Text: text}
}
