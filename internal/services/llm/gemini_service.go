package llm

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/interfaces"
	"github.com/ternarybob/bizassess/internal/models"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	filePollInterval = 2 * time.Second
	filePollTimeout  = 2 * time.Minute
)

// GeminiService implements GenerationService and Embedder on the Gemini API
type GeminiService struct {
	config  common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
	ttl     time.Duration
}

// NewGeminiService creates a Gemini client. The API key comes from the
// environment first (BIZASSESS_GEMINI_API_KEY, GEMINI_API_KEY, GOOGLE_API_KEY)
// and falls back to gemini.api_key in config.
func NewGeminiService(ctx context.Context, config common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	apiKey, err := common.ResolveAPIKey(config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config): %w", err)
	}

	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	interval := common.ParseDuration(config.RateLimit, time.Second)
	service := &GeminiService{
		config:  config,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: common.ParseDuration(config.Timeout, 5*time.Minute),
		ttl:     common.ParseDuration(config.CacheTTL, time.Hour),
	}

	logger.Info().
		Str("model", config.Model).
		Str("context_model", config.ContextModel).
		Str("embed_model", config.EmbedModel).
		Int("embed_dimension", config.EmbedDimension).
		Dur("rate_limit", interval).
		Dur("timeout", service.timeout).
		Msg("Gemini service initialized")

	return service, nil
}

// Generate runs one generation call and returns the first candidate's text
func (s *GeminiService) Generate(ctx context.Context, req interfaces.GenerationRequest) (*interfaces.GenerationResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = s.config.Model
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if req.SearchEnabled {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.CachedContext != "" {
		config.CachedContent = req.CachedContext
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(timeoutCtx, model, buildContents(req), config)
	if err != nil {
		s.logger.Warn().Err(err).Str("model", model).Bool("search", req.SearchEnabled).Msg("Generation call failed")
		return nil, classifyError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no response generated by %s", model)
	}

	out := &interfaces.GenerationResponse{Text: text}
	if req.SearchEnabled && len(resp.Candidates) > 0 {
		out.Grounding = groundingFromMetadata(resp.Candidates[0].GroundingMetadata)
	}

	s.logger.Debug().
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Generation completed")

	return out, nil
}

// Upload registers a local file and waits until it is usable
func (s *GeminiService) Upload(ctx context.Context, path string) (*interfaces.UploadedFile, error) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	file, err := s.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, classifyError(err))
	}

	file, err = s.waitActive(ctx, file)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("path", path).Str("file", file.Name).Str("mime_type", file.MIMEType).Msg("File uploaded")

	return &interfaces.UploadedFile{Name: file.Name, URI: file.URI, MIMEType: file.MIMEType}, nil
}

func (s *GeminiService) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(filePollTimeout)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("file %s still processing after %s", file.Name, filePollTimeout)
		}
		if err := generation.SleepContext(ctx, filePollInterval); err != nil {
			return nil, err
		}
		latest, err := s.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("get file %s: %w", file.Name, classifyError(err))
		}
		file = latest
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("file %s failed processing", file.Name)
	}
	return file, nil
}

// CreateCachedContext stores file under systemInstruction and returns the cache name
func (s *GeminiService) CreateCachedContext(ctx context.Context, systemInstruction string, file *interfaces.UploadedFile) (string, error) {
	if file == nil {
		return "", fmt.Errorf("cached context requires an uploaded file")
	}

	cached, err := s.client.Caches.Create(ctx, s.config.Model, &genai.CreateCachedContentConfig{
		DisplayName:       file.Name,
		TTL:               s.ttl,
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Contents: []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{genai.NewPartFromURI(file.URI, file.MIMEType)}, genai.RoleUser),
		},
	})
	if err != nil {
		return "", fmt.Errorf("create cached context: %w", classifyError(err))
	}

	s.logger.Info().Str("cache", cached.Name).Str("file", file.Name).Dur("ttl", s.ttl).Msg("Cached context created")
	return cached.Name, nil
}

// Embed generates a query embedding with the configured dimensionality
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if s.config.EmbedDimension > 0 {
		dim := int32(s.config.EmbedDimension)
		config.OutputDimensionality = &dim
	}

	result, err := s.client.Models.EmbedContent(timeoutCtx, s.config.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, config)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", classifyError(err))
	}

	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}

	embedding := result.Embeddings[0].Values
	if s.config.EmbedDimension > 0 && len(embedding) != s.config.EmbedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.EmbedDimension, len(embedding))
	}

	return embedding, nil
}

// Close releases the client reference
func (s *GeminiService) Close() error {
	s.logger.Info().Msg("Closing Gemini service")
	s.client = nil
	return nil
}

// buildContents attaches the file (if any) ahead of the prompt
func buildContents(req interfaces.GenerationRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, 2)
	if req.File != nil {
		parts = append(parts, genai.NewPartFromURI(req.File.URI, req.File.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// groundingFromMetadata keeps the search queries and web sources
func groundingFromMetadata(gm *genai.GroundingMetadata) *models.Grounding {
	if gm == nil {
		return nil
	}

	grounding := &models.Grounding{WebSearchQueries: gm.WebSearchQueries}
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		grounding.Sources = append(grounding.Sources, models.Citation{
			Title: chunk.Web.Title,
			URI:   chunk.Web.URI,
		})
	}

	if len(grounding.WebSearchQueries) == 0 && len(grounding.Sources) == 0 {
		return nil
	}
	return grounding
}
