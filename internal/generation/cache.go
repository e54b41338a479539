package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/interfaces"
)

// DefaultPromptVersion is used when a caller passes no prompt version
const DefaultPromptVersion = "v1"

// CacheManager maps (subject, file digest, prompt version) to a cached context
// handle for the lifetime of the process. Entries never expire.
//
// Lookups and stores are mutex guarded; creation is not serialized, so two
// concurrent misses for the same key may both create an artifact. The later
// store wins and both handles remain usable.
type CacheManager struct {
	service           interfaces.GenerationService
	systemInstruction string
	logger            arbor.ILogger

	mu      sync.Mutex
	entries map[string]string
}

// NewCacheManager creates an empty cache backed by service
func NewCacheManager(service interfaces.GenerationService, systemInstruction string, logger arbor.ILogger) *CacheManager {
	return &CacheManager{
		service:           service,
		systemInstruction: systemInstruction,
		logger:            logger,
		entries:           make(map[string]string),
	}
}

// CacheKey builds the content addressed key vf:<subject>:<digest>:<version>
func CacheKey(subject, digest, promptVersion string) string {
	if promptVersion == "" {
		promptVersion = DefaultPromptVersion
	}
	return fmt.Sprintf("vf:%s:%s:%s", subject, digest, promptVersion)
}

// FileDigest returns the hex SHA-256 of the file's full byte stream
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetOrCreate returns the cached context handle for the file, uploading it and
// creating the context on a miss. Upload and creation errors are returned as is.
func (m *CacheManager) GetOrCreate(ctx context.Context, subject, filePath, promptVersion string) (string, error) {
	digest, err := FileDigest(filePath)
	if err != nil {
		return "", err
	}
	key := CacheKey(subject, digest, promptVersion)

	if handle, ok := m.lookup(key); ok {
		m.logger.Debug().Str("key", key).Str("handle", handle).Msg("Cached context hit")
		return handle, nil
	}

	m.logger.Info().Str("key", key).Msg("Cached context miss, creating")

	file, err := m.service.Upload(ctx, filePath)
	if err != nil {
		return "", err
	}

	handle, err := m.service.CreateCachedContext(ctx, m.systemInstruction, file)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.entries[key] = handle
	m.mu.Unlock()

	m.logger.Info().Str("key", key).Str("handle", handle).Msg("Cached context created")
	return handle, nil
}

// Lookup returns the handle stored under key, if any
func (m *CacheManager) Lookup(key string) (string, bool) {
	return m.lookup(key)
}

// Len returns the number of cached entries
func (m *CacheManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *CacheManager) lookup(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.entries[key]
	return handle, ok
}
