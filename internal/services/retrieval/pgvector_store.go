package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/ternarybob/bizassess/internal/models"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PGVectorStore searches business plan chunks stored in a pgvector table
type PGVectorStore struct {
	db      *sql.DB
	query   string
	docType string
	logger  arbor.ILogger
}

// NewPGVectorStore opens the Postgres connection and checks it is reachable
func NewPGVectorStore(ctx context.Context, config common.RetrievalConfig, logger arbor.ILogger) (*PGVectorStore, error) {
	dsn := strings.TrimSpace(config.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("retrieval.dsn is required (or set POSTGRES_* environment variables)")
	}

	query, err := searchQuery(config.Table)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info().Str("table", config.Table).Str("doc_type", config.DocType).Msg("Vector store connected")

	return &PGVectorStore{db: db, query: query, docType: config.DocType, logger: logger}, nil
}

// Search returns the k blocks nearest to vector (cosine distance) for the
// subject company, restricted to sections, most similar first
func (s *PGVectorStore) Search(ctx context.Context, vector []float32, subject string, sections []string, k int) ([]models.ContextBlock, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if len(sections) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.query, vectorLiteral(vector), s.docType, subject, sections, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var blocks []models.ContextBlock
	for rows.Next() {
		var block models.ContextBlock
		if err := rows.Scan(&block.Section, &block.Content, &block.Similarity); err != nil {
			return nil, fmt.Errorf("scan context block: %w", err)
		}
		block.Similarity = roundSimilarity(block.Similarity)
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}

	s.logger.Debug().Str("subject", subject).Int("sections", len(sections)).Int("blocks", len(blocks)).Msg("Vector search completed")
	return blocks, nil
}

// Close closes the database connection
func (s *PGVectorStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func searchQuery(table string) (string, error) {
	if !identifierRegex.MatchString(table) {
		return "", fmt.Errorf("invalid embedding table name %q", table)
	}
	return fmt.Sprintf(`WITH q AS (SELECT $1::vector AS qv)
SELECT section, content, (1 - (embedding <=> q.qv)) AS similarity
FROM %s, q
WHERE (metadata->>'doc_type') = $2
  AND (metadata->>'company') = $3
  AND section = ANY($4)
ORDER BY embedding <=> q.qv
LIMIT $5`, table), nil
}

// vectorLiteral renders a pgvector text literal, e.g. [0.1,0.2]
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.Grow(len(vector) * 10)
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func roundSimilarity(v float64) float64 {
	return math.Round(v*10000) / 10000
}
