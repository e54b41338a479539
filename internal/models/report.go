package models

import "time"

// Fixed catalog identities the engine routes on
const (
	// MarketItemID is always generated with web search, whatever the overrides say
	MarketItemID = 3

	// TitleBusinessModel is the search-generated item that returns a narrative evaluation
	TitleBusinessModel = "Business Model Capability Assessment"
)

// ReportItem is one entry of the report catalog
type ReportItem struct {
	ID       int      `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Query    string   `json:"query" yaml:"query"`       // Retrieval query, {company} is replaced with the subject
	Sections []string `json:"sections" yaml:"sections"` // Context sections searched for this item
	Task     string   `json:"task" yaml:"task"`         // Item specific instructions for the model
}

// ContextBlock is one retrieved chunk, ordered by descending similarity
type ContextBlock struct {
	Section    string  `json:"section"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// Citation is a web source returned by search grounding
type Citation struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// Grounding carries the search metadata attached to search generated content
type Grounding struct {
	WebSearchQueries []string   `json:"web_search_queries,omitempty"`
	Sources          []Citation `json:"sources,omitempty"`
}

// GenerationResult is a validated payload plus optional grounding
type GenerationResult[T any] struct {
	Payload   T
	Grounding *Grounding
}

// ReportOutcome is the per-item result of a run. Failed items carry
// Error=true, a message and nil content.
type ReportOutcome struct {
	Title     string     `json:"title"`
	Error     bool       `json:"error,omitempty"`
	Message   string     `json:"message,omitempty"`
	Content   any        `json:"content"`
	Grounding *Grounding `json:"grounding,omitempty"`
}

// FailedOutcome builds the failure record for an item
func FailedOutcome(title string, err error) ReportOutcome {
	return ReportOutcome{
		Title:   title,
		Error:   true,
		Message: err.Error(),
		Content: nil,
	}
}

// RecordMetadata describes a persisted report item
type RecordMetadata struct {
	Company   string    `json:"company"`
	ItemID    int       `json:"item_id"`
	Section   string    `json:"section"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Filename  string    `json:"filename"`
}

// ReportRecord is the unit written by report storage
type ReportRecord struct {
	Key      string         `json:"-" badgerhold:"key"`
	Metadata RecordMetadata `json:"metadata"`
	Content  ReportOutcome  `json:"content"`
}
