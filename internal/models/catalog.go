package models

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the ordered, immutable set of report items
type Catalog struct {
	items []ReportItem
	byID  map[int]ReportItem
}

type catalogFile struct {
	Items []ReportItem `yaml:"items"`
}

// NewCatalog validates items and builds a catalog.
// IDs must run contiguously from 1, titles must be unique and every item needs a query.
func NewCatalog(items []ReportItem) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog has no items")
	}

	sorted := append([]ReportItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	titles := make(map[string]int, len(sorted))
	byID := make(map[int]ReportItem, len(sorted))
	for i, item := range sorted {
		if item.ID != i+1 {
			return nil, fmt.Errorf("catalog item ids must run from 1 without gaps: found %d at position %d", item.ID, i+1)
		}
		if strings.TrimSpace(item.Title) == "" {
			return nil, fmt.Errorf("catalog item %d has no title", item.ID)
		}
		if other, exists := titles[item.Title]; exists {
			return nil, fmt.Errorf("catalog title %q used by items %d and %d", item.Title, other, item.ID)
		}
		if strings.TrimSpace(item.Query) == "" {
			return nil, fmt.Errorf("catalog item %d has no query", item.ID)
		}
		titles[item.Title] = item.ID
		byID[item.ID] = item
	}

	return &Catalog{items: sorted, byID: byID}, nil
}

// LoadCatalog reads a YAML catalog ({items: [...]}) from disk
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	return NewCatalog(file.Items)
}

// Len returns the number of items
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item returns the item with the given id
func (c *Catalog) Item(id int) (ReportItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns a copy of all items in ascending id order
func (c *Catalog) Items() []ReportItem {
	return append([]ReportItem(nil), c.items...)
}

// RenderQuery substitutes the subject into the item's retrieval query
func (r ReportItem) RenderQuery(subject string) string {
	return strings.ReplaceAll(r.Query, "{company}", subject)
}

// DefaultCatalog returns the built-in five item assessment catalog
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultItems)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return catalog
}

var defaultItems = []ReportItem{
	{
		ID:       1,
		Title:    "Future Technology Readiness",
		Query:    "{company} core technology, R&D capability, technology roadmap and future technology trends",
		Sections: []string{"item_overview", "technology", "development_plan", "keywords"},
		Task: "Assess how well the company's core technology anticipates future technology trends. " +
			"Cover technical differentiation, development maturity, R&D organisation and the realism of the technology roadmap.",
	},
	{
		ID:       2,
		Title:    "IP Readiness",
		Query:    "{company} patents, intellectual property, trademarks and IP strategy",
		Sections: []string{"item_overview", "technology", "intellectual_property", "keywords"},
		Task: "Assess the company's intellectual property position. Cover held and pending rights, " +
			"freedom-to-operate risks and whether the IP strategy protects the core business functions.",
	},
	{
		ID:       MarketItemID,
		Title:    "Market Size Forecast and Competitors",
		Query:    "{company} target market, customers, market size and competitors",
		Sections: []string{"item_overview", "market", "competition", "keywords"},
		Task: "Using web search evidence only, forecast the overseas and domestic (Korean) market size for the " +
			"company's business item for up to five years and list competitors offering similar products or services. " +
			"Leave figures null when no source supports them; never invent numbers or URLs.",
	},
	{
		ID:       4,
		Title:    TitleBusinessModel,
		Query:    "{company} business model, revenue model, pricing and value proposition",
		Sections: []string{"item_overview", "business_model", "revenue", "keywords"},
		Task: "Assess the business model. Cover the value proposition, revenue streams, cost structure, " +
			"scalability and how the model compares to established players.",
	},
	{
		ID:       5,
		Title:    "Marketing Capability Assessment",
		Query:    "{company} marketing strategy, sales channels, promotion and customer acquisition",
		Sections: []string{"item_overview", "marketing", "sales", "keywords"},
		Task: "Assess the marketing capability. Cover target segments, positioning, channels, " +
			"customer acquisition plans and the evidence that they can be executed.",
	},
}
