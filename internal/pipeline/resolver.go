package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/bizassess/internal/generation"
	"github.com/ternarybob/bizassess/internal/models"
)

// DefaultSource is used when neither the item nor an override picks a strategy
const DefaultSource = models.StrategyContext

// ResolveSource picks the strategy for an item. The market item is always
// search generated; otherwise an override wins over the default.
func ResolveSource(itemID int, overrides map[int]models.Strategy, def models.Strategy) models.Strategy {
	if itemID == models.MarketItemID {
		return models.StrategySearch
	}
	if s, ok := overrides[itemID]; ok {
		return s
	}
	if def == "" {
		return DefaultSource
	}
	return def
}

// Resolver holds validated overrides for one run
type Resolver struct {
	overrides map[int]models.Strategy
	def       models.Strategy
}

// NewResolver validates strategy names up front. Unknown names fail with
// *generation.UnsupportedSourceError before any item runs.
func NewResolver(overrides map[int]string, def string) (*Resolver, error) {
	resolved := DefaultSource
	if strings.TrimSpace(def) != "" {
		s, ok := models.ParseStrategy(def)
		if !ok {
			return nil, &generation.UnsupportedSourceError{Source: def}
		}
		resolved = s
	}

	parsed := make(map[int]models.Strategy, len(overrides))
	for id, name := range overrides {
		s, ok := models.ParseStrategy(name)
		if !ok {
			return nil, &generation.UnsupportedSourceError{Source: name}
		}
		parsed[id] = s
	}

	return &Resolver{overrides: parsed, def: resolved}, nil
}

// Resolve returns the strategy for itemID
func (r *Resolver) Resolve(itemID int) models.Strategy {
	return ResolveSource(itemID, r.overrides, r.def)
}

// ParseOverrides parses "<id>=<strategy>" entries, e.g. "1=cache+vectordb".
// Strategy names are validated later by NewResolver.
func ParseOverrides(entries []string) (map[int]string, error) {
	overrides := make(map[int]string, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		idPart, name, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("invalid source override %q, expected <id>=<strategy>", entry)
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			return nil, fmt.Errorf("invalid item id in source override %q: %w", entry, err)
		}
		overrides[id] = strings.TrimSpace(name)
	}
	return overrides, nil
}

// ItemRange is an inclusive range of item ids
type ItemRange struct {
	Start int
	End   int
}

// ParseRange parses "start-end" or a single id. Empty input means the whole catalog (nil).
func ParseRange(s string) (*ItemRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	startPart, endPart, found := strings.Cut(s, "-")
	if !found {
		endPart = startPart
	}
	start, err := strconv.Atoi(strings.TrimSpace(startPart))
	if err != nil {
		return nil, fmt.Errorf("invalid range start in %q: %w", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endPart))
	if err != nil {
		return nil, fmt.Errorf("invalid range end in %q: %w", s, err)
	}
	return &ItemRange{Start: start, End: end}, nil
}
