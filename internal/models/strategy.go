package models

import "strings"

// Strategy identifies how a report item is generated
type Strategy string

// Strategy constants. The string values are the names accepted in
// configuration and on the command line.
const (
	StrategyContext       Strategy = "vectordb"       // retrieved context only
	StrategyFile          Strategy = "file"           // business plan file only
	StrategyFileContext   Strategy = "file+vectordb"  // file uploaded per call plus context
	StrategyCachedContext Strategy = "cache+vectordb" // cached file context plus retrieved context
	StrategySearch        Strategy = "googlesearch"   // web search grounded generation
	StrategyIPCKipris     Strategy = "ipc+kipris"     // IPC analysis plus patent statistics
)

// AllStrategies lists every supported strategy in a stable order
func AllStrategies() []Strategy {
	return []Strategy{
		StrategyContext,
		StrategyFile,
		StrategyFileContext,
		StrategyCachedContext,
		StrategySearch,
		StrategyIPCKipris,
	}
}

// ParseStrategy maps a configured name onto a Strategy
func ParseStrategy(name string) (Strategy, bool) {
	candidate := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, s := range AllStrategies() {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// RequiresFile reports whether the strategy cannot run without a business plan file
func (s Strategy) RequiresFile() bool {
	switch s {
	case StrategyFile, StrategyFileContext, StrategyCachedContext, StrategyIPCKipris:
		return true
	}
	return false
}

func (s Strategy) String() string {
	return string(s)
}
