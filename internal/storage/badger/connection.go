package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bizassess/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// gcDiscardRatio is the value log discard ratio used when compacting on close
const gcDiscardRatio = 0.5

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens the report database. Records are encoded as JSON so
// report content of any shape round-trips.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		// Badger logs through its own logger; arbor covers the store
		Options: badger.DefaultOptions(config.Path).WithLogger(nil).WithNumVersionsToKeep(1),
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Report database opened")

	return &BadgerDB{store: store, logger: logger, config: config}, nil
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Compact runs one value log garbage collection pass. Nothing to rewrite is not an error.
func (b *BadgerDB) Compact() error {
	err := b.store.Badger().RunValueLogGC(gcDiscardRatio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("value log gc: %w", err)
	}
	return nil
}

// Close compacts and closes the database
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	if err := b.Compact(); err != nil {
		b.logger.Warn().Err(err).Msg("Report database compaction failed")
	}
	return b.store.Close()
}
