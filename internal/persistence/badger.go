package persistence

import (
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger wraps an in-memory badger database used as an embedded cache store.
type Badger struct {
	DB *badger.DB
}

// NewBadger opens badger in in-memory mode.
func NewBadger(logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	logger.Info("opened in-memory badger store")
	return &Badger{DB: db}, nil
}

// Close releases badger resources.
func (b *Badger) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}
