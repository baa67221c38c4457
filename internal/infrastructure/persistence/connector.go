package persistence

import (
	"context"
	"sync"

	"github.com/stuffkit/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Connector opens the database on first use and hands out the same
// handle afterwards. A failed open is not remembered.
type Connector struct {
	cfg    *config.DatabaseConfig
	opts   []Option
	logger *zap.Logger
	open   func(*config.DatabaseConfig, ...Option) (*Database, error)

	mu sync.Mutex
	db *Database
}

// NewConnector prepares a lazy connection; nothing is dialed yet.
func NewConnector(cfg *config.DatabaseConfig, logger *zap.Logger, opts ...Option) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{cfg: cfg, opts: opts, logger: logger, open: NewDatabase}
}

// Database returns the shared handle, connecting if needed.
func (c *Connector) Database(ctx context.Context) (*Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.Debug("opening database connection", zap.String("driver", c.cfg.Driver))
	db, err := c.open(c.cfg, c.opts...)
	if err != nil {
		c.logger.Error("database connection failed", zap.Error(err))
		return nil, err
	}
	c.db = db
	return db, nil
}

// Connected reports whether a handle has been opened.
func (c *Connector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db != nil
}

// Close closes the handle if one was opened. The connector can reconnect
// afterwards.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.logger.Debug("database connection closed")
	return err
}
