package storage

import (
	"sync"

	"gorm.io/gorm"
)

// Conn is an open handle on one database. It stays usable until Close or until
// the database is dropped, after which every operation fails with ErrConnClosed.
type Conn struct {
	name    string
	version int
	gw      *SQLiteGateway

	mu     sync.RWMutex
	db     *gorm.DB
	closed bool
}

// Name returns the database name the handle was opened on.
func (c *Conn) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Version returns the schema version the handle was opened with.
func (c *Conn) Version() int {
	if c == nil {
		return 0
	}
	return c.version
}

// Closed reports whether the handle can no longer be used.
func (c *Conn) Closed() bool {
	if c == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed || c.db == nil
}

// Close releases the handle. Closing twice is a no-op.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}
	if c.gw != nil {
		return c.gw.release(c)
	}
	return c.invalidate()
}

// handle returns the live gorm handle or ErrConnClosed.
func (c *Conn) handle() (*gorm.DB, error) {
	if c == nil {
		return nil, ErrConnClosed
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.db == nil {
		return nil, ErrConnClosed
	}
	return c.db, nil
}

// invalidate closes the underlying pool and marks the handle dead.
func (c *Conn) invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
