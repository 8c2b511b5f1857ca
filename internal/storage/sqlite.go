package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"LocalVault/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteGateway implements Gateway with one SQLite file per database name.
type SQLiteGateway struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]map[*Conn]struct{}
	locks map[string]*os.File // shared flock held while conns[name] is non-empty
}

// NewSQLiteGateway creates the data directory if needed.
func NewSQLiteGateway(dir string, logger *slog.Logger) (*SQLiteGateway, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteGateway{
		dir:    dir,
		logger: logger.With(slog.String("component", "storage")),
		conns:  make(map[string]map[*Conn]struct{}),
		locks:  make(map[string]*os.File),
	}, nil
}

// Dir returns the data directory.
func (g *SQLiteGateway) Dir() string {
	return g.dir
}

func (g *SQLiteGateway) dbPath(name string) string {
	return filepath.Join(g.dir, name+".db")
}

func (g *SQLiteGateway) lockPath(name string) string {
	return filepath.Join(g.dir, name+".lock")
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

// Open opens or creates the database and upgrades it to version.
func (g *SQLiteGateway) Open(ctx context.Context, name string, version int) (*Conn, error) {
	const op = "open"
	if err := ctx.Err(); err != nil {
		return nil, opError(op, ErrConnection, err)
	}
	if !validName(name) {
		return nil, opError(op, ErrConnection, fmt.Errorf("invalid database name %q", name))
	}
	if version < 1 {
		return nil, opError(op, ErrConnection, fmt.Errorf("invalid version %d", version))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.acquireShared(name); err != nil {
		return nil, opError(op, ErrConnection, err)
	}

	dsn := g.dbPath(name) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		g.releaseShared(name)
		return nil, opError(op, ErrConnection, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		g.releaseShared(name)
		return nil, opError(op, ErrConnection, err)
	}
	// one pooled connection keeps commits in submission order
	sqlDB.SetMaxOpenConns(1)

	if err := upgrade(ctx, db, version); err != nil {
		_ = sqlDB.Close()
		g.releaseShared(name)
		return nil, opError(op, ErrConnection, err)
	}

	conn := &Conn{name: name, version: version, gw: g, db: db}
	if g.conns[name] == nil {
		g.conns[name] = make(map[*Conn]struct{})
	}
	g.conns[name][conn] = struct{}{}

	g.logger.Debug("database opened",
		slog.String("db", name),
		slog.Int("version", version),
	)
	return conn, nil
}

// upgrade creates the record store when the stored version is behind.
func upgrade(ctx context.Context, db *gorm.DB, version int) error {
	var current int
	if err := db.WithContext(ctx).Raw("PRAGMA user_version").Scan(&current).Error; err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if current > version {
		return fmt.Errorf("%w: stored %d, requested %d", ErrVersion, current, version)
	}
	if current == version {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !tx.Migrator().HasTable(&model.FileRecord{}) {
			if err := tx.Migrator().CreateTable(&model.FileRecord{}); err != nil {
				return fmt.Errorf("create store %s: %w", model.FileStoreName, err)
			}
		}
		// PRAGMA does not take bind parameters; version is an int
		return tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)).Error
	})
}

// ListAll returns every record in insertion order.
func (g *SQLiteGateway) ListAll(ctx context.Context, conn *Conn) ([]model.FileRecord, error) {
	const op = "list"
	db, err := conn.handle()
	if err != nil {
		return nil, opError(op, ErrRead, err)
	}
	var records []model.FileRecord
	if err := db.WithContext(ctx).Order("id ASC").Find(&records).Error; err != nil {
		return nil, opError(op, ErrRead, err)
	}
	return records, nil
}

// Put inserts a record, or replaces the record with the same non-zero id.
// On insert the assigned id is written back into record.
func (g *SQLiteGateway) Put(ctx context.Context, conn *Conn, record *model.FileRecord) error {
	const op = "put"
	if record == nil {
		return opError(op, ErrWrite, errors.New("nil record"))
	}
	db, err := conn.handle()
	if err != nil {
		return opError(op, ErrWrite, err)
	}
	tx := db.WithContext(ctx)
	if record.ID != 0 {
		tx = tx.Clauses(clause.OnConflict{UpdateAll: true})
	}
	if err := tx.Create(record).Error; err != nil {
		return opError(op, ErrWrite, err)
	}
	return nil
}

// DeleteOne removes the record with id. A missing id is not an error.
func (g *SQLiteGateway) DeleteOne(ctx context.Context, conn *Conn, id uint64) error {
	const op = "delete"
	db, err := conn.handle()
	if err != nil {
		return opError(op, ErrWrite, err)
	}
	if err := db.WithContext(ctx).Delete(&model.FileRecord{}, id).Error; err != nil {
		return opError(op, ErrWrite, err)
	}
	return nil
}

// DropDatabase deletes the database files and invalidates this gateway's
// handles on it. It fails with ErrBlocked while another holder has it open.
func (g *SQLiteGateway) DropDatabase(ctx context.Context, name string) error {
	const op = "drop"
	if err := ctx.Err(); err != nil {
		return opError(op, ErrDelete, err)
	}
	if !validName(name) {
		return opError(op, ErrDelete, fmt.Errorf("invalid database name %q", name))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	f, owned := g.locks[name]
	if !owned {
		var err error
		f, err = os.OpenFile(g.lockPath(name), os.O_CREATE|os.O_RDWR, 0o640)
		if err != nil {
			return opError(op, ErrDelete, err)
		}
	}
	if err := lockExclusive(f); err != nil {
		if owned {
			// flock conversion may drop the shared lock on failure
			_ = lockShared(f)
		} else {
			_ = f.Close()
		}
		if isWouldBlock(err) {
			return opError(op, ErrDelete, ErrBlocked)
		}
		return opError(op, ErrDelete, err)
	}

	for conn := range g.conns[name] {
		if err := conn.invalidate(); err != nil {
			g.logger.Warn("close invalidated connection failed",
				slog.String("db", name),
				slog.String("error", err.Error()),
			)
		}
	}
	delete(g.conns, name)
	delete(g.locks, name)

	var errs []error
	base := g.dbPath(name)
	for _, path := range []string{base, base + "-journal", base + "-wal", base + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	_ = os.Remove(g.lockPath(name))
	_ = unlock(f)
	_ = f.Close()

	if len(errs) > 0 {
		return opError(op, ErrDelete, errors.Join(errs...))
	}
	g.logger.Info("database dropped", slog.String("db", name))
	return nil
}

// acquireShared takes the shared lock for name unless this gateway already holds it.
// Callers hold g.mu.
func (g *SQLiteGateway) acquireShared(name string) error {
	if _, ok := g.locks[name]; ok {
		return nil
	}
	f, err := os.OpenFile(g.lockPath(name), os.O_CREATE|os.O_RDWR, 0o640)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := lockShared(f); err != nil {
		_ = f.Close()
		if isWouldBlock(err) {
			return ErrBlocked
		}
		return fmt.Errorf("lock %s: %w", name, err)
	}
	g.locks[name] = f
	return nil
}

// releaseShared drops the shared lock once no handle on name remains.
// Callers hold g.mu.
func (g *SQLiteGateway) releaseShared(name string) {
	if len(g.conns[name]) > 0 {
		return
	}
	f, ok := g.locks[name]
	if !ok {
		return
	}
	_ = unlock(f)
	_ = f.Close()
	delete(g.locks, name)
}

// release closes one handle and forgets it.
func (g *SQLiteGateway) release(conn *Conn) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	err := conn.invalidate()
	if set, ok := g.conns[conn.name]; ok {
		if _, tracked := set[conn]; tracked {
			delete(set, conn)
			if len(set) == 0 {
				delete(g.conns, conn.name)
			}
			g.releaseShared(conn.name)
		}
	}
	return err
}
