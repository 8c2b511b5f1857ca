package storage

import (
	"context"

	"LocalVault/model"
)

//go:generate mockgen -source=store.go -destination=mock/store_mock.go -package=mock_storage

// Gateway abstracts the embedded record store.
type Gateway interface {
	Open(ctx context.Context, name string, version int) (*Conn, error)
	ListAll(ctx context.Context, conn *Conn) ([]model.FileRecord, error)
	Put(ctx context.Context, conn *Conn, record *model.FileRecord) error
	DeleteOne(ctx context.Context, conn *Conn, id uint64) error
	DropDatabase(ctx context.Context, name string) error
}

// Estimator reports storage usage for the whole data directory.
type Estimator interface {
	Estimate(ctx context.Context) (Estimate, error)
}

// Estimate is a raw usage reading in bytes.
type Estimate struct {
	Usage int64
	Quota int64
}
