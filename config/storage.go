package config

import "sync"

const (
	// DefaultDBName is the database every session opens.
	DefaultDBName = "IDBFiles"
	// DefaultDBVersion is the schema version stamped on first creation.
	DefaultDBVersion = 1
	// DefaultMaxUploadBytes caps a single upload at 100 MiB.
	DefaultMaxUploadBytes int64 = 100 * 1024 * 1024
)

// StorageConfig holds the embedded database layout and upload limits.
type StorageConfig struct {
	DataDir        string `json:"data_dir"`         // directory holding <name>.db and <name>.lock
	DBName         string `json:"db_name"`          // fixed database name
	DBVersion      int    `json:"db_version"`       // schema version requested on open
	MaxUploadBytes int64  `json:"max_upload_bytes"` // uploads above this never reach the store
	QuotaBytes     int64  `json:"quota_bytes"`      // 0 means ask the filesystem
}

var StorageConfigInstance *StorageConfig
var storageConfigOnce sync.Once

// InitStorageConfig initializes storage config.
func InitStorageConfig() {
	storageConfigOnce.Do(func() {
		version := getEnvInt("DB_VERSION", DefaultDBVersion)
		if version < 1 {
			version = DefaultDBVersion
		}
		maxUpload := getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
		if maxUpload <= 0 {
			maxUpload = DefaultMaxUploadBytes
		}
		StorageConfigInstance = &StorageConfig{
			DataDir:        getEnv("DATA_DIR", "./data"),
			DBName:         getEnv("DB_NAME", DefaultDBName),
			DBVersion:      version,
			MaxUploadBytes: maxUpload,
			QuotaBytes:     getEnvInt64("STORAGE_QUOTA_BYTES", 0),
		}
	})
}
