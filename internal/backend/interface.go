// Package backend builds the snapshot storage and event publisher selected by configuration.
package backend

import (
	"context"

	"fintrack/internal/amqp"
	"fintrack/internal/storage"
)

// Repository is what a storage backend offers: snapshot persistence plus user enumeration.
type Repository interface {
	storage.SnapshotRepository
	storage.UserLister
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult holds the constructed backend. AMQP is nil when events are disabled.
type BackendResult struct {
	Repo    Repository
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; an empty directory starts empty
	MemorySeedDir string

	// Events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
