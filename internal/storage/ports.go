package storage

import "context"

// Ports for snapshot persistence.
type (
	// SnapshotRepository stores one opaque JSON document per user.
	SnapshotRepository interface {
		// GetSnapshot returns the stored document. ok is false when none exists.
		GetSnapshot(ctx context.Context, userID string) (data []byte, ok bool, err error)
		// PutSnapshot replaces the user's document (last write wins).
		PutSnapshot(ctx context.Context, userID string, data []byte) error
		DeleteSnapshot(ctx context.Context, userID string) error
	}

	// UserLister enumerates users that have a stored document.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}
)

var (
	_ SnapshotRepository = (*SQLiteRepository)(nil)
	_ UserLister         = (*SQLiteRepository)(nil)
)
