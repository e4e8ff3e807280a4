package catalog

import "context"

// Store persists catalog snapshots between process restarts.
type Store interface {
	Ping(ctx context.Context) error
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}
