package monitor

import "context"

// Store persists snapshots. Implementations make Insert and Update
// individually atomic and enforce uniqueness of ServerAddress.
type Store interface {
	// FindByAddress returns (nil, nil) when the address is unknown.
	FindByAddress(ctx context.Context, address string) (*HealthSnapshot, error)
	// Insert stamps CapturedAt with the current time and returns the new id.
	// It fails with ErrConflict if the address already exists.
	Insert(ctx context.Context, r Report) (int64, error)
	// Update overwrites the mutable fields of row id and refreshes
	// CapturedAt. It fails with ErrNotFound if id does not exist.
	Update(ctx context.Context, id int64, r Report) error
	// GetByID fails with ErrNotFound if id does not exist.
	GetByID(ctx context.Context, id int64) (*HealthSnapshot, error)
	// ListAll returns every row ordered by CapturedAt descending, ties by id ascending.
	ListAll(ctx context.Context) ([]HealthSnapshot, error)
}

// Pinger is implemented by stores that can report backend liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Locker provides mutual exclusion per key. Holding the lock for one key
// never blocks Lock calls for another key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
