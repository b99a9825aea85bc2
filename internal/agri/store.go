package agri

import (
	"context"
	"errors"
)

// Collection names one record collection of the store.
type Collection string

const (
	CollectionCredits   Collection = "credits"
	CollectionLedger    Collection = "ledger"
	CollectionAssets    Collection = "assets"
	CollectionLogistics Collection = "logistics"
	CollectionOrders    Collection = "orders"
	CollectionSettings  Collection = "settings"
)

// Collections lists every collection known to the current schema.
var Collections = []Collection{
	CollectionCredits,
	CollectionLedger,
	CollectionAssets,
	CollectionLogistics,
	CollectionOrders,
	CollectionSettings,
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

// AppendOnly reports whether records in c are history and must never be replaced.
// Writes to an append-only collection reject an existing key on every write path.
func (c Collection) AppendOnly() bool {
	return c == CollectionLedger || c == CollectionOrders
}

// Document is one record as the store sees it: a key and its JSON encoding.
type Document struct {
	Key  string
	Body []byte
}

// StoreState is the lifecycle state of a Store.
type StoreState int

const (
	StateUninitialized StoreState = iota
	StateOpening
	StateReady
	StateFailed
	StateClosed
)

func (s StoreState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateOpening:
		return "OPENING"
	case StateReady:
		return "READY"
	case StateFailed:
		return "FAILED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Store errors. None of them is retried by the store.
var (
	// ErrStoreUnavailable means the environment denied or could not provide storage.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreNotReady means an operation was attempted before Initialize completed.
	ErrStoreNotReady = errors.New("store not ready")
	// ErrInvalidRecord means the record lacks a key or cannot be stored as given.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrDuplicateKey means an insert-only write collided with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")
)

// Store is the local structured store: durable, single-device storage of the
// record collections with a versioned schema.
//
// Calls block until the underlying engine acknowledges them. Calls issued one
// after another by the same caller complete in submission order, so a write
// followed by GetAll on the same collection observes the write. There is no
// atomicity across calls: a caller composing several writes must handle the
// first succeeding while a later one fails.
type Store interface {
	// Initialize opens the store, creating or upgrading the schema to the current
	// version. Repeated calls after success are no-ops. Seed data is only written
	// inside the schema step that creates its collection.
	Initialize(ctx context.Context) error

	// State returns the current lifecycle state.
	State() StoreState

	// SchemaVersion returns the schema version the store is at.
	SchemaVersion(ctx context.Context) (uint, error)

	// GetAll returns every record in the collection. An empty collection yields
	// an empty slice, not an error.
	GetAll(ctx context.Context, c Collection) ([]Document, error)

	// Put inserts or replaces the record with the document's key.
	// On append-only collections an existing key is rejected with ErrDuplicateKey.
	Put(ctx context.Context, c Collection, doc Document) error

	// AddOnly inserts the record and fails with ErrDuplicateKey if the key exists.
	AddOnly(ctx context.Context, c Collection, doc Document) error

	// Close releases the underlying storage. The store cannot be used afterwards.
	Close() error
}
