package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/database"
)

// NewTestStore creates an initialized in-memory store with the seed lots.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	store := database.NewSQLiteStore(":memory:")
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTestService wires a Service over a fresh test store with a fixed clock
// and sequential IDs.
func NewTestService(t *testing.T) (*agri.Service, *FieldClock) {
	t.Helper()
	clock := FixedClock()
	records := agri.NewRecords(NewTestStore(t))
	return agri.NewService(records, agri.NewNopLogger(), clock, NewSeqIDs(), agri.DefaultRules()), clock
}

// ErrInjected is the failure FaultyStore returns.
var ErrInjected = errors.New("injected store failure")

// FaultyStore wraps a Store and fails the next writes to one collection.
type FaultyStore struct {
	agri.Store

	mu       sync.Mutex
	failures map[agri.Collection]int
}

func NewFaultyStore(inner agri.Store) *FaultyStore {
	return &FaultyStore{Store: inner, failures: make(map[agri.Collection]int)}
}

// FailWrites makes the next n writes to c fail with ErrInjected.
func (s *FaultyStore) FailWrites(c agri.Collection, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[c] = n
}

func (s *FaultyStore) fail(c agri.Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[c] > 0 {
		s.failures[c]--
		return true
	}
	return false
}

func (s *FaultyStore) Put(ctx context.Context, c agri.Collection, doc agri.Document) error {
	if s.fail(c) {
		return ErrInjected
	}
	return s.Store.Put(ctx, c, doc)
}

func (s *FaultyStore) AddOnly(ctx context.Context, c agri.Collection, doc agri.Document) error {
	if s.fail(c) {
		return ErrInjected
	}
	return s.Store.AddOnly(ctx, c, doc)
}

// NewUninitializedStore returns an in-memory store that was never initialized.
func NewUninitializedStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store := database.NewSQLiteStore(":memory:")
	t.Cleanup(func() { store.Close() })
	return store
}
