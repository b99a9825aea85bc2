package agri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record with the requested key does not exist.
var ErrNotFound = errors.New("record not found")

// Record is anything stored in a collection under its own key.
type Record interface {
	RecordKey() string
}

// Records gives typed access to the store's collections. Every method is a
// single store call, so it inherits the store's ordering and failure semantics.
type Records struct {
	store Store
}

// NewRecords wraps a store with typed collection access.
func NewRecords(store Store) *Records {
	return &Records{store: store}
}

// Store returns the underlying store.
func (r *Records) Store() Store {
	return r.store
}

func encode(rec Record) (Document, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return Document{}, fmt.Errorf("%w: encoding %q: %v", ErrInvalidRecord, rec.RecordKey(), err)
	}
	return Document{Key: rec.RecordKey(), Body: body}, nil
}

func put(ctx context.Context, s Store, c Collection, rec Record) error {
	doc, err := encode(rec)
	if err != nil {
		return err
	}
	return s.Put(ctx, c, doc)
}

func addOnly(ctx context.Context, s Store, c Collection, rec Record) error {
	doc, err := encode(rec)
	if err != nil {
		return err
	}
	return s.AddOnly(ctx, c, doc)
}

func getAll[T any](ctx context.Context, s Store, c Collection) ([]T, error) {
	docs, err := s.GetAll(ctx, c)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var rec T
		if err := json.Unmarshal(doc.Body, &rec); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", c, doc.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func find[T Record](ctx context.Context, s Store, c Collection, key string) (*T, error) {
	all, err := getAll[T](ctx, s, c)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].RecordKey() == key {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, key)
}

// Credit dossiers

func (r *Records) Credits(ctx context.Context) ([]CreditDossier, error) {
	return getAll[CreditDossier](ctx, r.store, CollectionCredits)
}

func (r *Records) Credit(ctx context.Context, id string) (*CreditDossier, error) {
	return find[CreditDossier](ctx, r.store, CollectionCredits, id)
}

func (r *Records) PutCredit(ctx context.Context, d CreditDossier) error {
	return put(ctx, r.store, CollectionCredits, d)
}

// Ledger

func (r *Records) Ledger(ctx context.Context) ([]LedgerEntry, error) {
	return getAll[LedgerEntry](ctx, r.store, CollectionLedger)
}

func (r *Records) LedgerEntry(ctx context.Context, id string) (*LedgerEntry, error) {
	return find[LedgerEntry](ctx, r.store, CollectionLedger, id)
}

// AddLedgerEntry appends an entry. Entries are never replaced.
func (r *Records) AddLedgerEntry(ctx context.Context, e LedgerEntry) error {
	return addOnly(ctx, r.store, CollectionLedger, e)
}

// Assets

func (r *Records) Assets(ctx context.Context) ([]Asset, error) {
	return getAll[Asset](ctx, r.store, CollectionAssets)
}

func (r *Records) Asset(ctx context.Context, id string) (*Asset, error) {
	return find[Asset](ctx, r.store, CollectionAssets, id)
}

func (r *Records) PutAsset(ctx context.Context, a Asset) error {
	return put(ctx, r.store, CollectionAssets, a)
}

// Logistics fleet

func (r *Records) Fleet(ctx context.Context) ([]FleetVehicle, error) {
	return getAll[FleetVehicle](ctx, r.store, CollectionLogistics)
}

func (r *Records) Vehicle(ctx context.Context, id string) (*FleetVehicle, error) {
	return find[FleetVehicle](ctx, r.store, CollectionLogistics, id)
}

// PutVehicle overwrites the whole vehicle record.
func (r *Records) PutVehicle(ctx context.Context, v FleetVehicle) error {
	return put(ctx, r.store, CollectionLogistics, v)
}

// Orders

func (r *Records) Orders(ctx context.Context) ([]Order, error) {
	return getAll[Order](ctx, r.store, CollectionOrders)
}

// AddOrder appends an order. Orders are never replaced.
func (r *Records) AddOrder(ctx context.Context, o Order) error {
	return addOnly(ctx, r.store, CollectionOrders, o)
}

// Settings

func (r *Records) Settings(ctx context.Context) ([]Setting, error) {
	return getAll[Setting](ctx, r.store, CollectionSettings)
}

func (r *Records) PutSetting(ctx context.Context, s Setting) error {
	return put(ctx, r.store, CollectionSettings, s)
}
