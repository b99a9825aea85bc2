package agri

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Domain errors returned by Service.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidTransition  = errors.New("invalid tranche transition")
	ErrTrancheAlreadyPaid = errors.New("tranche already paid")
	ErrNotReservable      = errors.New("asset is not reservable")
	ErrInsufficientYield  = errors.New("quantity exceeds estimated yield")
)

const (
	// DateLayout is the format of record dates.
	DateLayout = "2006-01-02"

	// LedgerTypeSplit marks a tranche payout split between producer and platform.
	LedgerTypeSplit = "BCEG-SPLIT"

	// DefaultBuyerName is used for reservations placed without a buyer name.
	DefaultBuyerName = "Acheteur Souverain"
)

// Rules holds the platform's financial parameters.
type Rules struct {
	FeeRate         float64 // share of each disbursed tranche kept by the platform
	AdvanceDiscount float64 // discount granted on prepaid reservations
}

// DefaultRules returns a 2.5% disbursement fee and a 10% advance-payment discount.
func DefaultRules() Rules {
	return Rules{FeeRate: 0.025, AdvanceDiscount: 0.10}
}

// Fee returns the platform fee on a gross amount, rounded to the nearest XAF.
func (r Rules) Fee(gross int64) int64 {
	return int64(math.Round(float64(gross) * r.FeeRate))
}

// Discount returns the advance-payment discount on a total, rounded to the nearest XAF.
func (r Rules) Discount(total int64) int64 {
	return int64(math.Round(float64(total) * r.AdvanceDiscount))
}

// Service implements the domain actions the dashboards perform against the store.
type Service struct {
	records *Records
	logger  Logger
	clock   Clock
	ids     IDGenerator
	rules   Rules
}

// NewService creates a Service over the given records.
func NewService(records *Records, logger Logger, clock Clock, ids IDGenerator, rules Rules) *Service {
	return &Service{
		records: records,
		logger:  logger,
		clock:   clock,
		ids:     ids,
		rules:   rules,
	}
}

// Records returns the typed collection access the service writes through.
func (s *Service) Records() *Records {
	return s.records
}

// Rules returns the financial parameters in effect.
func (s *Service) Rules() Rules {
	return s.rules
}

func (s *Service) today() string {
	return s.clock.Now().Format(DateLayout)
}

// OpenDossier validates a credit dossier and stores it, replacing any dossier
// with the same id. A replacement may not move a stored tranche backward, drop
// or resize a PAID tranche, or mark a tranche PAID that has no ledger entry.
func (s *Service) OpenDossier(ctx context.Context, d CreditDossier) error {
	if err := validateDossier(d); err != nil {
		return err
	}

	stored, err := s.records.Credit(ctx, d.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		stored = nil
	case err != nil:
		return fmt.Errorf("loading dossier: %w", err)
	}
	if err := s.checkTranches(ctx, d, stored); err != nil {
		return err
	}

	if err := s.records.PutCredit(ctx, d); err != nil {
		return fmt.Errorf("storing dossier: %w", err)
	}
	s.logger.Info("dossier opened", "dossier", d.ID, "farmer", d.Farmer, "tranches", len(d.Tranches))
	return nil
}

func validateDossier(d CreditDossier) error {
	if d.ID == "" {
		return fmt.Errorf("%w: dossier id is required", ErrInvalidRequest)
	}
	if d.Farmer == "" {
		return fmt.Errorf("%w: dossier %s has no farmer", ErrInvalidRequest, d.ID)
	}
	if d.Amount <= 0 {
		return fmt.Errorf("%w: dossier %s amount must be positive", ErrInvalidRequest, d.ID)
	}
	switch d.Category {
	case CategoryAgriculture, CategoryLivestock:
	default:
		return fmt.Errorf("%w: dossier %s has unknown category %q", ErrInvalidRequest, d.ID, d.Category)
	}

	seen := make(map[string]bool, len(d.Tranches))
	for _, t := range d.Tranches {
		if t.ID == "" {
			return fmt.Errorf("%w: dossier %s has a tranche without id", ErrInvalidRequest, d.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: dossier %s repeats tranche %s", ErrInvalidRequest, d.ID, t.ID)
		}
		seen[t.ID] = true
		if !t.Status.Valid() {
			return fmt.Errorf("%w: tranche %s has unknown status %q", ErrInvalidRequest, t.ID, t.Status)
		}
		if t.Amount <= 0 {
			return fmt.Errorf("%w: tranche %s amount must be positive", ErrInvalidRequest, t.ID)
		}
	}
	return nil
}

// checkTranches compares the tranches of d against the stored dossier, if any.
func (s *Service) checkTranches(ctx context.Context, d CreditDossier, stored *CreditDossier) error {
	if stored != nil {
		for _, prev := range stored.Tranches {
			if prev.Status == TranchePaid && d.Tranche(prev.ID) == nil {
				return fmt.Errorf("%w: tranche %s of %s is PAID and cannot be removed", ErrInvalidTransition, prev.ID, d.ID)
			}
		}
	}

	for _, t := range d.Tranches {
		var prev *Tranche
		if stored != nil {
			prev = stored.Tranche(t.ID)
		}
		if prev != nil {
			if t.Status.rank() < prev.Status.rank() {
				return fmt.Errorf("%w: tranche %s of %s cannot go from %s to %s", ErrInvalidTransition, t.ID, d.ID, prev.Status, t.Status)
			}
			if prev.Status == TranchePaid {
				if t.Amount != prev.Amount {
					return fmt.Errorf("%w: tranche %s of %s is PAID, amount is fixed at %d", ErrInvalidTransition, t.ID, d.ID, prev.Amount)
				}
				continue
			}
		}

		if t.Status != TranchePaid {
			continue
		}
		// Only a recorded payout can make a tranche PAID.
		_, err := s.records.LedgerEntry(ctx, LedgerEntryID(d.ID, t.ID))
		switch {
		case errors.Is(err, ErrNotFound):
			return fmt.Errorf("%w: tranche %s of %s is PAID without a ledger entry", ErrInvalidTransition, t.ID, d.ID)
		case err != nil:
			return fmt.Errorf("loading ledger entry: %w", err)
		}
	}
	return nil
}

func (s *Service) loadTranche(ctx context.Context, dossierID, trancheID string) (*CreditDossier, *Tranche, error) {
	dossier, err := s.records.Credit(ctx, dossierID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dossier: %w", err)
	}
	tranche := dossier.Tranche(trancheID)
	if tranche == nil {
		return nil, nil, fmt.Errorf("%w: tranche %s in dossier %s", ErrNotFound, trancheID, dossierID)
	}
	return dossier, tranche, nil
}

// ReleaseTranche records that a tranche's release condition is met (PENDING -> LOCKED).
func (s *Service) ReleaseTranche(ctx context.Context, dossierID, trancheID string) error {
	dossier, tranche, err := s.loadTranche(ctx, dossierID, trancheID)
	if err != nil {
		return err
	}
	if tranche.Status != TranchePending {
		return fmt.Errorf("%w: tranche %s is %s, only PENDING can be released", ErrInvalidTransition, trancheID, tranche.Status)
	}

	tranche.Status = TrancheLocked
	if err := s.records.PutCredit(ctx, *dossier); err != nil {
		return fmt.Errorf("storing dossier: %w", err)
	}
	s.logger.Info("tranche released", "dossier", dossierID, "tranche", trancheID)
	return nil
}

// LedgerEntryID returns the ledger key of a tranche's payout. One tranche maps
// to exactly one key, so the ledger's insert-only semantics forbid paying it twice.
func LedgerEntryID(dossierID, trancheID string) string {
	return "L-" + dossierID + "-" + trancheID
}

// Disburse pays out a LOCKED tranche: it appends the ledger entry splitting the
// gross amount into fee and net, then marks the tranche PAID.
//
// The two writes are separate store calls. The ledger entry goes first under a
// key derived from the tranche; if the tranche update then fails, the next call
// finds the entry and completes the update instead of paying again.
func (s *Service) Disburse(ctx context.Context, dossierID, trancheID string) (*LedgerEntry, error) {
	s.logger.Debug("disbursing tranche", "dossier", dossierID, "tranche", trancheID)

	dossier, tranche, err := s.loadTranche(ctx, dossierID, trancheID)
	if err != nil {
		return nil, err
	}
	switch tranche.Status {
	case TranchePaid:
		return nil, fmt.Errorf("%w: %s/%s", ErrTrancheAlreadyPaid, dossierID, trancheID)
	case TranchePending:
		return nil, fmt.Errorf("%w: tranche %s is PENDING, release it first", ErrInvalidTransition, trancheID)
	}

	fee := s.rules.Fee(tranche.Amount)
	entry := LedgerEntry{
		ID:          LedgerEntryID(dossierID, trancheID),
		Date:        s.today(),
		Description: tranche.Label + " - " + dossier.Farmer,
		Gross:       tranche.Amount,
		Fee:         fee,
		Net:         tranche.Amount - fee,
		Type:        LedgerTypeSplit,
	}

	err = s.records.AddLedgerEntry(ctx, entry)
	switch {
	case errors.Is(err, ErrDuplicateKey):
		existing, err := s.records.LedgerEntry(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("loading existing ledger entry: %w", err)
		}
		s.logger.Warn("completing interrupted disbursement", "dossier", dossierID, "tranche", trancheID, "entry", existing.ID)
		entry = *existing
	case err != nil:
		return nil, fmt.Errorf("appending ledger entry: %w", err)
	}

	tranche.Status = TranchePaid
	if err := s.records.PutCredit(ctx, *dossier); err != nil {
		s.logger.Error("tranche not marked paid after payout", "entry", entry.ID, "error", err)
		return nil, fmt.Errorf("ledger entry %s recorded but tranche not marked paid, retry to complete: %w", entry.ID, err)
	}

	s.logger.Info("tranche disbursed", "dossier", dossierID, "tranche", trancheID, "gross", entry.Gross, "fee", entry.Fee, "net", entry.Net)
	return &entry, nil
}

// ReserveRequest describes a buyer's prepaid reservation of a harvest lot.
// A zero Quantity reserves the whole estimated yield.
type ReserveRequest struct {
	AssetID   string
	BuyerName string
	Quantity  float64
}

// Reservation is the outcome of Reserve.
type Reservation struct {
	Order    Order
	Total    int64 // before discount
	Discount int64
}

// Reserve places a prepaid order against a harvest lot at the lot's price per
// ton, minus the advance-payment discount.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	asset, err := s.records.Asset(ctx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("loading asset: %w", err)
	}
	if !asset.Reservable() {
		return nil, fmt.Errorf("%w: %s is not a harvest lot", ErrNotReservable, asset.ID)
	}
	if asset.PricePerTon == nil {
		return nil, fmt.Errorf("%w: %s has no price per ton", ErrNotReservable, asset.ID)
	}

	var yield float64
	if asset.EstimatedYield != nil {
		yield = *asset.EstimatedYield
	}
	qty := req.Quantity
	if qty == 0 {
		qty = yield
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if qty > yield {
		return nil, fmt.Errorf("%w: %.2f t requested, %.2f t estimated for %s", ErrInsufficientYield, qty, yield, asset.ID)
	}

	buyer := req.BuyerName
	if buyer == "" {
		buyer = DefaultBuyerName
	}

	total := int64(math.Round(qty * float64(*asset.PricePerTon)))
	discount := s.rules.Discount(total)
	order := Order{
		ID:        "ORD-" + s.ids.New(),
		BuyerName: buyer,
		AssetID:   asset.ID,
		CropType:  asset.Type,
		Quantity:  qty,
		TotalPaid: total - discount,
		Status:    OrderPaidAdvance,
		Date:      s.today(),
	}
	if err := s.records.AddOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("storing order: %w", err)
	}

	s.logger.Info("lot reserved", "order", order.ID, "asset", asset.ID, "quantity", qty, "paid", order.TotalPaid)
	return &Reservation{Order: order, Total: total, Discount: discount}, nil
}

// EnrollRequest describes a new carrier joining the fleet.
type EnrollRequest struct {
	DriverName   string
	Capacity     int // tons
	Refrigerated bool
}

// Default telemetry of a freshly enrolled vehicle, parked in Libreville.
const (
	enrollOrigin      = "Libreville"
	enrollDestination = "En attente"
	enrollLat         = 0.416
	enrollLng         = 9.467
	coldChainTemp     = 4.0
	coldChainHumidity = 80.0
)

// EnrollVehicle registers a vehicle with a fresh beacon.
func (s *Service) EnrollVehicle(ctx context.Context, req EnrollRequest) (*FleetVehicle, error) {
	if req.DriverName == "" {
		return nil, fmt.Errorf("%w: driver name is required", ErrInvalidRequest)
	}
	if req.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidRequest)
	}

	v := FleetVehicle{
		ID:                 "R-" + s.ids.New(),
		DriverName:         req.DriverName,
		Origin:             enrollOrigin,
		Destination:        enrollDestination,
		AvailableCapacity:  req.Capacity,
		TemperatureControl: req.Refrigerated,
		DepartureTime:      s.clock.Now().Format("2006-01-02 15:04"),
		CurrentLat:         enrollLat,
		CurrentLng:         enrollLng,
		Status:             VehicleAvailable,
		FuelLevel:          100,
		EngineHealth:       100,
	}
	if req.Refrigerated {
		temp, humidity := coldChainTemp, coldChainHumidity
		v.CargoTemp = &temp
		v.CargoHumidity = &humidity
	}

	// PutVehicle replaces; never let a fresh enrollment take over a live key.
	switch _, err := s.records.Vehicle(ctx, v.ID); {
	case err == nil:
		return nil, fmt.Errorf("%w: vehicle %s already enrolled", ErrDuplicateKey, v.ID)
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("loading vehicle: %w", err)
	}

	if err := s.records.PutVehicle(ctx, v); err != nil {
		return nil, fmt.Errorf("storing vehicle: %w", err)
	}
	s.logger.Info("vehicle enrolled", "vehicle", v.ID, "driver", v.DriverName, "refrigerated", v.TemperatureControl)
	return &v, nil
}

// UpdateVehicle overwrites a vehicle record, typically with fresh telemetry.
func (s *Service) UpdateVehicle(ctx context.Context, v FleetVehicle) error {
	if v.ID == "" {
		return fmt.Errorf("%w: vehicle id is required", ErrInvalidRequest)
	}
	if err := s.records.PutVehicle(ctx, v); err != nil {
		return fmt.Errorf("storing vehicle: %w", err)
	}
	return nil
}

// RegisterAsset stores a lot, replacing any lot with the same id.
func (s *Service) RegisterAsset(ctx context.Context, a Asset) error {
	if a.ID == "" {
		return fmt.Errorf("%w: asset id is required", ErrInvalidRequest)
	}
	if err := s.records.PutAsset(ctx, a); err != nil {
		return fmt.Errorf("storing asset: %w", err)
	}
	s.logger.Info("asset registered", "asset", a.ID, "type", a.Type)
	return nil
}

// Portfolio summarizes financing and sales activity.
type Portfolio struct {
	Dossiers  int
	Committed int64 // sum of dossier amounts
	Disbursed int64 // sum of ledger gross amounts
	Fees      int64
	Net       int64
	Orders    int
	Prepaid   int64
}

// Portfolio reads the credits, ledger and orders collections and totals them.
func (s *Service) Portfolio(ctx context.Context) (*Portfolio, error) {
	credits, err := s.records.Credits(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading credits: %w", err)
	}
	ledger, err := s.records.Ledger(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	orders, err := s.records.Orders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}

	p := &Portfolio{Dossiers: len(credits), Orders: len(orders)}
	for _, d := range credits {
		p.Committed += d.Amount
	}
	for _, e := range ledger {
		p.Disbursed += e.Gross
		p.Fees += e.Fee
		p.Net += e.Net
	}
	for _, o := range orders {
		p.Prepaid += o.TotalPaid
	}
	return p, nil
}
