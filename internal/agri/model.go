package agri

// TrancheStatus is the disbursement state of a tranche.
// It only moves forward: PENDING -> LOCKED -> PAID.
type TrancheStatus string

const (
	TranchePending TrancheStatus = "PENDING"
	TrancheLocked  TrancheStatus = "LOCKED"
	TranchePaid    TrancheStatus = "PAID"
)

// Valid reports whether s is a known tranche status.
func (s TrancheStatus) Valid() bool {
	return s == TranchePending || s == TrancheLocked || s == TranchePaid
}

// rank orders statuses along the only allowed direction of travel.
func (s TrancheStatus) rank() int {
	switch s {
	case TrancheLocked:
		return 1
	case TranchePaid:
		return 2
	default:
		return 0
	}
}

// Category is the financing category of a credit dossier.
type Category string

const (
	CategoryAgriculture Category = "AGRICULTURE"
	CategoryLivestock   Category = "ELEVAGE"
)

// Tranche is one disbursable installment of a credit dossier, gated by a release condition.
type Tranche struct {
	ID        string        `json:"id" toml:"id"`
	Label     string        `json:"label" toml:"label"`
	Amount    int64         `json:"amount" toml:"amount"`
	Condition string        `json:"condition" toml:"condition"`
	Status    TrancheStatus `json:"status" toml:"status"`
}

// CreditDossier is a financing case tracked through staged disbursement.
type CreditDossier struct {
	ID              string    `json:"id" toml:"id"`
	Farmer          string    `json:"farmer" toml:"farmer"`
	Amount          int64     `json:"amount" toml:"amount"`
	Category        Category  `json:"type" toml:"category"`
	Progress        int       `json:"progress" toml:"progress"`
	RiskScore       int       `json:"riskScore" toml:"risk_score"`
	CollateralValue string    `json:"collateralValue" toml:"collateral_value"`
	Monitoring      string    `json:"monitoring" toml:"monitoring"`
	Tranches        []Tranche `json:"tranches" toml:"tranches"`
}

func (d CreditDossier) RecordKey() string { return d.ID }

// Tranche returns the tranche with the given id, or nil.
func (d *CreditDossier) Tranche(id string) *Tranche {
	for i := range d.Tranches {
		if d.Tranches[i].ID == id {
			return &d.Tranches[i]
		}
	}
	return nil
}

// LedgerEntry is the immutable record of one completed disbursement split
// into a platform fee and the net amount paid out.
type LedgerEntry struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Gross       int64  `json:"gross"`
	Fee         int64  `json:"fee"`
	Net         int64  `json:"net"`
	Type        string `json:"type"`
}

func (e LedgerEntry) RecordKey() string { return e.ID }

type AssetType string

const (
	AssetManioc   AssetType = "MANIOC"
	AssetBanane   AssetType = "BANANE"
	AssetBovin    AssetType = "BOVIN"
	AssetVolaille AssetType = "VOLAILLE"
)

type AssetStatus string

const (
	AssetHealthy AssetStatus = "SAIN"
	AssetAlert   AssetStatus = "ALERTE"
	AssetStable  AssetStatus = "STABLE"
)

// Asset is a harvest or livestock batch. Lots with a maturity are offered to buyers.
type Asset struct {
	ID             string      `json:"id"`
	Type           AssetType   `json:"type"`
	Status         AssetStatus `json:"status"`
	Area           string      `json:"area,omitempty"`
	Count          *int        `json:"count,omitempty"`
	Location       string      `json:"location"`
	Owner          string      `json:"owner,omitempty"`
	Maturity       *int        `json:"maturity,omitempty"`       // percent
	EstimatedYield *float64    `json:"estimatedYield,omitempty"` // tons
	PricePerTon    *int64      `json:"pricePerTon,omitempty"`    // XAF
}

func (a Asset) RecordKey() string { return a.ID }

// Reservable reports whether buyers can place orders against the lot.
func (a Asset) Reservable() bool {
	return a.Maturity != nil
}

type VehicleStatus string

const (
	VehicleReturningEmpty VehicleStatus = "RETOUR_VIDE"
	VehicleInTransit      VehicleStatus = "EN_TRANSIT"
	VehicleAvailable      VehicleStatus = "DISPONIBLE"
)

// FleetVehicle is an enrolled logistics unit with its last known telemetry.
type FleetVehicle struct {
	ID                 string        `json:"id"`
	DriverName         string        `json:"driverName"`
	Origin             string        `json:"origin"`
	Destination        string        `json:"destination"`
	AvailableCapacity  int           `json:"availableCapacity"` // tons
	TemperatureControl bool          `json:"temperatureControl"`
	DepartureTime      string        `json:"departureTime"`
	CurrentLat         float64       `json:"currentLat"`
	CurrentLng         float64       `json:"currentLng"`
	Status             VehicleStatus `json:"status"`
	FuelLevel          float64       `json:"fuelLevel"`
	EngineHealth       float64       `json:"engineHealth"`
	CargoTemp          *float64      `json:"cargoTemp,omitempty"`
	CargoHumidity      *float64      `json:"cargoHumidity,omitempty"`
}

func (v FleetVehicle) RecordKey() string { return v.ID }

type OrderStatus string

const (
	OrderReserved    OrderStatus = "RESERVED"
	OrderPaidAdvance OrderStatus = "PAID_ADVANCE"
	OrderDelivered   OrderStatus = "DELIVERED"
)

// Order is a buyer's commitment against an asset lot.
type Order struct {
	ID        string      `json:"id"`
	BuyerName string      `json:"buyerName"`
	AssetID   string      `json:"assetId"`
	CropType  AssetType   `json:"cropType"`
	Quantity  float64     `json:"quantity"` // tons
	TotalPaid int64       `json:"totalPaid"`
	Status    OrderStatus `json:"status"`
	Date      string      `json:"date"`
}

func (o Order) RecordKey() string { return o.ID }

// Setting is a free-form key/value preference.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s Setting) RecordKey() string { return s.Key }

// Vehicle alert codes raised from telemetry readings.
const (
	AlertLowFuel   = "LOW_FUEL"
	AlertEngine    = "ENGINE_CHECK"
	AlertColdChain = "COLD_CHAIN"
)

const (
	lowFuelLevel     = 20.0 // percent
	engineCheckLevel = 50.0 // percent
	coldChainMaxTemp = 8.0  // °C
)

// Alerts returns the alert codes for the vehicle's current readings, in a fixed order.
func (v FleetVehicle) Alerts() []string {
	var alerts []string
	if v.FuelLevel < lowFuelLevel {
		alerts = append(alerts, AlertLowFuel)
	}
	if v.EngineHealth < engineCheckLevel {
		alerts = append(alerts, AlertEngine)
	}
	if v.TemperatureControl && v.CargoTemp != nil && *v.CargoTemp > coldChainMaxTemp {
		alerts = append(alerts, AlertColdChain)
	}
	return alerts
}
