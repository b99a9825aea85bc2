package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
	"agri-sentinel/internal/testutil"
)

// newTestConfig returns a config with a file store, a filesystem vault and the
// test encryptor, all under a temp dir.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewConfig("dev-test", dir)
	cfg.Vaults = []config.VaultConfig{
		{Type: "filesystem", Name: "usb", FSVaultRoot: filepath.Join(dir, "vault")},
	}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	cfg.Telemetry.IntervalMillis = 10
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, operation string) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, operation, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestNew_InitializesStore(t *testing.T) {
	cfg := newTestConfig(t)
	a := newTestApp(t, cfg, "Status")
	defer a.Close()

	status, err := a.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if status.State != agri.StateReady {
		t.Errorf("State = %v, want READY", status.State)
	}
	if status.SchemaVersion != status.LatestVersion {
		t.Errorf("SchemaVersion = %d, want latest %d", status.SchemaVersion, status.LatestVersion)
	}
	if status.Counts[agri.CollectionAssets] != 2 {
		t.Errorf("Counts[assets] = %d, want 2 seed lots", status.Counts[agri.CollectionAssets])
	}
	if status.SnapshotVersion != 0 {
		t.Errorf("SnapshotVersion = %d, want 0", status.SnapshotVersion)
	}
	if want := filepath.Join(cfg.Store.DataDir, "dev-test.db"); status.Path != want {
		t.Errorf("Path = %q, want %q", status.Path, want)
	}
}

func TestNew_UnknownStoreType(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store.Type = "postgres"

	if _, err := New(context.Background(), cfg, "Status", Options{}); err == nil {
		t.Fatal("New() expected error for unknown store type")
	}
}

func TestNew_AdvisorFallsBackToStatic(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Advisor = config.AdvisorConfig{Type: "genai", APIKeyEnv: "AGRI_TEST_UNSET_KEY"}
	t.Setenv("AGRI_TEST_UNSET_KEY", "")

	a := newTestApp(t, cfg, "Advise")
	defer a.Close()

	if got := a.advisor.Name(); got != "static" {
		t.Errorf("advisor = %q, want static", got)
	}
}

func TestSnapshot_NoVault(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Vaults = nil
	a := newTestApp(t, cfg, "Snapshot")
	defer a.Close()

	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrNoVault) {
		t.Errorf("Snapshot() error = %v, want ErrNoVault", err)
	}
	if _, err := a.Restore(context.Background(), ""); !errors.Is(err, ErrNoVault) {
		t.Errorf("Restore() error = %v, want ErrNoVault", err)
	}
}

func TestSnapshot_VersionsIncrease(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), "Snapshot")
	defer a.Close()
	ctx := context.Background()

	v1, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("first Snapshot() error = %v", err)
	}
	v2, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("second Snapshot() error = %v", err)
	}
	if v2 <= v1 {
		t.Errorf("second version %d not greater than first %d", v2, v1)
	}

	status, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.SnapshotVersion != v2 {
		t.Errorf("SnapshotVersion = %d, want %d", status.SnapshotVersion, v2)
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	a := newTestApp(t, cfg, "Reserve")
	defer a.Close()

	res, err := a.Service().Reserve(ctx, agri.ReserveRequest{AssetID: "LOT-NTOUM-01", BuyerName: "Marché Mont-Bouët", Quantity: 45})
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if _, err := a.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	// A later local write is lost by the restore.
	if _, err := a.Service().EnrollVehicle(ctx, agri.EnrollRequest{DriverName: "Jean", Capacity: 10}); err != nil {
		t.Fatalf("EnrollVehicle() error = %v", err)
	}

	if _, err := a.Restore(ctx, "any"); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	orders, err := a.Records().Orders(ctx)
	if err != nil {
		t.Fatalf("Orders() error = %v", err)
	}
	if len(orders) != 1 || orders[0].ID != res.Order.ID {
		t.Fatalf("orders after restore = %+v, want [%s]", orders, res.Order.ID)
	}
	if orders[0].TotalPaid != 14_175_000 {
		t.Errorf("TotalPaid = %d, want 14175000", orders[0].TotalPaid)
	}

	fleet, err := a.Records().Fleet(ctx)
	if err != nil {
		t.Fatalf("Fleet() error = %v", err)
	}
	if len(fleet) != 0 {
		t.Errorf("fleet after restore has %d vehicles, want 0", len(fleet))
	}
}

func TestSnapshotRestore_InjectedVault(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Vaults = nil
	ctx := context.Background()

	a := newTestApp(t, cfg, "Disburse")
	defer a.Close()
	a.vault = testutil.NewTestVault()
	a.encryptor = testutil.NewTestEncryptor()

	if err := a.Records().PutSetting(ctx, agri.Setting{Key: "langue", Value: "fr"}); err != nil {
		t.Fatalf("PutSetting() error = %v", err)
	}
	version, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if err := a.Records().PutSetting(ctx, agri.Setting{Key: "langue", Value: "en"}); err != nil {
		t.Fatalf("PutSetting() error = %v", err)
	}

	restored, err := a.Restore(ctx, "")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored != version {
		t.Errorf("Restore() version = %d, want %d", restored, version)
	}

	settings, err := a.Records().Settings(ctx)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	want := []agri.Setting{{Key: "langue", Value: "fr"}}
	if len(settings) != 1 || settings[0] != want[0] {
		t.Errorf("settings after restore = %+v, want %+v", settings, want)
	}
}

func TestRestore_NoSnapshot(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), "Restore")
	defer a.Close()

	_, err := a.Restore(context.Background(), "any")
	if !errors.Is(err, agri.ErrSnapshotNotFound) {
		t.Errorf("Restore() error = %v, want ErrSnapshotNotFound", err)
	}

	// The live store is untouched.
	if a.store.State() != agri.StateReady {
		t.Errorf("store state = %v, want READY", a.store.State())
	}
}

func TestRestore_InMemoryStore(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store.Type = "memory"
	a := newTestApp(t, cfg, "Restore")
	defer a.Close()

	if _, err := a.Restore(context.Background(), "any"); err == nil {
		t.Fatal("Restore() expected error for in-memory store")
	}
}

func TestClose_SnapshotsAfterWrite(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	a := newTestApp(t, cfg, "EnrollVehicle")
	if _, err := a.Service().EnrollVehicle(ctx, agri.EnrollRequest{DriverName: "Awa", Capacity: 8}); err != nil {
		t.Fatalf("EnrollVehicle() error = %v", err)
	}
	a.MarkDirty()
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := newTestApp(t, cfg, "Status")
	defer b.Close()
	status, err := b.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.SnapshotVersion == 0 {
		t.Error("Close() after a write did not push a snapshot")
	}
	if status.Counts[agri.CollectionLogistics] != 1 {
		t.Errorf("Counts[logistics] = %d, want 1", status.Counts[agri.CollectionLogistics])
	}
}

func TestClose_NoSnapshotWhenFailed(t *testing.T) {
	cfg := newTestConfig(t)

	a := newTestApp(t, cfg, "Disburse")
	a.MarkDirty()
	a.Fail(errors.New("boom"))
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b := newTestApp(t, cfg, "Status")
	defer b.Close()
	status, err := b.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.SnapshotVersion != 0 {
		t.Errorf("SnapshotVersion = %d, want 0 after failed operation", status.SnapshotVersion)
	}
}

func TestAdviseFleet_Fallback(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), "Advise")
	defer a.Close()
	ctx := context.Background()

	text, remote, err := a.AdviseFleet(ctx)
	if err != nil {
		t.Fatalf("AdviseFleet() error = %v", err)
	}
	if remote {
		t.Error("AdviseFleet() reported remote advice from the static advisor")
	}
	if text != "Aucun véhicule enrôlé." {
		t.Errorf("AdviseFleet() = %q, want empty-fleet fallback", text)
	}

	if _, err := a.Service().EnrollVehicle(ctx, agri.EnrollRequest{DriverName: "Awa", Capacity: 8}); err != nil {
		t.Fatalf("EnrollVehicle() error = %v", err)
	}
	text, _, err = a.AdviseFleet(ctx)
	if err != nil {
		t.Fatalf("AdviseFleet() error = %v", err)
	}
	if !strings.HasPrefix(text, "Optimisation locale") {
		t.Errorf("AdviseFleet() = %q, want local optimisation", text)
	}
}

func TestWatchFleet_PersistsLastReading(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), "Watch")
	defer a.Close()
	ctx := context.Background()

	v, err := a.Service().EnrollVehicle(ctx, agri.EnrollRequest{DriverName: "Awa", Capacity: 8, Refrigerated: true})
	if err != nil {
		t.Fatalf("EnrollVehicle() error = %v", err)
	}

	var mu sync.Mutex
	var last agri.TelemetryEvent
	count := 0
	err = a.WatchFleet(ctx, 200*time.Millisecond, func(e agri.TelemetryEvent) {
		mu.Lock()
		defer mu.Unlock()
		last = e
		count++
	})
	if err != nil {
		t.Fatalf("WatchFleet() error = %v", err)
	}
	if count == 0 {
		t.Fatal("WatchFleet() delivered no readings")
	}

	got, err := a.Records().Vehicle(ctx, v.ID)
	if err != nil {
		t.Fatalf("Vehicle() error = %v", err)
	}
	if got.CurrentLat != last.Lat || got.CurrentLng != last.Lng {
		t.Errorf("position = (%v, %v), want last reading (%v, %v)", got.CurrentLat, got.CurrentLng, last.Lat, last.Lng)
	}
	if got.CargoTemp == nil || *got.CargoTemp != *last.CargoTemp {
		t.Errorf("CargoTemp = %v, want %v", got.CargoTemp, *last.CargoTemp)
	}
	if !a.op.Dirty {
		t.Error("WatchFleet() did not mark the operation dirty")
	}
}

func TestWatchFleet_EmptyFleet(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), "Watch")
	defer a.Close()

	called := false
	if err := a.WatchFleet(context.Background(), 50*time.Millisecond, func(agri.TelemetryEvent) { called = true }); err != nil {
		t.Fatalf("WatchFleet() error = %v", err)
	}
	if called {
		t.Error("WatchFleet() delivered readings for an empty fleet")
	}
}

func TestCheckVaults(t *testing.T) {
	dir := t.TempDir()
	cfg := config.NewConfig("dev-test", dir)
	cfg.Vaults = []config.VaultConfig{
		{Type: "filesystem", Name: "usb", FSVaultRoot: filepath.Join(dir, "vault")},
		{Type: "ftp", Name: "broken"},
	}

	got := map[string]bool{}
	err := CheckVaults(context.Background(), cfg, func(name string, err error) {
		got[name] = err == nil
	})
	if err == nil {
		t.Fatal("CheckVaults() expected error for unknown vault type")
	}
	if !got["usb"] {
		t.Error("usb vault reported unusable")
	}
	if ok, seen := got["broken"]; !seen || ok {
		t.Errorf("broken vault report = (%v, seen %v), want failure", ok, seen)
	}
}

func TestRulesFromConfig(t *testing.T) {
	def := agri.DefaultRules()

	if got := rulesFromConfig(config.FinanceConfig{}); got != def {
		t.Errorf("rulesFromConfig(zero) = %+v, want defaults %+v", got, def)
	}

	got := rulesFromConfig(config.FinanceConfig{FeeRate: 0.05})
	if got.FeeRate != 0.05 || got.AdvanceDiscount != def.AdvanceDiscount {
		t.Errorf("rulesFromConfig(fee only) = %+v", got)
	}
}
