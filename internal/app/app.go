package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"agri-sentinel/internal/advisor"
	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
	"agri-sentinel/internal/database"
	"agri-sentinel/internal/database/migrations"
	"agri-sentinel/internal/encryption"
	"agri-sentinel/internal/telemetry"
	"agri-sentinel/internal/vault"
)

// ErrNoVault is returned by snapshot operations when no vault is configured.
var ErrNoVault = errors.New("no vaults configured")

// Options tune how an App is opened.
type Options struct {
	Verbose bool      // log DEBUG records
	Echo    io.Writer // mirror log records here, typically os.Stderr
}

// App is the application layer between the CLI and agri.Service.
// It constructs all dependencies from config, owns the store handle, and
// pushes a snapshot to the vault on Close after a successful write.
type App struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	service   *agri.Service
	vault     agri.Vault // nil when no vault is configured
	encryptor agri.Encryptor
	advisor   agri.Advisor
	telemetry agri.TelemetrySource
	logger    agri.Logger
	clock     agri.Clock
	op        *Operation
	logFile   *os.File
}

// New creates a fully wired App from the given config and initializes the store.
// operation identifies the CLI command being run (e.g. "Disburse", "Reserve").
// The caller must call Close when done.
func New(ctx context.Context, cfg *config.Config, operation string, opts Options) (*App, error) {
	clock := agri.RealClock{}
	opID := clock.Now().UTC().Format("20060102T150405Z")

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	sl, logFile, err := newLogger(cfg.LogDir, opID, level, opts.Echo)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl.With("op", operation)}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		op:      NewOperation(operation),
		logFile: logFile,
	}

	if len(cfg.Vaults) > 0 {
		a.vault, err = vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			a.closeLog()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	a.advisor, err = advisor.NewAdvisorFromConfig(ctx, cfg.Advisor, os.Getenv)
	if err != nil {
		logger.Warn("advisor unavailable, using local advice", "error", err)
		a.advisor = advisor.NewStatic("")
	}

	interval := time.Duration(cfg.Telemetry.IntervalMillis) * time.Millisecond
	a.telemetry = telemetry.NewSimulator(interval, uint64(clock.Now().UnixNano()), clock)

	store, err := database.NewStoreFromConfig(cfg.Store, cfg.DeviceID)
	if err != nil {
		a.closeLog()
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := a.open(ctx, store); err != nil {
		a.closeLog()
		return nil, err
	}

	logger.Debug("app ready", "store", store.Path(), "advisor", a.advisor.Name())
	return a, nil
}

// CheckVaults builds every configured vault and validates its setup, calling
// report once per vault. It fails if any vault is unusable.
func CheckVaults(ctx context.Context, cfg *config.Config, report func(name string, err error)) error {
	failed := 0
	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err == nil {
			err = v.ValidateSetup(ctx)
		}
		if err != nil {
			failed++
		}
		report(vc.Name, err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d vaults not usable", failed, len(cfg.Vaults))
	}
	return nil
}

// open initializes store and rebuilds the service on top of it.
func (a *App) open(ctx context.Context, store *database.SQLiteStore) error {
	if err := store.Initialize(ctx); err != nil {
		a.logger.Error("store initialization failed", "path", store.Path(), "error", err)
		return fmt.Errorf("initializing store: %w", err)
	}
	a.store = store
	a.service = agri.NewService(agri.NewRecords(store), a.logger, a.clock, agri.UUIDGenerator{}, rulesFromConfig(a.cfg.Finance))
	return nil
}

func rulesFromConfig(cfg config.FinanceConfig) agri.Rules {
	rules := agri.DefaultRules()
	if cfg.FeeRate > 0 {
		rules.FeeRate = cfg.FeeRate
	}
	if cfg.AdvanceDiscount > 0 {
		rules.AdvanceDiscount = cfg.AdvanceDiscount
	}
	return rules
}

// Service returns the domain service. Commands that write through it must
// call MarkDirty.
func (a *App) Service() *agri.Service {
	return a.service
}

// Records returns typed read access to the collections.
func (a *App) Records() *agri.Records {
	return a.service.Records()
}

// Encryptor returns the snapshot encryptor.
func (a *App) Encryptor() agri.Encryptor {
	return a.encryptor
}

// MarkDirty records that the current operation wrote to the store.
func (a *App) MarkDirty() {
	a.op.MarkDirty()
}

// Fail records that the current operation failed, suppressing the snapshot on Close.
func (a *App) Fail(err error) {
	a.op.Fail()
	a.logger.Error("operation failed", "error", err)
}

// StoreStatus describes the local store and its off-device copy.
type StoreStatus struct {
	Path            string
	State           agri.StoreState
	SchemaVersion   uint
	LatestVersion   uint
	Counts          map[agri.Collection]int
	SnapshotVersion int64 // 0 if no vault or no snapshot
}

// Status reports the store's schema version, record counts and last snapshot.
func (a *App) Status(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{
		Path:   a.store.Path(),
		State:  a.store.State(),
		Counts: make(map[agri.Collection]int, len(agri.Collections)),
	}

	var err error
	if status.SchemaVersion, err = a.store.SchemaVersion(ctx); err != nil {
		return nil, err
	}
	if status.LatestVersion, err = migrations.LatestVersion(); err != nil {
		return nil, err
	}
	for _, c := range agri.Collections {
		docs, err := a.store.GetAll(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", c, err)
		}
		status.Counts[c] = len(docs)
	}

	if a.vault != nil {
		if status.SnapshotVersion, err = a.vault.SnapshotVersion(ctx, a.cfg.DeviceID); err != nil {
			return nil, fmt.Errorf("reading snapshot version: %w", err)
		}
	}
	return status, nil
}

// Snapshot copies the store, encrypts the copy and uploads it to the vault.
// It returns the snapshot version, which increases with every snapshot.
func (a *App) Snapshot(ctx context.Context) (int64, error) {
	if a.vault == nil {
		return 0, ErrNoVault
	}
	if !a.encryptor.IsConfigured() {
		return 0, fmt.Errorf("encryption keys not found: run 'agri keys init' first")
	}

	tmpDir, err := os.MkdirTemp("", "agri-snapshot-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plainPath := filepath.Join(tmpDir, "store.db")
	if err := a.store.BackupTo(ctx, plainPath); err != nil {
		return 0, err
	}

	sealedPath := filepath.Join(tmpDir, "store.db.age")
	if err := a.sealFile(plainPath, sealedPath); err != nil {
		return 0, err
	}

	remote, err := a.vault.SnapshotVersion(ctx, a.cfg.DeviceID)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot version: %w", err)
	}
	version := max(a.clock.Now().Unix(), remote+1)

	if err := a.upload(ctx, sealedPath, version); err != nil {
		return 0, err
	}

	a.logger.Info("snapshot uploaded", "device", a.cfg.DeviceID, "version", version)
	return version, nil
}

func (a *App) sealFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening store copy: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating sealed snapshot: %w", err)
	}
	if err := a.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	return out.Close()
}

func (a *App) upload(ctx context.Context, path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := a.vault.PutSnapshot(ctx, a.cfg.DeviceID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	return nil
}

// Restore replaces the local store with the device's latest snapshot.
// The snapshot is downloaded, decrypted and migrated in a temp file next to
// the store; the live store is only closed and swapped once that succeeds.
func (a *App) Restore(ctx context.Context, passphrase string) (int64, error) {
	if a.vault == nil {
		return 0, ErrNoVault
	}
	dest := a.store.Path()
	if dest == ":memory:" {
		return 0, fmt.Errorf("cannot restore into an in-memory store")
	}

	version, err := a.vault.SnapshotVersion(ctx, a.cfg.DeviceID)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("%w for device: %s", agri.ErrSnapshotNotFound, a.cfg.DeviceID)
	}

	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking private key: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".restore-*.db")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.vault.GetSnapshot(gctx, a.cfg.DeviceID, pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := dc.Decrypt(pr, tmp)
		pr.CloseWithError(err)
		return err
	})
	if err := g.Wait(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("fetching snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("writing snapshot: %w", err)
	}

	// Bring the snapshot to the current schema before it replaces anything.
	check := database.NewSQLiteStore(tmpPath)
	if err := check.Initialize(ctx); err != nil {
		return 0, fmt.Errorf("snapshot is not a usable store: %w", err)
	}
	if err := check.Close(); err != nil {
		return 0, fmt.Errorf("closing snapshot: %w", err)
	}

	if err := a.store.Close(); err != nil {
		return 0, fmt.Errorf("closing store: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("replacing store: %w", err)
	}
	success = true

	if err := a.open(ctx, database.NewSQLiteStore(dest)); err != nil {
		return 0, err
	}

	a.logger.Info("store restored", "device", a.cfg.DeviceID, "version", version)
	return version, nil
}

// AdviseFleet asks the advisor for fleet recommendations. The second return
// is false when the text is the local fallback.
func (a *App) AdviseFleet(ctx context.Context) (string, bool, error) {
	fleet, err := a.Records().Fleet(ctx)
	if err != nil {
		return "", false, err
	}
	prompt, err := advisor.FleetPrompt(fleet)
	if err != nil {
		return "", false, err
	}

	text, err := advisor.WithFallback(ctx, a.advisor, advisor.Timeout(a.cfg.Advisor), prompt, advisor.FleetFallback(fleet))
	if err != nil {
		a.logger.Warn("using local fleet advice", "advisor", a.advisor.Name(), "error", err)
		return text, false, nil
	}
	return text, true, nil
}

// WatchFleet streams telemetry for every enrolled vehicle for d (or until ctx
// is done), calling fn for each reading. The last reading of each vehicle is
// written back to the fleet collection.
func (a *App) WatchFleet(ctx context.Context, d time.Duration, fn func(agri.TelemetryEvent)) error {
	fleet, err := a.Records().Fleet(ctx)
	if err != nil {
		return err
	}
	if len(fleet) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	events := make(chan agri.TelemetryEvent)
	latest := make(map[string]agri.TelemetryEvent, len(fleet))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.telemetry.Stream(gctx, fleet, events)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-events:
				latest[e.VehicleID] = e
				fn(e)
			}
		}
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("watching fleet: %w", err)
	}

	// ctx has expired; persist with a fresh one.
	persistCtx := context.WithoutCancel(ctx)
	for _, v := range fleet {
		e, ok := latest[v.ID]
		if !ok {
			continue
		}
		v.CurrentLat, v.CurrentLng = e.Lat, e.Lng
		v.FuelLevel, v.EngineHealth = e.FuelLevel, e.EngineHealth
		if e.CargoTemp != nil {
			v.CargoTemp = e.CargoTemp
		}
		if err := a.service.UpdateVehicle(persistCtx, v); err != nil {
			return fmt.Errorf("saving telemetry for %s: %w", v.ID, err)
		}
		a.MarkDirty()
	}
	return nil
}

// Close snapshots the store if the operation wrote to it, then closes the
// store and the log file. A snapshot failure is logged and returned, but the
// store is closed regardless.
func (a *App) Close() error {
	var firstErr error

	if a.op.NeedsSnapshot() && a.vault != nil && a.encryptor.IsConfigured() {
		if _, err := a.Snapshot(context.Background()); err != nil {
			a.logger.Error("snapshot after write failed", "error", err)
			firstErr = fmt.Errorf("snapshotting store: %w", err)
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}

	a.closeLog()
	return firstErr
}

func (a *App) closeLog() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}
