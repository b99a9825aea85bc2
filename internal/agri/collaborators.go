package agri

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrSnapshotNotFound is returned by a Vault that holds no snapshot for a device.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Vault stores store snapshots away from the device.
// All operations stream through io.Reader/io.Writer.
type Vault interface {
	// PutSnapshot stores the snapshot of a device's store. size is the number of
	// bytes that will be read from r. version is kept alongside for staleness checks.
	PutSnapshot(ctx context.Context, deviceID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the latest snapshot of a device's store to w.
	GetSnapshot(ctx context.Context, deviceID string, w io.Writer) error

	// SnapshotVersion returns the version of the latest snapshot, or 0 if none exists.
	SnapshotVersion(ctx context.Context, deviceID string) (int64, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup(ctx context.Context) error
}

// Encryptor protects snapshots at rest. Encryption needs only the public key;
// decryption needs the passphrase that unlocks the private key.
type Encryptor interface {
	// Setup generates the key pair, protecting the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key for the duration of a restore.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether the key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory only.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// Advisor is the hosted generative-AI boundary. It is opaque: a call returns
// text or fails, and callers always hold a local fallback.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (string, error)
	Name() string
}

// TelemetryEvent is one reading from a fleet vehicle's beacon.
type TelemetryEvent struct {
	VehicleID    string
	At           time.Time
	Lat          float64
	Lng          float64
	FuelLevel    float64
	EngineHealth float64
	CargoTemp    *float64
	Alerts       []string
}

// TelemetrySource produces fleet readings until ctx is done. It never closes out.
// Readings carry no persistence obligation.
type TelemetrySource interface {
	Stream(ctx context.Context, vehicles []FleetVehicle, out chan<- TelemetryEvent) error
}
