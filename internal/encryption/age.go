package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"agri-sentinel/internal/agri"
	"agri-sentinel/internal/config"
)

// ErrWrongPassphrase is returned by Unlock when the passphrase does not open
// the restore key.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// ErrKeysExist is returned by Setup when a key pair is already present.
// Replacing it would make every earlier snapshot unreadable.
var ErrKeysExist = errors.New("encryption keys already exist")

// AgeEncryptor seals store snapshots with filippo.io/age.
//
// The cooperative's device holds two files: the recipient line in the clear,
// and the X25519 identity wrapped under a scrypt passphrase. Sealing reads only
// the recipient, so the nightly snapshot runs without anyone at the keyboard.
// Restoring a snapshot on a replacement device is the one step that asks the
// field officer for the passphrase.
type AgeEncryptor struct {
	recipientPath string
	identityPath  string
}

var _ agri.Encryptor = (*AgeEncryptor)(nil)

func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		recipientPath: cfg.PublicKeyPath,
		identityPath:  cfg.PrivateKeyPath,
	}
}

// Setup creates the snapshot key pair. It refuses to run twice.
func (e *AgeEncryptor) Setup(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	if e.IsConfigured() {
		return fmt.Errorf("%w at %s", ErrKeysExist, e.identityPath)
	}

	for _, p := range []string{e.recipientPath, e.identityPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory for %s: %w", p, err)
		}
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating snapshot key: %w", err)
	}

	if err := wrapIdentity(e.identityPath, identity, passphrase); err != nil {
		return err
	}
	// The recipient is written last: IsConfigured checks both files, and a
	// half-finished Setup must not leave a device sealing to a key it cannot open.
	line := identity.Recipient().String() + "\n"
	if err := os.WriteFile(e.recipientPath, []byte(line), 0644); err != nil {
		return fmt.Errorf("writing snapshot recipient: %w", err)
	}
	return nil
}

func wrapIdentity(path string, identity *age.X25519Identity, passphrase string) error {
	lock, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("deriving passphrase key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating restore key file: %w", err)
	}
	defer f.Close()

	w, err := age.Encrypt(f, lock)
	if err != nil {
		return fmt.Errorf("wrapping restore key: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("wrapping restore key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("wrapping restore key: %w", err)
	}
	return f.Sync()
}

// Encrypt seals a snapshot stream to the device's recipient.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	raw, err := os.ReadFile(e.recipientPath)
	if err != nil {
		return fmt.Errorf("reading snapshot recipient: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("parsing snapshot recipient: %w", err)
	}
	if len(recipients) == 0 {
		return fmt.Errorf("%s holds no recipient", e.recipientPath)
	}

	sealed, err := age.Encrypt(w, recipients...)
	if err != nil {
		return fmt.Errorf("sealing snapshot: %w", err)
	}
	if _, err := io.Copy(sealed, r); err != nil {
		return fmt.Errorf("sealing snapshot: %w", err)
	}
	return sealed.Close()
}

// Unlock opens the restore key with the passphrase. The identity lives only
// in the returned value and is never written back to disk.
func (e *AgeEncryptor) Unlock(passphrase string) (agri.DecryptionContext, error) {
	wrapped, err := os.Open(e.identityPath)
	if err != nil {
		return nil, fmt.Errorf("opening restore key: %w", err)
	}
	defer wrapped.Close()

	lock, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}

	plain, err := age.Decrypt(wrapped, lock)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("unwrapping restore key: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing restore key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("%s holds no identity", e.identityPath)
	}
	return restoreKey{identities: identities}, nil
}

// IsConfigured reports whether both key files are present.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.recipientPath, e.identityPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

type restoreKey struct {
	identities []age.Identity
}

// Decrypt opens a sealed snapshot stream.
func (k restoreKey) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, k.identities...)
	if err != nil {
		return fmt.Errorf("opening sealed snapshot: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("reading sealed snapshot: %w", err)
	}
	return nil
}
