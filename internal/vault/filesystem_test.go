package vault

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("usb", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if _, err := os.Stat(filepath.Join(root, "snapshots")); err != nil {
			t.Errorf("snapshots directory not created: %v", err)
		}
		if v.name != "usb" {
			t.Errorf("name = %q, want %q", v.name, "usb")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("usb", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_Layout(t *testing.T) {
	v, err := NewFileSystemVault("usb", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := "sealed store"
	if err := v.PutSnapshot(context.Background(), "coop-ntoum", strings.NewReader(data), int64(len(data)), 1718000000); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(v.snapshotsDir, "coop-ntoum.snap"))
	if err != nil {
		t.Fatalf("failed to read snapshot file: %v", err)
	}
	if string(content) != data {
		t.Errorf("snapshot = %q, want %q", content, data)
	}

	version, err := os.ReadFile(filepath.Join(v.snapshotsDir, "coop-ntoum.version"))
	if err != nil {
		t.Fatalf("failed to read version file: %v", err)
	}
	if string(version) != "1718000000" {
		t.Errorf("version file = %q, want %q", version, "1718000000")
	}
}

func TestFileSystemVault_CorruptVersion(t *testing.T) {
	v, err := NewFileSystemVault("usb", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(v.snapshotsDir, "dev.version"), []byte("not-a-number"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := v.SnapshotVersion(context.Background(), "dev"); err == nil {
		t.Error("SnapshotVersion() expected error for corrupt version file")
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("valid setup", func(t *testing.T) {
		v, err := NewFileSystemVault("usb", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := v.ValidateSetup(context.Background()); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("missing root directory", func(t *testing.T) {
		v := &FileSystemVault{
			name:         "usb",
			root:         "/nonexistent/path",
			snapshotsDir: "/nonexistent/path/snapshots",
		}
		if err := v.ValidateSetup(context.Background()); err == nil {
			t.Error("ValidateSetup() expected error for missing root")
		}
	})
}

func TestFileSystemVault_AtomicWrite(t *testing.T) {
	v, err := NewFileSystemVault("usb", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := "hello world"
	if err := v.PutSnapshot(context.Background(), "dev", strings.NewReader(data), int64(len(data)), 1); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	// A failed write must not leave temp files either.
	_ = v.PutSnapshot(context.Background(), "dev", strings.NewReader(data), 99, 2)

	entries, err := os.ReadDir(v.snapshotsDir)
	if err != nil {
		t.Fatalf("failed to read snapshots dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
