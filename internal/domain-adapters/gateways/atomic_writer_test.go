package gateways

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicFileWriterCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.self")

	if err := NewAtomicFileWriter().Write(path, []byte("payload"), false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(got, []byte("payload")) {
		t.Errorf("output = %q, want %q", got, "payload")
	}
}

func TestAtomicFileWriterBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.self")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewAtomicFileWriter().Write(path, []byte("replaced"), true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("replaced")) {
		t.Errorf("destination = %q, want %q", got, "replaced")
	}

	backup, err := os.ReadFile(path + BackupSuffix)
	if err != nil {
		t.Fatalf("no backup written: %v", err)
	}
	if !bytes.Equal(backup, []byte("original")) {
		t.Errorf("backup = %q, want %q", backup, "original")
	}
}

func TestAtomicFileWriterNoBackupWithoutFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.self")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewAtomicFileWriter().Write(path, []byte("replaced"), false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(path + BackupSuffix); !os.IsNotExist(err) {
		t.Error("backup written without the backup flag")
	}
}

func TestAtomicFileWriterLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.self")

	if err := NewAtomicFileWriter().Write(path, []byte("payload"), false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v, want only out.self", names)
	}
}
