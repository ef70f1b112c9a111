package main

import (
	"os"
	"path/filepath"
	"testing"

	"chronyx/pkg/storage"
)

// storePreview runs against the local store only; no DB needed.

func TestStorePreviewPersistsThumbnail(t *testing.T) {
	base := t.TempDir()
	store := storage.NewLocalStore(base, "/documents")

	tmp, err := os.CreateTemp("", "scan-preview-*.png")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	if _, err := tmp.Write([]byte("png-bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = tmp.Close()

	objectPath := "7/1724900000000-abc.pdf"
	storedPath, url := storePreview(store, tmp.Name(), objectPath)
	want := "7/1724900000000-abc-preview.png"
	if storedPath != want {
		t.Fatalf("expected stored path %q got %q", want, storedPath)
	}
	if url != "/documents/"+want {
		t.Fatalf("expected url under /documents, got %q", url)
	}
	data, err := os.ReadFile(filepath.Join(base, want))
	if err != nil {
		t.Fatalf("stored preview missing: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("stored preview corrupted: %q", data)
	}
	if _, err := os.Stat(tmp.Name()); !os.IsNotExist(err) {
		t.Fatalf("temp preview should be removed after storing")
	}
}

func TestStorePreviewNoThumbnail(t *testing.T) {
	store := storage.NewLocalStore(t.TempDir(), "/documents")
	storedPath, url := storePreview(store, "", "7/doc.pdf")
	if storedPath != "" || url != "" {
		t.Fatalf("expected empty result without a preview, got %q / %q", storedPath, url)
	}
}
