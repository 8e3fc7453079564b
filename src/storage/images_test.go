package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskImagesPutImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewDiskImages(dir, "http://localhost:8080/uploads/")
	if err != nil {
		t.Fatalf("NewDiskImages: %v", err)
	}

	url, err := store.PutImage(context.Background(), "ck1.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if url != "http://localhost:8080/uploads/ck1.png" {
		t.Fatalf("url = %q", url)
	}
	got, err := os.ReadFile(filepath.Join(dir, "ck1.png"))
	if err != nil || !bytes.Equal(got, []byte("png-bytes")) {
		t.Fatalf("stored = %q, %v", got, err)
	}
}

func TestDiskImagesRejectsPathNames(t *testing.T) {
	store, err := NewDiskImages(t.TempDir(), "http://localhost/uploads")
	if err != nil {
		t.Fatalf("NewDiskImages: %v", err)
	}
	for _, name := range []string{"", "../escape.png", "a/b.png", ".hidden"} {
		if _, err := store.PutImage(context.Background(), name, []byte("x")); err == nil {
			t.Fatalf("PutImage(%q) succeeded, want error", name)
		}
	}
}
