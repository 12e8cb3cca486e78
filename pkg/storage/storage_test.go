package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// smallest valid PNG header plus IHDR chunk, enough for sniffing
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestDetectImage(t *testing.T) {
	img, err := DetectImage(pngBytes)
	if err != nil {
		t.Fatalf("DetectImage: %v", err)
	}
	if img.ContentType != "image/png" || img.Extension != ".png" {
		t.Fatalf("unexpected detection %+v", img)
	}

	if _, err := DetectImage([]byte("plain text, not an image")); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if _, err := DetectImage(nil); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage for empty data, got %v", err)
	}
}

func TestEvidenceKey(t *testing.T) {
	id := uuid.New()
	key := EvidenceKey(id, "return", ".jpg")
	prefix := "assignments/" + id.String() + "/return/"
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, ".jpg") {
		t.Fatalf("unexpected key %q", key)
	}

	deviceKey := DeviceImageKey(id, ".png")
	if !strings.HasPrefix(deviceKey, "devices/"+id.String()+"/") || !strings.HasSuffix(deviceKey, ".png") {
		t.Fatalf("unexpected device key %q", deviceKey)
	}
}

func TestLocalStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/media/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	ctx := context.Background()

	url, err := store.Put(ctx, "assignments/a/approval/x.png", "image/png", pngBytes)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "/media/assignments/a/approval/x.png" {
		t.Fatalf("unexpected url %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "assignments", "a", "approval", "x.png"))
	if err != nil || len(data) != len(pngBytes) {
		t.Fatalf("expected stored file, err=%v", err)
	}

	if err := store.Delete(ctx, "assignments/a/approval/x.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "assignments/a/approval/x.png"); err != nil {
		t.Fatalf("Delete of missing file should succeed: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	for _, key := range []string{"../escape.png", "/abs.png", ""} {
		if _, err := store.Put(context.Background(), key, "image/png", pngBytes); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}
