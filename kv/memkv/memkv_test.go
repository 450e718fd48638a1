package memkv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	recall "github.com/becomeliminal/recall-go"
	"github.com/becomeliminal/recall-go/kv/memkv"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()

	if err := store.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want %q", got, "v1")
	}

	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "k1"); !errors.Is(err, recall.ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := memkv.New()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, recall.ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestDeleteMissingKeyIsNoError(t *testing.T) {
	store := memkv.New()

	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("Delete of absent key = %v, want nil", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()

	if err := store.Set(ctx, "short", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, recall.ErrNotFound) {
		t.Errorf("expired key Get = %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, "forever"); err != nil {
		t.Errorf("no-TTL key expired: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d after expiry, want 1", store.Len())
	}
}

func TestOverwrite(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()

	store.Set(ctx, "k", []byte("old"), 0)
	store.Set(ctx, "k", []byte("new"), 0)

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
}

func TestValueIsolation(t *testing.T) {
	ctx := context.Background()
	store := memkv.New()

	value := []byte("original")
	store.Set(ctx, "k", value, 0)
	value[0] = 'X'

	got, _ := store.Get(ctx, "k")
	if string(got) != "original" {
		t.Error("store aliased the caller's slice on Set")
	}

	got[0] = 'Y'
	again, _ := store.Get(ctx, "k")
	if string(again) != "original" {
		t.Error("store aliased the returned slice on Get")
	}
}
