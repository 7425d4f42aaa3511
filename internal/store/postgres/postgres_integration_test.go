package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestRecordRoundTripAgainstDatabase(t *testing.T) {
	databaseURL := os.Getenv("EVDEALER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set EVDEALER_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	key := fmt.Sprintf("deposit:it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_ = s.Delete(ctx, key)
	})

	if err := s.Put(ctx, key, []byte(`{"status":"pending"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, key, []byte(`{"status":"confirmed"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	value, ok, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected %s to exist", key)
	}
	if string(value) != `{"status":"confirmed"}` {
		t.Fatalf("expected overwritten value, got %s", value)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected key to be gone, ok=%v err=%v", ok, err)
	}
}
