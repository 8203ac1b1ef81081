package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestStateBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewStateBackend(newTestClient(t))

	if _, ok, err := backend.Load(ctx, "activeTest"); err != nil || ok {
		t.Fatalf("missing key must report absence without error, got ok=%v err=%v", ok, err)
	}

	payload := []byte(`{"testCode":"ENG6-1000"}`)
	if err := backend.Save(ctx, "activeTest", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, ok, err := backend.Load(ctx, "activeTest")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if string(raw) != string(payload) {
		t.Fatalf("expected %s, got %s", payload, raw)
	}

	if err := backend.Delete(ctx, "activeTest"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := backend.Load(ctx, "activeTest"); ok {
		t.Fatalf("expected key gone after delete")
	}
}

func TestWatchDeliversRemoteChangesOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newTestClient(t)
	writer := NewStateBackend(client)
	reader := NewStateBackend(client)

	remoteKeys, cancelRemote := reader.Watch(ctx)
	defer cancelRemote()
	ownKeys, cancelOwn := writer.Watch(ctx)
	defer cancelOwn()

	// give the subscriptions a moment to establish
	time.Sleep(50 * time.Millisecond)

	if err := writer.Save(ctx, "results", []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case key := <-remoteKeys:
		if key != "results" {
			t.Fatalf("expected results change, got %q", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected remote change notification")
	}

	select {
	case key := <-ownKeys:
		t.Fatalf("writer must ignore its own publication, got %q", key)
	case <-time.After(100 * time.Millisecond):
	}
}
