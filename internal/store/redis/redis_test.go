package redis

import (
	"context"
	"os"
	"testing"

	"github.com/rs/xid"

	"github.com/sakif/snippet-picker/internal/store"
	"github.com/sakif/snippet-picker/internal/store/storetest"
)

// These tests need a running Redis. Point REDIS_ADDR at one to run them:
//
//	REDIS_ADDR=localhost:6379 go test ./internal/store/redis/
func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis tests")
	}

	// A fresh hash per test keeps runs isolated on a shared server.
	s, err := New(context.Background(), addr, "snippet-picker-test-"+xid.New().String())
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() {
		s.Clear(context.Background())
		s.Close()
	})
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}
