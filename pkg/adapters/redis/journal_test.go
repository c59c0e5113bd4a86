package redis_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	"github.com/loopkit/loopkit/pkg/adapters/redis"
	"github.com/loopkit/loopkit/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()

	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisJournal_Contract(t *testing.T) {
	client := newTestClient(t)
	ports.RunJournalContract(t, redis.NewJournal(client))
}

func TestRedisJournal_ContractWithPrefix(t *testing.T) {
	client := newTestClient(t)
	ports.RunJournalContract(t, redis.NewJournal(client, redis.WithPrefix("custom:")))
}

func TestRedisSnapshotStore_Contract(t *testing.T) {
	client := newTestClient(t)
	ports.RunSnapshotStoreContract(t, redis.NewSnapshotStore(client))
}
