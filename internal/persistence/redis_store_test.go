package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/evok/internal/testutil"
	"github.com/petrijr/evok/pkg/api"
)

const prefix = "evok:test:"

type RedisStoreTestSuite struct {
	suite.Suite
	endpoint string
	store    *RedisHistoryStore
	client   *redis.Client
	ctx      context.Context
}

func TestRedisTestSuite(t *testing.T) {
	testsuite := new(RedisStoreTestSuite)
	testsuite.endpoint = testutil.GetRedisAddress(t)
	initTestRedisStore(t, testsuite)
	suite.Run(t, testsuite)
}

func (r *RedisStoreTestSuite) SetupTest() {
	ctx := context.Background()

	// Clean up all keys with this prefix.
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := r.client.Del(ctx, iter.Val()).Err()
		r.NoErrorf(err, "redis DEL %q failed: %v", iter.Val(), err)
	}
	r.NoError(iter.Err(), "redis SCAN failed")
}

// initTestRedisStore connects to Redis using the address given in ts and
// fills ts with a RedisHistoryStore using a test-specific prefix.
func initTestRedisStore(t *testing.T, ts *RedisStoreTestSuite) {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: ts.endpoint,
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	ts.client = client

	ctx := context.Background()
	ts.ctx = ctx
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	ts.store = NewRedisHistoryStore(client, prefix, 0)
}

func (r *RedisStoreTestSuite) TestSharedBehaviour() {
	exerciseHistoryStore(r.T(), r.store)
}

func (r *RedisStoreTestSuite) TestConcurrentAppends() {
	exerciseConcurrentAppends(r.T(), r.store)
}

func (r *RedisStoreTestSuite) TestKeyLayout() {
	err := r.store.Append(r.ctx, api.HistoryRecord{RunID: "layout", Type: api.RecordWorkflowStarted})
	r.Require().NoError(err)

	n, err := r.client.LLen(r.ctx, prefix+"history:layout").Result()
	r.Require().NoError(err)
	r.Equal(int64(1), n)
}

func (r *RedisStoreTestSuite) TestTTLIsApplied() {
	store := NewRedisHistoryStore(r.client, prefix, time.Minute)

	err := store.Append(r.ctx, api.HistoryRecord{RunID: "ttl", Type: api.RecordWorkflowStarted})
	r.Require().NoError(err)

	ttl, err := r.client.TTL(r.ctx, prefix+"history:ttl").Result()
	r.Require().NoError(err)
	r.Greater(ttl, time.Duration(0))
	r.LessOrEqual(ttl, time.Minute)
}

func (r *RedisStoreTestSuite) TestDefaultPrefix() {
	store := NewRedisHistoryStore(r.client, "", 0)
	r.Equal("evok:history:x", store.keyRun("x"))
}
