package persistence

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/evok/pkg/api"
)

// RedisHistoryStore is a HistoryStore backed by Redis lists.
// It uses a simple key structure:
//
//	<prefix>history:<run id>  => LIST of gob-encoded records, append order
//
// Keys optionally expire ttl after the last append.
type RedisHistoryStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ HistoryStore = (*RedisHistoryStore)(nil)

// NewRedisHistoryStore creates a RedisHistoryStore.
// prefix is optional but recommended (e.g. "evok:"). A ttl <= 0 keeps
// records forever.
func NewRedisHistoryStore(client *redis.Client, prefix string, ttl time.Duration) *RedisHistoryStore {
	if prefix == "" {
		prefix = "evok:"
	}
	return &RedisHistoryStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisHistoryStore) keyRun(runID string) string {
	return s.prefix + "history:" + runID
}

func (s *RedisHistoryStore) Append(ctx context.Context, rec api.HistoryRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	key := s.keyRun(rec.RunID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisHistoryStore) List(ctx context.Context, runID string) ([]api.HistoryRecord, error) {
	raw, err := s.client.LRange(ctx, s.keyRun(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]api.HistoryRecord, 0, len(raw))
	for _, item := range raw {
		rec, err := decodeRecord([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeRecord(rec api.HistoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (api.HistoryRecord, error) {
	var rec api.HistoryRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec)
	return rec, err
}
