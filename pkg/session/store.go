package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "sessions:"

// Store is the durable-ish K→V contract for sessions. Load returns
// (nil, nil) for absent sessions; transport errors are returned as-is
// and the caller decides how soft to fail.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, id string, s *Session) error
	Touch(ctx context.Context, id string) error
}

// RedisStore keeps sessions under sessions:<id> as JSON documents with
// a sliding TTL: every Load refreshes the expiry, every Save resets it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	key := keyPrefix + id
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "session load")
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		// A corrupt document is as good as no document.
		log.Warn().Err(err).Str("session_id", id).Msg("corrupt session document, treating as absent")
		return nil, nil
	}

	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("session TTL refresh failed")
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, sess *Session) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "session encode")
	}
	if err := s.client.Set(ctx, keyPrefix+id, val, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "session save")
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string) error {
	if err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "session touch")
	}
	return nil
}
