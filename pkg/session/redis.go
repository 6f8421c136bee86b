package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// key name prefix
const keyPrefixSession = "s"

// RedisConfig represents a configuration for the redis connection
type RedisConfig struct {
	Addr     string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// NewRedisClient opens a client for config. Addresses starting with a slash
// are treated as unix sockets.
func NewRedisClient(config RedisConfig) *redis.Client {
	addrType := "tcp"
	if strings.HasPrefix(config.Addr, "/") {
		addrType = "unix"
	}
	return redis.NewClient(&redis.Options{
		Network:  addrType,
		Addr:     config.Addr,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})
}

// RedisStore keeps each session as a JSON blob under s:<id>. Redis expires the
// key ttl after the last write.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefixSession, id)
}

// Get loads the session with the given ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	value, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(value, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	sess.ID = id
	return &sess, nil
}

// Save writes the session and resets its TTL.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	value, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, sessionKey(sess.ID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session key.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
