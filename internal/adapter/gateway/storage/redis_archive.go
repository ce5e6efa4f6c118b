package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YoshitsuguKoike/deequery/internal/domain/repository"
	"github.com/YoshitsuguKoike/deequery/internal/domain/session"
)

// RedisClient is the subset of *redis.Client used by RedisArchive
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

var _ RedisClient = (*redis.Client)(nil)

// RedisArchive keeps session snapshots in Redis with an optional TTL.
// Keys: <prefix>:session:<id> holds the snapshot, <prefix>:sessions is a
// sorted set of IDs scored by creation time.
type RedisArchive struct {
	client RedisClient
	prefix string
	ttl    time.Duration // 0 keeps snapshots forever
}

// RedisConfig holds Redis archive configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisArchive connects to Redis and verifies the connection
func NewRedisArchive(ctx context.Context, cfg RedisConfig) (*RedisArchive, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return NewRedisArchiveWithClient(rdb, cfg.Prefix, cfg.TTL), nil
}

// NewRedisArchiveWithClient creates an archive over an existing client
func NewRedisArchiveWithClient(client RedisClient, prefix string, ttl time.Duration) *RedisArchive {
	if prefix == "" {
		prefix = "deequery"
	}
	return &RedisArchive{client: client, prefix: prefix, ttl: ttl}
}

var _ repository.SessionRepository = (*RedisArchive)(nil)

// Save stores the snapshot and indexes it
func (a *RedisArchive) Save(ctx context.Context, s *session.Session) error {
	data, err := session.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := a.client.Set(ctx, a.sessionKey(s.ID()), data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	member := redis.Z{Score: float64(s.CreatedAt().UnixMilli()), Member: s.ID().String()}
	if err := a.client.ZAdd(ctx, a.indexKey(), member).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// FindByID restores one session
func (a *RedisArchive) FindByID(ctx context.Context, id session.ID) (*session.Session, error) {
	data, err := a.client.Get(ctx, a.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session.Unmarshal(data)
}

// List walks the index newest first. Index entries whose snapshot has
// expired are dropped from the index.
func (a *RedisArchive) List(ctx context.Context, filter repository.SessionFilter) ([]repository.SessionRecord, error) {
	ids, err := a.client.ZRevRange(ctx, a.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	var (
		records []repository.SessionRecord
		expired []interface{}
	)
	for _, id := range ids {
		key := a.sessionKey(session.ID(id))
		data, err := a.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load session %s: %w", id, err)
		}
		rec, err := decodeRecord(key, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(expired) > 0 {
		if err := a.client.ZRem(ctx, a.indexKey(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}
	return selectRecords(records, filter), nil
}

func (a *RedisArchive) sessionKey(id session.ID) string {
	return a.prefix + ":session:" + id.String()
}

func (a *RedisArchive) indexKey() string {
	return a.prefix + ":sessions"
}

// Close closes the underlying client when it owns a connection pool
func (a *RedisArchive) Close() error {
	if c, ok := a.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
