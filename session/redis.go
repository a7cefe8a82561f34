package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cirrustream/cirrus/errors"
)

const (
	redisSetKey     = "cirrus:sessions"
	redisHashPrefix = "cirrus:sess:"
	redisQueueSufix = ":q"
)

// drainScript atomically empties a session queue and advances the event
// cursor, mirroring MemoryRegistry.Drain. Returns false when the session
// hash does not exist.
var drainScript = redis.NewScript(`
local h = KEYS[1]
local q = KEYS[2]
local start = redis.call('HGET', h, 'last_event_id')
if not start then
	return false
end
local msgs = redis.call('LRANGE', q, 0, -1)
redis.call('DEL', q)
if #msgs > 0 then
	redis.call('HINCRBY', h, 'last_event_id', #msgs)
end
redis.call('HSET', h, 'last_active', ARGV[1])
local res = {start}
for i = 1, #msgs do
	res[i + 1] = msgs[i]
end
return res
`)

// RedisRegistry implements Registry against a shared Redis instance, for
// hosts where invocations do not share process memory. Sessions live in a
// hash per id plus a list for the pending queue, tracked by a set of live
// ids.
type RedisRegistry struct {
	client *redis.Client
	now    func() time.Time
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a registry backed by the given Redis address.
func NewRedisRegistry(addr string) *RedisRegistry {
	return NewRedisRegistryFromOptions(&redis.Options{Addr: addr})
}

// NewRedisRegistryFromOptions creates a registry with full client options,
// for deployments that need auth or a non-default database.
func NewRedisRegistryFromOptions(opts *redis.Options) *RedisRegistry {
	return &RedisRegistry{
		client: redis.NewClient(opts),
		now:    time.Now,
	}
}

// Ping verifies connectivity, for startup checks.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.WrapTransient(err, "RedisRegistry", "Ping", "redis ping")
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisRegistry) Close() error {
	return r.client.Close()
}

// Create allocates a new session hash and registers its id.
func (r *RedisRegistry) Create(ctx context.Context) (Session, error) {
	id := uuid.NewString()
	now := r.now()

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, redisSetKey, id)
	pipe.HSet(ctx, hashKey(id),
		"last_event_id", 0,
		"created_at", now.UnixNano(),
		"last_active", now.UnixNano(),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return Session{}, errors.WrapTransient(err, "RedisRegistry", "Create", "session create")
	}

	return Session{ID: id, CreatedAt: now, LastActive: now}, nil
}

// Find loads the session hash for the given id.
func (r *RedisRegistry) Find(ctx context.Context, id string) (Session, error) {
	fields, err := r.client.HGetAll(ctx, hashKey(id)).Result()
	if err != nil {
		return Session{}, errors.WrapTransient(err, "RedisRegistry", "Find", "session load")
	}
	if len(fields) == 0 {
		return Session{}, errors.ErrSessionNotFound
	}

	pending, err := r.client.LLen(ctx, queueKey(id)).Result()
	if err != nil {
		return Session{}, errors.WrapTransient(err, "RedisRegistry", "Find", "queue length")
	}

	return sessionFromHash(id, fields, int(pending)), nil
}

// Append pushes a payload onto the session queue.
func (r *RedisRegistry) Append(ctx context.Context, id string, payload []byte) error {
	exists, err := r.client.Exists(ctx, hashKey(id)).Result()
	if err != nil {
		return errors.WrapTransient(err, "RedisRegistry", "Append", "session check")
	}
	if exists == 0 {
		return errors.ErrSessionNotFound
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, queueKey(id), payload)
	pipe.HSet(ctx, hashKey(id), "last_active", r.now().UnixNano())
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.WrapTransient(err, "RedisRegistry", "Append", "queue push")
	}
	return nil
}

// Drain runs the atomic drain script.
func (r *RedisRegistry) Drain(ctx context.Context, id string) ([][]byte, int64, error) {
	res, err := drainScript.Run(ctx, r.client,
		[]string{hashKey(id), queueKey(id)},
		r.now().UnixNano(),
	).Result()
	if err != nil {
		if err == redis.Nil {
			// script returned false: session hash missing
			return nil, 0, errors.ErrSessionNotFound
		}
		return nil, 0, errors.WrapTransient(err, "RedisRegistry", "Drain", "drain script")
	}

	parts, ok := res.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, 0, errors.WrapTransient(errors.ErrInvalidData, "RedisRegistry", "Drain", "script result decode")
	}

	start, err := strconv.ParseInt(asString(parts[0]), 10, 64)
	if err != nil {
		return nil, 0, errors.WrapTransient(err, "RedisRegistry", "Drain", "cursor decode")
	}

	payloads := make([][]byte, 0, len(parts)-1)
	for _, p := range parts[1:] {
		payloads = append(payloads, []byte(asString(p)))
	}
	return payloads, start, nil
}

// IDs returns the live session ids. Redis sets are unordered; creation order
// is not preserved by this backend.
func (r *RedisRegistry) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, redisSetKey).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "RedisRegistry", "IDs", "set members")
	}
	return ids, nil
}

// Count returns the live session count.
func (r *RedisRegistry) Count(ctx context.Context) (int, error) {
	n, err := r.client.SCard(ctx, redisSetKey).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "RedisRegistry", "Count", "set card")
	}
	return int(n), nil
}

// ExpireIdle removes sessions idle longer than maxIdle.
func (r *RedisRegistry) ExpireIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}

	ids, err := r.IDs(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-maxIdle).UnixNano()
	removed := 0
	for _, id := range ids {
		raw, err := r.client.HGet(ctx, hashKey(id), "last_active").Result()
		if err == redis.Nil {
			// hash already gone; drop the dangling set member
			r.client.SRem(ctx, redisSetKey, id)
			continue
		}
		if err != nil {
			return removed, errors.WrapTransient(err, "RedisRegistry", "ExpireIdle", "last_active load")
		}

		lastActive, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || lastActive >= cutoff {
			continue
		}

		pipe := r.client.TxPipeline()
		pipe.Del(ctx, hashKey(id), queueKey(id))
		pipe.SRem(ctx, redisSetKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, errors.WrapTransient(err, "RedisRegistry", "ExpireIdle", "session delete")
		}
		removed++
	}
	return removed, nil
}

func hashKey(id string) string  { return redisHashPrefix + id }
func queueKey(id string) string { return redisHashPrefix + id + redisQueueSufix }

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func sessionFromHash(id string, fields map[string]string, pending int) Session {
	s := Session{ID: id, Pending: pending}
	if v, err := strconv.ParseInt(fields["last_event_id"], 10, 64); err == nil {
		s.LastEventID = v
	}
	if v, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		s.CreatedAt = time.Unix(0, v)
	}
	if v, err := strconv.ParseInt(fields["last_active"], 10, 64); err == nil {
		s.LastActive = time.Unix(0, v)
	}
	return s
}
