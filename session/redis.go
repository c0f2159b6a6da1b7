package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dkrieger7/cookieauth/internal"
)

const createRetries = 3

const (
	touchStatusGone    int64 = 0
	touchStatusTouched int64 = 1
	touchStatusCorrupt int64 = -1
)

const revokeScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
end
return existed
`

var revokeLua = redis.NewScript(revokeScript)

// touchScript extends the key TTL only while the session is still live. The
// PTTL check and the PEXPIRE run in one script, so a touch can never revive
// a session that expired concurrently. The absolute cap is read out of the
// stored payload.
const touchScript = `
local function read_be64(s, i)
  local b1 = string.byte(s, i)
  local b2 = string.byte(s, i + 1)
  local b3 = string.byte(s, i + 2)
  local b4 = string.byte(s, i + 3)
  local b5 = string.byte(s, i + 4)
  local b6 = string.byte(s, i + 5)
  local b7 = string.byte(s, i + 6)
  local b8 = string.byte(s, i + 7)
  if not b8 then
    return nil
  end
  return ((((((((b1 * 256) + b2) * 256 + b3) * 256 + b4) * 256 + b5) * 256 + b6) * 256 + b7) * 256 + b8)
end

local pttl = redis.call("PTTL", KEYS[1])
if pttl <= 0 then
  return {0}
end

local data = redis.call("GET", KEYS[1])
if not data then
  return {0}
end

local version = string.byte(data, 1)
if not version or version < 1 or version > 2 then
  return {-1}
end
local subject_len = string.byte(data, 2)
if not subject_len or subject_len == 0 then
  return {-1}
end
local subject = string.sub(data, 3, 2 + subject_len)

local idx = 3 + subject_len
if version >= 2 then
  idx = idx + 8
end
local expires_at = read_be64(data, idx)
if not expires_at then
  return {-1}
end

local now = tonumber(ARGV[1])
local window_ms = tonumber(ARGV[2])
local subject_prefix = ARGV[3]
local session_id = ARGV[4]

local remaining_ms = (expires_at - now) * 1000
if remaining_ms <= 0 then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", subject_prefix .. subject, session_id)
  return {0}
end

local next_ms = window_ms
if next_ms > remaining_ms then
  next_ms = remaining_ms
end
if next_ms < 1 then
  next_ms = 1
end
redis.call("PEXPIRE", KEYS[1], next_ms)

return {1, next_ms, data}
`

var touchLua = redis.NewScript(touchScript)

// RedisStore is the Redis-backed Store. Expiry is enforced twice: the key
// TTL carries the effective (sliding) expiry and the stored payload carries
// the absolute cap, so a record that outlives its cap is treated as absent
// even before Redis evicts it.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisStore creates a Store backed by the given Redis client. prefix
// namespaces all keys. The client's lifecycle stays with the caller.
func NewRedisStore(client redis.UniversalClient, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "cs"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		cfg:    cfg.normalize(),
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *RedisStore) subjectKey(subjectID string) string {
	return s.prefix + ":sub:" + subjectID
}

func (s *RedisStore) subjectKeyPrefix() string {
	return s.prefix + ":sub:"
}

func (s *RedisStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.OpTimeout)
}

// Create persists a new session under a fresh random id.
//
//	Performance: 2 Redis commands (SET NX + SADD), no retry in the common case.
func (s *RedisStore) Create(ctx context.Context, subjectID string) (*Session, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := time.Now()
	ttl := s.cfg.initialTTL()

	sess := &Session{
		SubjectID: subjectID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.cfg.MaxLifetime).Unix(),
	}
	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	// SET NX guards the (negligible) chance of an id colliding with a live
	// session. A collision simply draws a new id.
	for attempt := 0; attempt < createRetries; attempt++ {
		sid, err := internal.NewSessionID()
		if err != nil {
			return nil, err
		}
		id := sid.String()

		ok, err := s.redis.SetNX(ctx, s.key(id), data, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			continue
		}

		if err := s.redis.SAdd(ctx, s.subjectKey(subjectID), id).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		out := *sess
		out.ID = id
		out.ExpiresAt = now.Add(ttl).Unix()
		return &out, nil
	}

	return nil, errors.New("session id collision retries exhausted")
}

// Get retrieves a live session. Expired records are deleted on sight and
// reported as ErrNotFound.
//
//	Performance: 1 pipelined round-trip (GET + PTTL).
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	key := s.key(id)

	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, key)
	pttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	sess.ID = id

	now := time.Now()
	if sess.Expired(now) {
		if err := s.revoke(ctx, id, sess.SubjectID); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	// Clamp the reported expiry to the effective TTL.
	if pttl, pttlErr := pttlCmd.Result(); pttlErr == nil && pttl > 0 {
		effective := now.Add(pttl).Unix()
		if effective < sess.ExpiresAt {
			sess.ExpiresAt = effective
		}
	}

	return sess, nil
}

// Touch extends the effective expiry to now+Window, capped by the absolute
// lifetime.
//
//	Performance: 1 Lua EVALSHA (atomic TTL check + extend).
func (s *RedisStore) Touch(ctx context.Context, id string) (*Session, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	now := time.Now()
	result, err := touchLua.Run(
		ctx,
		s.redis,
		[]string{s.key(id)},
		now.Unix(),
		s.cfg.Window.Milliseconds(),
		s.subjectKeyPrefix(),
		id,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid touch script response", ErrUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid touch script status", ErrUnavailable)
	}

	switch code {
	case touchStatusGone:
		return nil, ErrNotFound
	case touchStatusCorrupt:
		return nil, ErrCorrupt
	case touchStatusTouched:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: missing touch script payload", ErrUnavailable)
		}
		nextMillis, ok := parts[1].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: invalid touch script ttl", ErrUnavailable)
		}

		var blob []byte
		switch v := parts[2].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return nil, fmt.Errorf("%w: invalid touch script payload", ErrUnavailable)
		}

		sess, decErr := Decode(blob)
		if decErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, decErr)
		}
		sess.ID = id
		effective := now.Add(time.Duration(nextMillis) * time.Millisecond).Unix()
		if effective < sess.ExpiresAt {
			sess.ExpiresAt = effective
		}
		return sess, nil
	default:
		return nil, fmt.Errorf("%w: unknown touch script status", ErrUnavailable)
	}
}

// Revoke removes a session and its subject index entry. Unknown ids are a
// no-op.
//
//	Performance: 1 GET + 1 Lua EVALSHA.
func (s *RedisStore) Revoke(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Corrupt payload: the subject index entry cannot be located, but
		// the record itself must still die.
		if delErr := s.redis.Del(ctx, s.key(id)).Err(); delErr != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, delErr)
		}
		return nil
	}

	return s.revoke(ctx, id, sess.SubjectID)
}

func (s *RedisStore) revoke(ctx context.Context, id, subjectID string) error {
	keys := []string{s.key(id), s.subjectKey(subjectID)}
	if err := revokeLua.Run(ctx, s.redis, keys, id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAllForSubject removes every tracked session of a subject.
//
// Not fully atomic: a session created between the index read and the delete
// pipeline survives this call and expires naturally. The race window is a
// single round-trip; callers needing stronger guarantees can invoke it twice.
func (s *RedisStore) RevokeAllForSubject(ctx context.Context, subjectID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	subjectKey := s.subjectKey(subjectID)

	ids, err := s.redis.SMembers(ctx, subjectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.key(id))
		}
		pipe.Del(ctx, subjectKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

// ActiveSessionCount returns the number of live sessions for a subject.
func (s *RedisStore) ActiveSessionCount(ctx context.Context, subjectID string) (int, error) {
	ids, err := s.ActiveSessionIDs(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ActiveSessionIDs returns live session ids for a subject.
//
// TTL eviction removes the record but leaves its index entry behind, so the
// index is filtered against the live keys (pipeline EXISTS) and the ghosts
// are pruned on the way out. Without the pruning a subject whose sessions
// all expired idle would stay pinned at the session cap forever.
//
//	Performance: SMembers + 1 pipelined EXISTS round-trip (+ SREM when ghosts exist).
func (s *RedisStore) ActiveSessionIDs(ctx context.Context, subjectID string) ([]string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	subjectKey := s.subjectKey(subjectID)

	ids, err := s.redis.SMembers(ctx, subjectKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	live := make([]string, 0, len(ids))
	var ghosts []interface{}
	for i, id := range ids {
		exists, err := existsCmds[i].Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if exists > 0 {
			live = append(live, id)
		} else {
			ghosts = append(ghosts, id)
		}
	}

	if len(ghosts) > 0 {
		if err := s.redis.SRem(ctx, subjectKey, ghosts...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return live, nil
}

// Ping is a point-in-time Redis availability check.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close is a no-op: the Redis client is injected and owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}
