package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionTTL = 12 * time.Hour
	DefaultPendingTTL = 10 * time.Minute
)

type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(client *redis.Client, sessionTTL, pendingTTL time.Duration) *RedisStore {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &RedisStore{client: client, sessionTTL: sessionTTL, pendingTTL: pendingTTL}
}

func (r *RedisStore) Tokens(ctx context.Context, sessionID string) (*TokenSet, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var tokens TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("unmarshal tokens failed: %w", err)
	}
	return &tokens, nil
}

// SaveTokens keeps the tokens until they expire, capped at the session TTL.
func (r *RedisStore) SaveTokens(ctx context.Context, sessionID string, tokens *TokenSet) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens failed: %w", err)
	}
	ttl := r.sessionTTL
	if !tokens.Expiry.IsZero() {
		if untilExpiry := time.Until(tokens.Expiry); untilExpiry > 0 && untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisStore) SavePending(ctx context.Context, login *PendingLogin) error {
	data, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("marshal pending login failed: %w", err)
	}
	if err := r.client.Set(ctx, loginKey(login.State), data, r.pendingTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) TakePending(ctx context.Context, state string) (*PendingLogin, error) {
	data, err := r.client.GetDel(ctx, loginKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPendingLogin
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}

	var login PendingLogin
	if err := json.Unmarshal(data, &login); err != nil {
		return nil, fmt.Errorf("unmarshal pending login failed: %w", err)
	}
	return &login, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func loginKey(state string) string {
	return fmt.Sprintf("login:%s", state)
}
