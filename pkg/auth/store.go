package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ErrTokenMiss indicates no usable token is stored under the name.
var ErrTokenMiss = errors.New("token not stored")

// KeyPrefix prefixes every token key in Redis.
const KeyPrefix = "aiod:token:"

// expiryDelta is subtracted from a token's expiry so that it is never sent
// in its last seconds of validity.
const expiryDelta = 10 * time.Second

// storedToken is the Redis representation of a token.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	StoredAt     time.Time `json:"stored_at"`
}

// TokenStore persists OAuth2 tokens in Redis. Entries expire together with
// the token they hold.
type TokenStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTokenStore creates a token store.
func NewTokenStore(redisClient *redis.Client) *TokenStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &TokenStore{
		redis:  redisClient,
		logger: log.With().Str("component", "token-store").Logger(),
	}
}

func key(name string) string {
	return KeyPrefix + name
}

// Get returns the stored token. Returns ErrTokenMiss if absent or expired.
func (s *TokenStore) Get(ctx context.Context, name string) (*oauth2.Token, error) {
	data, err := s.redis.Get(ctx, key(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			TokenLookups.WithLabelValues("miss").Inc()
			return nil, ErrTokenMiss
		}
		TokenStoreErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		TokenStoreErrors.WithLabelValues("get").Inc()
		_ = s.Invalidate(ctx, name)
		return nil, ErrTokenMiss
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
		Expiry:       st.Expiry,
	}
	if !tok.Valid() {
		_ = s.Invalidate(ctx, name)
		TokenLookups.WithLabelValues("miss").Inc()
		return nil, ErrTokenMiss
	}

	TokenLookups.WithLabelValues("hit").Inc()
	return tok, nil
}

// Set stores tok under name. A token without expiry is stored without TTL;
// an already expired token is not stored.
func (s *TokenStore) Set(ctx context.Context, name string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrNoToken
	}

	var ttl time.Duration
	if !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry) - expiryDelta
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(storedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		StoredAt:     time.Now(),
	})
	if err != nil {
		TokenStoreErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal token: %w", err)
	}

	if err := s.redis.Set(ctx, key(name), data, ttl).Err(); err != nil {
		TokenStoreErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate removes the token stored under name.
func (s *TokenStore) Invalidate(ctx context.Context, name string) error {
	if err := s.redis.Del(ctx, key(name)).Err(); err != nil {
		TokenStoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	s.logger.Debug().Str("name", name).Msg("Token invalidated")
	return nil
}

// Cached returns a token source that serves tokens from store and falls back
// to src, storing what src returns. Store errors are logged and bypassed.
func Cached(store *TokenStore, name string, src oauth2.TokenSource) oauth2.TokenSource {
	return &cachedSource{store: store, name: name, src: src}
}

type cachedSource struct {
	store *TokenStore
	name  string
	src   oauth2.TokenSource
}

// Token implements oauth2.TokenSource.
func (c *cachedSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	tok, err := c.store.Get(ctx, c.name)
	if err == nil {
		return tok, nil
	}
	if !errors.Is(err, ErrTokenMiss) {
		c.store.logger.Warn().Err(err).Str("name", c.name).Msg("Token store unavailable")
	}

	tok, err = c.src.Token()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, c.name, tok); err != nil {
		c.store.logger.Warn().Err(err).Str("name", c.name).Msg("Failed to store token")
	}
	return tok, nil
}
