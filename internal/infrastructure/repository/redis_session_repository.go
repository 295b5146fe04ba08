package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shopify-embed-auth/internal/domain"
	"shopify-embed-auth/internal/ports"
)

const (
	sessionKeyPrefix = "shopify_session:"
	userKeyPrefix    = "shopify_user_session:"
)

// RedisSessionRepository implements UserSessionRepository on Redis.
// Sessions are stored as JSON under a prefixed id key; the user index is
// a second key written in the same MULTI/EXEC as the record, so the two
// can never disagree. Online sessions inherit their TTL from the session
// expiry and vanish on their own.
type RedisSessionRepository struct {
	client *redis.Client
	crypto ports.EncryptionService
}

// NewRedisSessionRepository creates a new Redis session repository.
// crypto encrypts access tokens at rest; nil stores them as-is.
func NewRedisSessionRepository(client *redis.Client, crypto ports.EncryptionService) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		crypto: crypto,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func userKey(userID int64) string {
	return userKeyPrefix + strconv.FormatInt(userID, 10)
}

// Store saves or replaces a session together with its user index entry
func (r *RedisSessionRepository) Store(ctx context.Context, session *domain.Session) error {
	record := session.Clone()
	record.UpdatedAt = time.Now().UTC()
	if r.crypto != nil && record.AccessToken != "" {
		encrypted, err := r.crypto.Encrypt(record.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt access token: %w", err)
		}
		record.AccessToken = encrypted
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var ttl time.Duration
	if record.ExpiresAt != nil {
		ttl = time.Until(*record.ExpiresAt)
		if ttl <= 0 {
			// Dying writes still land so retrieval stays consistent with
			// the store call that just succeeded
			ttl = time.Second
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(record.ID), payload, ttl)
		if record.IsOnline && record.UserID() != 0 {
			pipe.Set(ctx, userKey(record.UserID()), record.ID, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Retrieve returns the stored session, or domain.ErrSessionNotFound
func (r *RedisSessionRepository) Retrieve(ctx context.Context, id string) (*domain.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}
	return r.decode(payload)
}

// RetrieveByUserID follows the user index to the user's online session
func (r *RedisSessionRepository) RetrieveByUserID(ctx context.Context, userID int64) (*domain.Session, error) {
	id, err := r.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user session id: %w", err)
	}
	return r.Retrieve(ctx, id)
}

// Delete removes the session and its user index entry
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	session, err := r.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		if session.IsOnline && session.UserID() != 0 {
			pipe.Del(ctx, userKey(session.UserID()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) decode(payload []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if r.crypto != nil && session.AccessToken != "" {
		token, err := r.crypto.Decrypt(session.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
		session.AccessToken = token
	}
	return &session, nil
}
