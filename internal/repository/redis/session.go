package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avolhov/recovery-server/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

// SessionRepository keeps login sessions in redis. Each session lives under
// its own key with a TTL matching the session expiry, and a per-user set
// indexes session ids so all of a user's sessions can be removed at once.
type SessionRepository struct {
	client redis.UniversalClient
}

func NewSessionRepository(client redis.UniversalClient) *SessionRepository {
	return &SessionRepository{
		client: client,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionsKey(userID uuid.UUID) string {
	return "user_sessions:" + userID.String()
}

func (r *SessionRepository) Create(ctx context.Context, session model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := r.client.Set(ctx, sessionKey(session.ID), session.UserID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	indexKey := userSessionsKey(session.UserID)
	if err := r.client.SAdd(ctx, indexKey, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	// Keep the index alive at least as long as its newest session.
	if err := r.client.Expire(ctx, indexKey, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set index expiry: %w", err)
	}

	return nil
}

func (r *SessionRepository) DeleteAllByUser(ctx context.Context, userID uuid.UUID) error {
	indexKey := userSessionsKey(userID)

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, indexKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	return nil
}

func (r *SessionRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	ids, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	// Session keys expire on their own; count only the ones still present.
	var count int64
	for _, id := range ids {
		n, err := r.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to check session: %w", err)
		}
		count += n
	}

	return count, nil
}
