package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrDuplicate       = errors.New("operation already processed")
	ErrLockNotAcquired = errors.New("appointment lock not acquired")
)

// Store tracks processed operation keys and serializes concurrent refund
// attempts per appointment, both backed by Redis.
type Store struct {
	client  *redis.Client
	keyTTL  time.Duration
	lockTTL time.Duration
}

func NewStore(client *redis.Client, keyTTL, lockTTL time.Duration) *Store {
	return &Store{
		client:  client,
		keyTTL:  keyTTL,
		lockTTL: lockTTL,
	}
}

// Claim records a dedupe key. Returns ErrDuplicate when the key was already
// claimed, meaning the same logical operation was processed before.
func (s *Store) Claim(ctx context.Context, key string) error {
	ok, err := s.client.SetNX(ctx, "dedupe:"+key, time.Now().UTC().Format(time.RFC3339), s.keyTTL).Result()
	if err != nil {
		return fmt.Errorf("claim dedupe key: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// Release frees a claimed key so a retry can proceed after a downstream
// failure.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, "dedupe:"+key).Err(); err != nil {
		return fmt.Errorf("release dedupe key: %w", err)
	}
	return nil
}

// WithAppointmentLock runs fn while holding a per-appointment lock. The lock
// value is a random token so only the holder releases it.
func (s *Store) WithAppointmentLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:appointment:%s", appointmentID)
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire appointment lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = s.release(ctx, key, token)
	}()

	return fn(ctx)
}

func (s *Store) release(ctx context.Context, key, token string) error {
	current, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if current != token {
		// Lock expired and was re-acquired by someone else; leave it alone.
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
