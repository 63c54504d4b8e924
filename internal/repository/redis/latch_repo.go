package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

const latchKeyPrefix = "guard:latch:"

// promoteTTL is used when the fallback cannot say how long an entry has left.
const promoteTTL = 30 * time.Minute

// ttlReporter is implemented by fallbacks that track per-entry expiry.
type ttlReporter interface {
	TTL(ctx context.Context, mountID string) time.Duration
}

// latchRepo stores one JSON latch per client mount with a TTL. When a Redis
// call fails and a fallback is set, the fallback serves the request instead.
// The fallback only ever holds latches written during an outage; they are
// moved back into Redis on the next read once Redis answers again.
type latchRepo struct {
	client   *goredis.Client
	fallback domain.LatchRepository
}

func NewLatchRepository(client *goredis.Client, fallback domain.LatchRepository) domain.LatchRepository {
	return &latchRepo{client: client, fallback: fallback}
}

func latchKey(mountID string) string {
	return latchKeyPrefix + mountID
}

// decodeLatch turns a GET reply into a latch. Missing and unreadable values
// both read as no latch.
func decodeLatch(mountID string, cmd *goredis.StringCmd) (*domain.LatchState, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var st domain.LatchState
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Log.Warn("discarding unreadable latch", "mount_id", mountID, "error", err)
		return nil, nil
	}
	return &st, nil
}

func (r *latchRepo) Get(ctx context.Context, mountID string) (*domain.LatchState, error) {
	cur, err := decodeLatch(mountID, r.client.Get(ctx, latchKey(mountID)))
	if err != nil {
		if r.fallback != nil {
			logger.Log.Warn("redis latch read failed, using fallback", "mount_id", mountID, "error", err)
			return r.fallback.Get(ctx, mountID)
		}
		return nil, fmt.Errorf("redis latch get: %w", err)
	}
	if r.fallback == nil {
		return cur, nil
	}
	return r.reconcile(ctx, mountID, cur)
}

// reconcile moves a latch written to the fallback during an outage back into
// Redis. The newer of the two wins.
func (r *latchRepo) reconcile(ctx context.Context, mountID string, cur *domain.LatchState) (*domain.LatchState, error) {
	fb, err := r.fallback.Get(ctx, mountID)
	if err != nil || fb == nil {
		return cur, nil
	}
	if cur != nil && !fb.UpdatedAt.After(cur.UpdatedAt) {
		_ = r.fallback.Clear(ctx, mountID)
		return cur, nil
	}

	ttl := promoteTTL
	if tr, ok := r.fallback.(ttlReporter); ok {
		if left := tr.TTL(ctx, mountID); left > 0 {
			ttl = left
		}
	}

	swapped, err := r.swap(ctx, mountID, cur, fb, ttl)
	if err != nil {
		logger.Log.Warn("latch promotion failed, keeping fallback", "mount_id", mountID, "error", err)
		return fb, nil
	}
	_ = r.fallback.Clear(ctx, mountID)
	if swapped {
		logger.Log.Info("latch promoted from fallback", "mount_id", mountID)
		return fb, nil
	}

	// Another writer updated Redis first; its latch is the current one.
	latest, err := decodeLatch(mountID, r.client.Get(ctx, latchKey(mountID)))
	if err != nil {
		return nil, fmt.Errorf("redis latch get: %w", err)
	}
	return latest, nil
}

func (r *latchRepo) CompareAndSwap(ctx context.Context, mountID string, old, next *domain.LatchState, ttl time.Duration) (bool, error) {
	swapped, err := r.swap(ctx, mountID, old, next, ttl)
	if err != nil {
		if r.fallback != nil {
			logger.Log.Warn("redis latch write failed, using fallback", "mount_id", mountID, "error", err)
			return r.fallback.CompareAndSwap(ctx, mountID, old, next, ttl)
		}
		return false, fmt.Errorf("redis latch set: %w", err)
	}
	return swapped, nil
}

// swap writes next under WATCH so a concurrent writer makes the transaction
// fail instead of being overwritten.
func (r *latchRepo) swap(ctx context.Context, mountID string, old, next *domain.LatchState, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("redis latch encode: %w", err)
	}

	key := latchKey(mountID)
	swapped := false
	err = r.client.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := decodeLatch(mountID, tx.Get(ctx, key))
		if err != nil {
			return err
		}
		if !domain.SameLatch(cur, old) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, ttl)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (r *latchRepo) Clear(ctx context.Context, mountID string) error {
	err := r.client.Del(ctx, latchKey(mountID)).Err()
	if r.fallback != nil {
		_ = r.fallback.Clear(ctx, mountID)
	}
	if err != nil && r.fallback == nil {
		return fmt.Errorf("redis latch del: %w", err)
	}
	return nil
}
