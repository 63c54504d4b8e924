package usecase

import (
	"context"
	"time"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/guard"
	"pharmacy-guard-backend/pkg/apperror"
	"pharmacy-guard-backend/pkg/logger"
)

type NavigationConfig struct {
	LatchTTL       time.Duration
	SuppressWindow time.Duration
}

type navigationUsecase struct {
	latches domain.LatchRepository
	cfg     NavigationConfig
	now     func() time.Time
}

func NewNavigationUsecase(latches domain.LatchRepository, cfg NavigationConfig) domain.NavigationUsecase {
	if cfg.LatchTTL <= 0 {
		cfg.LatchTTL = 30 * time.Minute
	}
	if cfg.SuppressWindow <= 0 {
		cfg.SuppressWindow = guard.DefaultSuppressWindow
	}
	return &navigationUsecase{latches: latches, cfg: cfg, now: time.Now}
}

// maxResolveAttempts bounds how often Resolve re-evaluates after losing a
// latch write to a concurrent report for the same mount.
const maxResolveAttempts = 3

// Resolve runs one settle cycle for the client mount in req. The mount's
// latch is loaded before and swapped in after the evaluation, so a repeated
// or overlapping report of the same state never produces a second redirect.
func (u *navigationUsecase) Resolve(ctx context.Context, req *domain.NavigationRequest, user *domain.User) (*domain.Decision, error) {
	log := logger.Log.With("mount_id", req.MountID)
	in := guard.Inputs{
		User:          user,
		Segments:      req.Segments,
		IsLoading:     req.IsLoading,
		NavigationKey: req.NavigationKey,
	}

	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		prev, err := u.latches.Get(ctx, req.MountID)
		if err != nil {
			return nil, apperror.Unavailable("Navigation state store unavailable", err)
		}

		g := guard.Restore(prev, guard.WithLogger(log))
		d := g.Evaluate(in)

		next := g.State()
		if !domain.SameLatch(prev, &next) {
			next.UpdatedAt = u.now()
			swapped, err := u.latches.CompareAndSwap(ctx, req.MountID, prev, &next, u.cfg.LatchTTL)
			if err != nil {
				return nil, apperror.Unavailable("Navigation state store unavailable", err)
			}
			if !swapped {
				log.Debug("latch changed concurrently, re-evaluating", "attempt", attempt)
				continue
			}
		}

		if d.Redirected() {
			d.SuppressFor = u.cfg.SuppressWindow
			d.SuppressMS = u.cfg.SuppressWindow.Milliseconds()
		}
		return &d, nil
	}

	return nil, apperror.Conflict("Navigation state changed concurrently, retry")
}

func (u *navigationUsecase) Reset(ctx context.Context, mountID string) error {
	if err := u.latches.Clear(ctx, mountID); err != nil {
		return apperror.Unavailable("Navigation state store unavailable", err)
	}
	return nil
}

func (u *navigationUsecase) Routes() []domain.Screen {
	return guard.Routes()
}
