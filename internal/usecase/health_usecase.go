package usecase

import (
	"context"
	"time"

	"pharmacy-guard-backend/pkg/logger"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type HealthUsecase interface {
	// Check reports every dependency's status and whether all of them are up.
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func NewHealthUsecase(checks map[string]HealthCheck) HealthUsecase {
	return &healthUsecase{checks: checks, timeout: 2 * time.Second}
}

func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	status := map[string]string{"status": "ok"}
	healthy := true

	for name, check := range u.checks {
		cctx, cancel := context.WithTimeout(ctx, u.timeout)
		err := check(cctx)
		cancel()

		if err != nil {
			logger.Log.Warn("health check failed", "dependency", name, "error", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		status["status"] = "degraded"
	}
	return status, healthy
}
