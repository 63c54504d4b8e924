package domain

import (
	"context"
	"time"
)

// Top-level route segments of the mobile app.
const (
	SegmentLogin    = "login"
	SegmentRegister = "register"

	GroupTabs     = "(tabs)"
	GroupAdmin    = "(admin)"
	GroupPharmacy = "(pharmacy)"
	GroupDelivery = "(delivery)"
)

const LoginRoute = "/login"

// Screen is one entry of the static route table.
type Screen struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Role      Role   `json:"role,omitempty"`
	Dashboard string `json:"dashboard,omitempty"`
}

type Action string

const (
	ActionNone     Action = "none"
	ActionRedirect Action = "redirect"
)

// Decision is the outcome of one settle cycle.
type Decision struct {
	Action      Action        `json:"action"`
	Target      string        `json:"target,omitempty"`
	Reason      string        `json:"reason"`
	Render      bool          `json:"render"`
	SuppressFor time.Duration `json:"-"`
	SuppressMS  int64         `json:"suppress_ms,omitempty"`
}

func (d Decision) Redirected() bool {
	return d.Action == ActionRedirect
}

type LatchStatus string

const (
	LatchIdle       LatchStatus = "idle"
	LatchRedirected LatchStatus = "redirected"
)

// LatchState is the persisted one-shot latch of a single client mount.
type LatchState struct {
	Status      LatchStatus `json:"status"`
	Fingerprint string      `json:"fingerprint"`
	Target      string      `json:"target,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SameLatch reports whether a and b hold the same latch. nil means no latch.
func SameLatch(a, b *LatchState) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Status == b.Status && a.Fingerprint == b.Fingerprint
}

type LatchRepository interface {
	// Get returns nil when the mount has no latch.
	Get(ctx context.Context, mountID string) (*LatchState, error)
	// CompareAndSwap stores next only while the stored latch is still the
	// SameLatch as old. It reports false when another writer got there first.
	CompareAndSwap(ctx context.Context, mountID string, old, next *LatchState, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, mountID string) error
}

// NavigationRequest is what a client reports after its navigation state changed.
type NavigationRequest struct {
	MountID       string   `json:"mount_id" binding:"required,uuid"`
	Segments      []string `json:"segments" binding:"dive,route_segment"`
	NavigationKey string   `json:"navigation_key"`
	IsLoading     bool     `json:"is_loading"`
}

type NavigationUsecase interface {
	Resolve(ctx context.Context, req *NavigationRequest, user *User) (*Decision, error)
	Reset(ctx context.Context, mountID string) error
	Routes() []Screen
}
