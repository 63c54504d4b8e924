// Package guard decides where a user belongs in the app after every
// navigation-state change.
//
// A Guard is a small state machine with two states, idle and redirected.
// It fires at most one redirect for a given set of inputs; the latch resets
// as soon as the inputs change.
package guard

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"pharmacy-guard-backend/internal/domain"
)

// Reasons reported with each decision.
const (
	ReasonLoading         = "loading"
	ReasonNotReady        = "navigation_not_ready"
	ReasonNoSegment       = "no_segment"
	ReasonLatched         = "latched"
	ReasonUnauthenticated = "unauthenticated"
	ReasonWrongGroup      = "wrong_role_group"
	ReasonAuthorized      = "authorized"
	ReasonPublic          = "public_route"
)

// Inputs are the watched dependencies of one evaluation.
type Inputs struct {
	User          *domain.User
	Segments      []string
	IsLoading     bool
	NavigationKey string
}

// Segment returns the first path component, or "" when there is none.
func (in Inputs) Segment() string {
	if len(in.Segments) == 0 {
		return ""
	}
	return in.Segments[0]
}

// Fingerprint identifies the inputs. Two evaluations with the same
// fingerprint belong to the same settle cycle.
func (in Inputs) Fingerprint() string {
	var b strings.Builder
	if in.User != nil {
		b.WriteString(in.User.ID)
		b.WriteByte(0x1f)
		b.WriteString(in.User.Email)
		b.WriteByte(0x1f)
		b.WriteString(string(in.User.Role))
	}
	b.WriteByte(0x1e)
	b.WriteString(strings.Join(in.Segments, "/"))
	b.WriteByte(0x1e)
	b.WriteString(strconv.FormatBool(in.IsLoading))
	b.WriteByte(0x1e)
	b.WriteString(in.NavigationKey)
	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

type Option func(*Guard)

// WithLogger sets the logger evaluations are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

type Guard struct {
	state       domain.LatchStatus
	fingerprint string
	target      string
	log         *slog.Logger
}

func New(opts ...Option) *Guard {
	g := &Guard{state: domain.LatchIdle, log: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Restore rebuilds a Guard from a persisted latch. A nil state yields an idle guard.
func Restore(st *domain.LatchState, opts ...Option) *Guard {
	g := New(opts...)
	if st != nil && st.Status == domain.LatchRedirected {
		g.state = domain.LatchRedirected
		g.fingerprint = st.Fingerprint
		g.target = st.Target
	} else if st != nil {
		g.fingerprint = st.Fingerprint
	}
	return g
}

// State returns the latch as it should be persisted.
func (g *Guard) State() domain.LatchState {
	return domain.LatchState{
		Status:      g.state,
		Fingerprint: g.fingerprint,
		Target:      g.target,
	}
}

// Evaluate runs one settle cycle and returns what the caller must do.
// It never touches the router; acting on the decision is up to the caller.
func (g *Guard) Evaluate(in Inputs) domain.Decision {
	if fp := in.Fingerprint(); fp != g.fingerprint {
		g.fingerprint = fp
		g.state = domain.LatchIdle
		g.target = ""
	}

	switch {
	case in.IsLoading:
		return none(ReasonLoading, false)
	case in.NavigationKey == "":
		return none(ReasonNotReady, false)
	case in.Segment() == "":
		return none(ReasonNoSegment, true)
	}

	if g.state == domain.LatchRedirected {
		return none(ReasonLatched, true)
	}

	segment := in.Segment()
	protected := IsProtected(segment)

	var role domain.Role
	var email string
	if in.User != nil {
		role, email = in.User.Role, in.User.Email
	}
	g.log.Debug("navigation evaluated", "segment", segment, "role", role, "email", email)

	if in.User == nil {
		if protected {
			g.log.Info("redirecting to login, no user", "segment", segment)
			return g.redirect(domain.LoginRoute, ReasonUnauthenticated)
		}
		return none(ReasonPublic, true)
	}

	if !role.Valid() {
		g.log.Warn("unknown role, treating as customer", "role", role, "email", email)
	}
	if segment != AuthorizedGroup(role) {
		g.log.Info("redirecting to role group", "role", role, "segment", segment)
		return g.redirect(DashboardRoute(role), ReasonWrongGroup)
	}
	return none(ReasonAuthorized, true)
}

func (g *Guard) redirect(target, reason string) domain.Decision {
	g.state = domain.LatchRedirected
	g.target = target
	return domain.Decision{
		Action: domain.ActionRedirect,
		Target: target,
		Reason: reason,
	}
}

func none(reason string, render bool) domain.Decision {
	return domain.Decision{
		Action: domain.ActionNone,
		Reason: reason,
		Render: render,
	}
}
