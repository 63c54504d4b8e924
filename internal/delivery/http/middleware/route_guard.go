package middleware

import (
	"net/http"
	"strings"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/guard"
	"pharmacy-guard-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// webNavigationKey marks the web shell as mounted; a request only arrives
// once the browser has a navigation tree.
const webNavigationKey = "web"

const KeyGuardDecision = "GuardDecision"

// RouteGuard applies the role guard to the web shell mounted at basePath.
// Every request is its own settle cycle, so a fresh Guard is used each time.
// Must run after SessionMiddleware.
func RouteGuard(basePath string) gin.HandlerFunc {
	// Joined with targets that start with "/"; a bare "/" prefix would make
	// the Location protocol-relative.
	prefix := strings.TrimRight("/"+strings.Trim(basePath, "/"), "/")
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		g := guard.New(guard.WithLogger(logger.Log))
		d := g.Evaluate(guard.Inputs{
			User:          CurrentUser(c),
			Segments:      PathSegments(strings.TrimPrefix(c.Request.URL.Path, prefix)),
			NavigationKey: webNavigationKey,
		})
		if d.Redirected() {
			c.Header("Cache-Control", "no-store")
			c.Redirect(http.StatusFound, prefix+d.Target)
			c.Abort()
			return
		}

		c.Set(KeyGuardDecision, d)
		c.Next()
	}
}

// GuardDecision returns the decision RouteGuard let through.
func GuardDecision(c *gin.Context) (domain.Decision, bool) {
	v, ok := c.Get(KeyGuardDecision)
	if !ok {
		return domain.Decision{}, false
	}
	d, ok := v.(domain.Decision)
	return d, ok
}

// PathSegments splits a URL path into its non-empty components.
func PathSegments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
