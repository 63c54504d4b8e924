package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the Expo web build and the admin console to call the API.
// Only origins listed in allowedOrigins receive CORS headers.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "X-Requested-With", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		// Native clients send no Origin header; browsers get nothing.
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}
