// Package httpapi maps the core services onto the HTTP surface consumed by
// the mobile client.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/httpmiddleware"
	"qrattend/internal/roster"
)

// Server bundles the services behind the HTTP handlers.
type Server struct {
	Auth       *auth.Service
	Attendance *attendance.Service
	Roster     *roster.Service

	SigningKey string
	Issuer     string

	// Healthy reports storage and cache reachability for /healthz.
	Healthy func(ctx context.Context) (db, cache bool)

	// AuthLimiter rate-limits the credential endpoints per client IP.
	AuthLimiter *httpmiddleware.TokenBucket
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		db, cache := true, true
		if s.Healthy != nil {
			db, cache = s.Healthy(c.Request.Context())
		}
		status := http.StatusOK
		if !db || !cache {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "db": db, "cache": cache})
	})

	authRoutes := r.Group("/v1/auth")
	if s.AuthLimiter != nil {
		authRoutes.Use(s.AuthLimiter.GinMiddleware())
	}
	authRoutes.POST("/register", s.handleRegister)
	authRoutes.POST("/register/confirm", s.handleRegisterConfirm)
	authRoutes.POST("/login", s.handleLogin)
	authRoutes.POST("/login/confirm", s.handleLoginConfirm)

	protected := r.Group("/v1", auth.SessionAuth(s.SigningKey, s.Issuer))
	protected.POST("/auth/password", s.handleChangePassword)
	protected.GET("/profile", s.handleProfile)

	protected.GET("/subjects", s.handleListSubjects)
	protected.POST("/subjects", s.handleCreateSubject)
	protected.DELETE("/subjects/:id", s.handleDeleteSubject)

	protected.GET("/sections", s.handleListSections)
	protected.POST("/sections", s.handleCreateSection)
	protected.PUT("/sections/:id", s.handleUpdateSection)
	protected.DELETE("/sections/:id", s.handleDeleteSection)

	protected.POST("/attendance/scan", s.handleScan)
	protected.POST("/attendance/manual", s.handleManual)
	protected.GET("/attendance/history", s.handleHistory)
	protected.GET("/attendance/stats/today", s.handleStatsToday)
}
