package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/apperr"
	"nexusai/internal/auth"
	"nexusai/internal/chat"
)

const (
	claimsKey     = "nexusai_claims"
	controllerKey = "nexusai_controller"
)

// requestLogger logs every request through logrus and records its metrics.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  status,
			"latency": elapsed.String(),
		})
		if sid := sessionID(c); sid != "" {
			entry = entry.WithField("session", sid)
		}
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Debug("request")
		}
	}
}

// requireSession validates the bearer token and loads the caller's chat
// controller into the context.
func requireSession(secret []byte, sessions *chat.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, apperr.Unauthorized("Missing bearer token"))
			return
		}
		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			respondError(c, apperr.Unauthorized("Invalid or expired token"))
			return
		}
		ctrl, err := sessions.Get(claims.SessionID, claims.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Set(controllerKey, ctrl)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func claimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func controllerFrom(c *gin.Context) *chat.Controller {
	if v, ok := c.Get(controllerKey); ok {
		if ctrl, ok := v.(*chat.Controller); ok {
			return ctrl
		}
	}
	return nil
}

func sessionID(c *gin.Context) string {
	if claims := claimsFrom(c); claims != nil {
		return claims.SessionID
	}
	return ""
}
