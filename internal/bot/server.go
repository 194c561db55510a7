package bot

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/vladimiradmaev/menupro-bot/internal/logger"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

const webhookPath = "/webhook"

// webhook receives updates pushed by Telegram. Only requests to the path
// carrying secret are accepted.
type webhook struct {
	secret   string
	receive  func(*http.Request) (*tgbotapi.Update, error)
	dispatch func(tgbotapi.Update)
}

// newRouter serves the health endpoint and, when hook is set, the webhook.
func newRouter(checks []HealthCheck, hook *webhook) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[hc.Name] = err.Error()
				continue
			}
			results[hc.Name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	})

	if hook != nil && hook.secret != "" {
		r.POST(webhookPath+"/:secret", requireSecret(hook.secret), func(c *gin.Context) {
			update, err := hook.receive(c.Request)
			if err != nil {
				logger.Warn("Rejected webhook request", "error", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
				return
			}
			hook.dispatch(*update)
			c.Status(http.StatusOK)
		})
	}
	return r
}

// requireSecret rejects requests whose path secret differs from secret.
func requireSecret(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.Param("secret")), want) != 1 {
			logger.Warn("Rejected webhook request with a wrong secret", "remote", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
