package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sharide/internal/connectivity"
)

// Pinger checks the document store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports store reachability and the connectivity state.
type HealthHandler struct {
	store    Pinger
	observer *connectivity.Observer
	timeout  time.Duration
}

func NewHealthHandler(store Pinger, observer *connectivity.Observer, timeout time.Duration) *HealthHandler {
	return &HealthHandler{store: store, observer: observer, timeout: timeout}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	body := gin.H{
		"status":       "ok",
		"store":        "ok",
		"connectivity": h.observer.State(),
	}
	if err := h.store.Ping(ctx); err != nil {
		body["status"] = "degraded"
		body["store"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
