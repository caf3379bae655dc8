// Health HTTP handler.
//
// Reports process liveness plus the state of the two shared resources: the
// database connection pool and the in-process caches. Returns 200 with
// status "ok" when the database answers a ping, 503 with status "degraded"
// otherwise (the static content this backend accompanies keeps working
// without the counter, so a database outage degrades rather than kills).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qlzhou/go-urge-backend/internal/cache"
	"github.com/qlzhou/go-urge-backend/internal/repo"
)

// pinger is the slice of the repo layer the health endpoint needs: a
// connectivity probe and a pool snapshot.
type pinger interface {
	Ping(ctx context.Context) error
	Pool() repo.PoolStats
}

// HealthResult is the payload of GET /health.
type HealthResult struct {
	Status        string                 `json:"status" example:"ok"`
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Database      DatabaseHealth         `json:"database"`
	Caches        map[string]cache.Stats `json:"caches"`
}

// DatabaseHealth describes connectivity and pool usage.
type DatabaseHealth struct {
	Connected bool           `json:"connected"`
	Error     string         `json:"error,omitempty"`
	Pool      repo.PoolStats `json:"pool"`
}

// Health godoc
// @ID          health
// @Summary     Liveness and dependency health
// @Tags        Ops
// @Produce     json
// @Success     200  {object} handlers.HealthResult
// @Failure     503  {object} handlers.HealthResult
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	result := HealthResult{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.start).Seconds()),
		Caches:        h.urges.CacheStats(),
		Database: DatabaseHealth{
			Connected: true,
			Pool:      h.db.Pool(),
		},
	}

	status := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		result.Status = "degraded"
		result.Database.Connected = false
		result.Database.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, result)
}
