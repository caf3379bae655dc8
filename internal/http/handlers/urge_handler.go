// Urge HTTP handlers.
//
// This file exposes the REST endpoints for the urge counter:
//   - POST /urge/{tutorialId}  (perform an urge)
//   - GET  /urge/{tutorialId}  (read the count, optionally with stats)
//
// Handlers are transport-thin: they extract the tutorial ID, client address
// and agent, delegate to the UrgeService, and translate service errors into
// the envelope taxonomy. The handler layer is the sole translator from
// internal errors to client-facing codes.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qlzhou/go-urge-backend/internal/services"
	"github.com/qlzhou/go-urge-backend/internal/sysutil"
)

// Handlers bundles the request handlers and their dependencies.
type Handlers struct {
	urges *services.UrgeService
	db    pinger
	start time.Time
}

// New constructs the handler set. start anchors the uptime reported by the
// health endpoint.
func New(urges *services.UrgeService, db pinger, start time.Time) *Handlers {
	return &Handlers{urges: urges, db: db, start: start}
}

// UrgeResult is the success payload of POST /urge/{tutorialId}.
type UrgeResult struct {
	UrgeCount      int64      `json:"urgeCount"      example:"3"`
	RemainingUrges int64      `json:"remainingUrges" example:"1"`
	Message        string     `json:"message"        example:"Urge received! The author will pick up the pace."`
	NextUrgeTime   *time.Time `json:"nextUrgeTime,omitempty"`
}

// CountResult is the success payload of GET /urge/{tutorialId}. The stats
// fields are present only when includeStats=true.
type CountResult struct {
	UrgeCount     int64  `json:"urgeCount" example:"3"`
	TotalUrges    *int64 `json:"totalUrges,omitempty"`
	TodayUrges    *int64 `json:"todayUrges,omitempty"`
	UniqueClients *int64 `json:"uniqueClients,omitempty"`
}

// PostUrge godoc
// @ID          postUrge
// @Summary     Urge the author of a tutorial
// @Description Increments the tutorial's urge counter, limited per client to a daily maximum.
// @Tags        Urge
// @Produce     json
//
// @Param       tutorialId  path  string  true  "Tutorial identifier (max 100 chars)" example(t1)
//
// @Success     200  {object} handlers.Envelope{data=handlers.UrgeResult}
// @Failure     400  {object} handlers.Envelope "Invalid tutorial ID or client address"
// @Failure     429  {object} handlers.Envelope "Daily urge limit reached"
// @Failure     500  {object} handlers.Envelope "Persistence failure"
// @Router      /urge/{tutorialId} [post]
func (h *Handlers) PostUrge(c *gin.Context) {
	req := services.UrgeRequest{
		TutorialID:     c.Param("tutorialId"),
		ClientAddr:     clientAddr(c),
		UserAgent:      c.Request.UserAgent(),
		AcceptLanguage: c.GetHeader("Accept-Language"),
	}

	receipt, err := h.urges.Urge(c.Request.Context(), req)
	if err != nil {
		switch {
		case err == services.ErrInvalidTutorialID:
			fail(c, http.StatusBadRequest, CodeValidationError, "invalid tutorial id")
		case err == services.ErrInvalidClientAddr:
			fail(c, http.StatusBadRequest, CodeValidationError, "invalid client address")
		default:
			if rl, ok := services.IsRateLimited(err); ok {
				msg := "urging too frequently, please try again later"
				if rl.NextAllowedAt != nil {
					msg = "daily urge limit reached, come back tomorrow"
				}
				fail(c, http.StatusTooManyRequests, CodeRateLimitExceeded, msg)
				return
			}
			fail(c, http.StatusInternalServerError, CodeDatabaseError, "urge operation failed")
		}
		return
	}

	ok(c, http.StatusOK, UrgeResult{
		UrgeCount:      receipt.UrgeCount,
		RemainingUrges: receipt.Remaining,
		Message:        receipt.Message,
		NextUrgeTime:   receipt.NextAllowedAt,
	})
}

// GetUrge godoc
// @ID          getUrge
// @Summary     Read a tutorial's urge count
// @Description Returns the aggregate urge count, optionally with today's count and unique client totals.
// @Tags        Urge
// @Produce     json
//
// @Param       tutorialId    path   string  true   "Tutorial identifier (max 100 chars)" example(t1)
// @Param       includeStats  query  bool    false  "Include detailed statistics"
//
// @Success     200  {object} handlers.Envelope{data=handlers.CountResult}
// @Failure     400  {object} handlers.Envelope "Invalid tutorial ID"
// @Failure     500  {object} handlers.Envelope "Persistence failure"
// @Router      /urge/{tutorialId} [get]
func (h *Handlers) GetUrge(c *gin.Context) {
	tutorialID := c.Param("tutorialId")

	count, err := h.urges.Count(c.Request.Context(), tutorialID)
	if err != nil {
		if err == services.ErrInvalidTutorialID {
			fail(c, http.StatusBadRequest, CodeValidationError, "invalid tutorial id")
			return
		}
		fail(c, http.StatusInternalServerError, CodeDatabaseError, "failed to read urge count")
		return
	}

	result := CountResult{UrgeCount: count}

	if c.Query("includeStats") == "true" {
		stats, err := h.urges.DetailedStats(c.Request.Context(), tutorialID)
		if err != nil {
			fail(c, http.StatusInternalServerError, CodeDatabaseError, "failed to read urge stats")
			return
		}
		result.TotalUrges = &stats.TotalUrges
		result.TodayUrges = &stats.TodayUrges
		result.UniqueClients = &stats.UniqueClients
	}

	ok(c, http.StatusOK, result)
}

// clientAddr derives the rate-limit identity for the request: the first
// X-Forwarded-For hop, then X-Real-IP, then Gin's ClientIP, then the
// "unknown" sentinel. The sentinel keeps misconfigured proxies working at
// the cost of sharing one bucket; see the services package for the policy
// note.
func clientAddr(c *gin.Context) string {
	first := ""
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if addr := sysutil.FirstNonEmpty(first, c.GetHeader("X-Real-IP"), c.ClientIP()); addr != "" {
		return addr
	}
	return services.UnknownClientAddr
}
