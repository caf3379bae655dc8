// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelope used by every endpoint. Success
// and failure share one shape so clients can rely on body inspection alone;
// the HTTP status code is redundant with, not a replacement for, the
// envelope's success flag.
//
// Example success:
//
//	HTTP/1.1 200 OK
//	{ "success": true, "data": { "urgeCount": 3, "remainingUrges": 1, "message": "…" } }
//
// Example failure:
//
//	HTTP/1.1 429 Too Many Requests
//	{ "success": false, "error": "daily urge limit reached", "code": "RATE_LIMIT_EXCEEDED" }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qlzhou/go-urge-backend/internal/http/middleware"
)

// Envelope is the uniform response body for all endpoints.
//
// Exactly one of Data (success) or Error+Code (failure) is populated. Codes
// are the stable machine-readable taxonomy from errors.go; Error holds a
// human-readable message safe to display.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"  example:"invalid tutorial id"`
	Code    string `json:"code,omitempty"   example:"VALIDATION_ERROR"`
}

// ok writes a success envelope with the given status and payload.
func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// fail aborts the request with a failure envelope and logs server-side
// errors (>= 500) on the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: msg, Code: code})
}

// Fail is the exported variant of fail(), for router-level fallbacks
// (NoRoute/NoMethod) that live outside this package's handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }
