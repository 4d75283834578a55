// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rfidlab/smarttray/internal/export"
	"github.com/rfidlab/smarttray/internal/locator"
	"github.com/rfidlab/smarttray/internal/tray"
)

// writeError maps domain sentinels to HTTP status codes and writes the
// standard JSON error payload.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, tray.ErrUnknownTag):
		status, code = http.StatusNotFound, "unknown_tag"
	case errors.Is(err, tray.ErrNotInTray):
		status, code = http.StatusNotFound, "not_in_tray"
	case errors.Is(err, tray.ErrAlreadyInTray):
		status, code = http.StatusConflict, "already_in_tray"
	case errors.Is(err, tray.ErrOutOfRange):
		status, code = http.StatusUnprocessableEntity, "out_of_range"
	case errors.Is(err, locator.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, export.ErrEmptyBill):
		status, code = http.StatusNotFound, "empty_bill"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "details": err.Error()})
}

func writeBadRequest(c *gin.Context, details string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": details})
}
