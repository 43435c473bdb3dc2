package api

import (
	"net/http"

	"github.com/Domenick1991/flightapp/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFromError maps domain error kinds to HTTP statuses: missing
// resources are 404, every rejected request is 400.
func statusFromError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err), domain.IsSeatConflict(err), domain.IsTimingConflict(err), domain.IsCapacityExceeded(err), domain.IsDuplicateFlight(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), gin.H{"error": err.Error()})
}
