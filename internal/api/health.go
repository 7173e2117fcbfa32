package api

import (
	"net/http" // HTTP status codes
	"time"     // Timestamp

	"github.com/gin-gonic/gin" // Gin web framework
)

// HealthHandler reports that the service is up
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "Reservily API",
		})
	}
}
