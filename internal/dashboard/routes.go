package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mwhitfield/redloop/internal/decision"
	"github.com/mwhitfield/redloop/internal/events"
	"github.com/mwhitfield/redloop/internal/models"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB, bus *events.Bus) {
	router.GET("/api/cycles", handleCycleList(db))
	router.GET("/api/cycles/:id", handleCycleDetail(db))
	router.GET("/api/queries", handleQueryList(db))
	router.GET("/api/stats/:projectID", handleStats(db))
	router.GET("/api/events", handleSSE(bus))
}

func handleCycleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := CycleSummary(db, c.Query("project"), c.Query("status"), c.Query("phase"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cycles": rows})
	}
}

func handleCycleDetail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := CycleDetail(db, c.Param("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "cycle not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

func handleQueryList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status == "" {
			status = models.QueryPending
		}
		gate := decision.NewGate(db, nil)
		queries, err := gate.List(decision.ListFilters{
			ProjectID: c.Query("project"),
			CycleID:   c.Query("cycle"),
			Status:    status,
			Urgency:   c.Query("urgency"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"queries": queries})
	}
}

func handleStats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		gate := decision.NewGate(db, nil)
		stats, err := gate.ProjectStats(c.Param("projectID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
