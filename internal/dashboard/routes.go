package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/streamyard/internal/store"
)

// registerRoutes sets up all dashboard routes on the Gin router. The
// surface is read-only; every mutation goes through the tool handlers.
func registerRoutes(router *gin.Engine, st *store.Store) {
	router.GET("/healthz", handleHealth())
	router.GET("/api/streams", handleStreamList(st))
	router.GET("/api/streams/:id", handleStreamDetail(st))
	router.GET("/api/streams/:id/commits", handleStreamCommits(st))
	router.GET("/api/stats", handleStats(st))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleStreamList(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		streams, err := listStreams(st, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"streams": streams, "count": len(streams)})
	}
}

func handleStreamDetail(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stream, err := st.Get(c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, streamView(stream))
	}
}

func handleStreamCommits(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := st.Get(id); errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		commits, err := st.ListCommits(id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"commits": commitViews(commits), "count": len(commits)})
	}
}

func handleStats(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := collectStats(st)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
