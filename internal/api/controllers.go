package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) getStatus(c *gin.Context) {
	status := s.Engine.Status()
	c.JSON(http.StatusOK, gin.H{
		"engine":     status,
		"pipeline":   s.Pipeline.Statistics(),
		"paper":      s.Meta.Paper,
		"venue":      s.Meta.Venue,
		"symbols":    s.Meta.Symbols,
		"timeframes": s.Meta.Timeframes,
		"version":    s.Meta.Version,
	})
}

func (s *Server) getPositions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.Engine.Status().Positions})
}

func (s *Server) getSignals(c *gin.Context) {
	symbol := c.Query("symbol")
	timeframe := c.Query("timeframe")

	if c.Query("active") == "true" {
		c.JSON(http.StatusOK, gin.H{"signals": s.Pipeline.ActiveSignals(symbol, timeframe)})
		return
	}

	n, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"signals": s.Pipeline.History(n)})
}

func (s *Server) getTrades(c *gin.Context) {
	if s.DB == nil {
		c.JSON(http.StatusOK, gin.H{"trades": []any{}})
		return
	}
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	trades, err := s.DB.RecentTrades(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

func (s *Server) getRisk(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"limits":  s.Checker.Limits(),
		"metrics": s.Checker.Metrics(),
	})
}

func (s *Server) startEngine(c *gin.Context) {
	if err := s.Engine.Start(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Engine.Status().State})
}

func (s *Server) stopEngine(c *gin.Context) {
	if err := s.Engine.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Engine.Status().State})
}

func (s *Server) pauseEngine(c *gin.Context) {
	if !s.Engine.Pause() {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot pause from current state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Engine.Status().State})
}

func (s *Server) resumeEngine(c *gin.Context) {
	if !s.Engine.Resume() {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot resume from current state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Engine.Status().State})
}

func (s *Server) resetEngine(c *gin.Context) {
	if !s.Engine.Reset() {
		c.JSON(http.StatusConflict, gin.H{"error": "reset only valid from ERROR state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.Engine.Status().State})
}
