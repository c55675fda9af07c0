package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nexusai/internal/apperr"
	"nexusai/internal/models"
)

type providerRequest struct {
	Provider string `json:"provider" binding:"required"`
}

type memoryRequest struct {
	Memory int `json:"memory" binding:"required"`
}

type messageRequest struct {
	Content string `json:"content" binding:"required"`
}

type keyRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

func (s *Server) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": s.svcs.Catalog.List(),
		"current":   controllerFrom(c).Provider(),
	})
}

func (s *Server) listKeys(c *gin.Context) {
	keys, err := s.svcs.Keys.ListApiKeys()
	if err != nil {
		respondError(c, apperr.Storage("list api keys", err))
		return
	}
	if keys == nil {
		keys = []map[string]string{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (s *Server) storeKey(c *gin.Context) {
	p, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		respondError(c, apperr.Validationf("Unknown provider %q", c.Param("provider")))
		return
	}
	var in keyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	if err := s.svcs.Keys.StoreApiKey(string(p), []byte(strings.TrimSpace(in.APIKey))); err != nil {
		respondError(c, apperr.Storage("store api key", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteKey(c *gin.Context) {
	p, ok := models.ParseProvider(c.Param("provider"))
	if !ok {
		respondError(c, apperr.Validationf("Unknown provider %q", c.Param("provider")))
		return
	}
	if err := s.svcs.Keys.DeleteApiKey(string(p)); err != nil {
		respondError(c, apperr.Storage("delete api key", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) selectProvider(c *gin.Context) {
	var in providerRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	p, ok := models.ParseProvider(in.Provider)
	if !ok {
		respondError(c, apperr.Validationf("Unknown provider %q", in.Provider))
		return
	}
	if err := controllerFrom(c).SelectProvider(p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": p})
}

func (s *Server) history(c *gin.Context) {
	ctrl := controllerFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"messages": ctrl.History(),
		"provider": ctrl.Provider(),
		"memory":   ctrl.Memory(),
	})
}

func (s *Server) clearHistory(c *gin.Context) {
	controllerFrom(c).Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) setMemory(c *gin.Context) {
	var in memoryRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	ctrl := controllerFrom(c)
	if err := ctrl.SetMemory(in.Memory); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"memory": ctrl.Memory(), "messages": ctrl.History()})
}

// sendMessage streams the answer as server-sent events: "chunk" carries the
// cumulative text, then exactly one "done" or "error" event closes the turn.
func (s *Server) sendMessage(c *gin.Context) {
	var in messageRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	ctrl := controllerFrom(c)

	setSSEHeaders(c)
	c.Status(http.StatusOK)
	res, err := ctrl.Submit(c.Request.Context(), in.Content, func(cumulative string) {
		c.SSEvent("chunk", gin.H{"text": cumulative})
		c.Writer.Flush()
	})

	label := outcome(err)
	if err == nil && res.SQL != "" {
		label = "data"
	}
	chatTurns.WithLabelValues(string(res.Provider), label).Inc()

	if err != nil {
		c.SSEvent("error", gin.H{
			"error":    apperr.MessageOf(err),
			"kind":     apperr.KindOf(err),
			"response": res.Response,
			"sql":      res.SQL,
		})
	} else {
		c.SSEvent("done", res)
	}
	c.Writer.Flush()
}

func setSSEHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}
