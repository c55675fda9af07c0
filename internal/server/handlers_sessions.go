package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexusai/internal/models"
)

func (s *Server) saveSession(c *gin.Context) {
	key, err := controllerFrom(c).SaveSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (s *Server) listSessions(c *gin.Context) {
	list, err := controllerFrom(c).ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.SessionSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (s *Server) loadSession(c *gin.Context) {
	ctrl := controllerFrom(c)
	if err := ctrl.LoadSession(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": ctrl.History(),
		"provider": ctrl.Provider(),
	})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := controllerFrom(c).DeleteSession(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
