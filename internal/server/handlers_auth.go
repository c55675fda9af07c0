package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/auth"
	"nexusai/internal/services"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) signUp(c *gin.Context) {
	var in services.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		accountEvents.WithLabelValues("signup", "validation").Inc()
		respondError(c, bindingError(err))
		return
	}
	user, err := s.svcs.Accounts.SignUp(c.Request.Context(), in)
	accountEvents.WithLabelValues("signup", outcome(err)).Inc()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"email":      user.Email,
		"username":   user.Username,
		"dateJoined": user.DateJoined,
		"message":    "Account created successfully! Please Login",
	})
}

// login checks the credentials and opens a chat session bound to the
// returned token.
func (s *Server) login(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		accountEvents.WithLabelValues("login", "validation").Inc()
		respondError(c, bindingError(err))
		return
	}
	user, err := s.svcs.Accounts.Login(c.Request.Context(), in.Email, in.Password)
	accountEvents.WithLabelValues("login", outcome(err)).Inc()
	if err != nil {
		respondError(c, err)
		return
	}

	id, _ := s.sessions.Start(user.Email)
	expiry := s.cfg.JWT.Expiry
	token, err := auth.GenerateToken(user.Email, id, []byte(s.cfg.JWT.Secret), expiry)
	if err != nil {
		s.sessions.End(id)
		respondError(c, err)
		return
	}
	log.WithFields(log.Fields{"session": id, "email": user.Email}).Info("login")

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		Email:     user.Email,
		Username:  user.Username,
		SessionID: id,
		ExpiresAt: time.Now().Add(expiry),
	})
}

func (s *Server) logout(c *gin.Context) {
	if claims := claimsFrom(c); claims != nil {
		s.sessions.End(claims.SessionID)
	}
	c.Status(http.StatusNoContent)
}
