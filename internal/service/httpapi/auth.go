package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionKeyAdmin    = "is_admin"
	sessionKeyUsername = "username"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// requireAdmin пропускает запрос только с сессией администратора.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, _ := sessions.Default(c).Get(sessionKeyAdmin).(bool); isAdmin {
			c.Next()
			return
		}
		respondFailure(c, http.StatusUnauthorized, "Authentication required. Please log in.")
	}
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Username and password are required")
		return
	}
	username := strings.TrimSpace(req.Username)
	if !s.admin.Authenticate(username, strings.TrimSpace(req.Password)) {
		respondFailure(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeyAdmin, true)
	session.Set(sessionKeyUsername, username)
	if err := session.Save(); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithField("username", username).Info("admin logged in")
	respond(c, http.StatusOK, "Login successful", gin.H{"username": username})
}

func (s *Server) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true})
	if err := session.Save(); err != nil {
		respondFailure(c, http.StatusInternalServerError, "Error logging out")
		return
	}
	respond(c, http.StatusOK, "Logout successful", nil)
}

func (s *Server) status(c *gin.Context) {
	session := sessions.Default(c)
	if isAdmin, _ := session.Get(sessionKeyAdmin).(bool); isAdmin {
		username, _ := session.Get(sessionKeyUsername).(string)
		respond(c, http.StatusOK, "User is authenticated", gin.H{"isAdmin": true, "username": username})
		return
	}
	c.JSON(http.StatusOK, envelope{Success: false, Message: "User is not authenticated", Data: gin.H{"isAdmin": false}})
}
