package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/repositories"
)

// UserHandler serves the peer directory.
type UserHandler struct {
	userRepo repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// ListUsers returns every user. Clients exclude their own entry.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, users)
}
