package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-client/internal/repositories"
)

// MessageHandler serves per-peer message history.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo}
}

// GetConversation returns the ordered history between the caller and
// one peer, and marks the peer's messages to the caller as read.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	userID := c.GetString("userID")
	peerID := c.Param("peer_id")
	if peerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing peer id"})
		return
	}

	msgs, err := h.messageRepo.GetConversation(c.Request.Context(), userID, peerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	if err := h.messageRepo.MarkConversationRead(c.Request.Context(), userID, peerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark messages read"})
		return
	}

	c.JSON(http.StatusOK, msgs)
}
