package handlers

import (
	"errors"

	"github.com/campusride/rideshare-backend/internal/stores"
	"github.com/gin-gonic/gin"
)

// GetMessages returns the full chat history of a ride, oldest first. It is
// fetched once when a chat view opens, before live events start arriving.
// Only ride participants may read the history.
func GetMessages(messages *stores.MessageStore, rides *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		rideID, ok := parseRideID(c)
		if !ok {
			return
		}

		participant, err := rides.IsParticipant(c.Request.Context(), rideID, userId)
		if err != nil {
			if errors.Is(err, stores.ErrRideNotFound) {
				c.JSON(404, gin.H{"error": "Ride not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch messages"})
			return
		}
		if !participant {
			c.JSON(403, gin.H{"error": "Join the ride to read its chat"})
			return
		}

		history, err := messages.History(c.Request.Context(), rideID)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch messages"})
			return
		}

		c.JSON(200, history)
	}
}
