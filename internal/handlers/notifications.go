package handlers

import (
	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type deviceTokenInput struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

// RegisterDeviceToken stores an FCM token for the caller's device
func RegisterDeviceToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input deviceTokenInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		// A token may move between accounts on shared devices; reassign it.
		db.Unscoped().Where("token = ?", input.Token).Delete(&models.DeviceToken{})

		token := models.DeviceToken{
			UserID:   userId,
			Token:    input.Token,
			Platform: input.Platform,
		}
		if err := db.Create(&token).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to register device token"})
			return
		}

		c.JSON(201, gin.H{"message": "Device token registered"})
	}
}

// RemoveDeviceToken deletes an FCM token for the caller's device
func RemoveDeviceToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input deviceTokenInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := db.Unscoped().
			Where("user_id = ? AND token = ?", userId, input.Token).
			Delete(&models.DeviceToken{}).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to remove device token"})
			return
		}

		c.JSON(200, gin.H{"message": "Device token removed"})
	}
}
