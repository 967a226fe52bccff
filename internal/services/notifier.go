package services

import (
	"context"
	"fmt"
	"log"

	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/campusride/rideshare-backend/pkg/utils"
	"gorm.io/gorm"
)

// RideJoinNotifier tells a ride owner that someone joined their ride, over
// every channel we have: email, push, and the Redis event stream. All
// channels are best-effort; a join never fails because a notification did.
type RideJoinNotifier struct {
	db *gorm.DB
}

func NewRideJoinNotifier(db *gorm.DB) *RideJoinNotifier {
	return &RideJoinNotifier{db: db}
}

func (n *RideJoinNotifier) NotifyJoin(ctx context.Context, ride *models.Ride, joinerName string) {
	if ride.User.Email != "" {
		if err := utils.SendJoinNotificationEmail(ride.User.Email, joinerName, ride); err != nil {
			log.Printf("Failed to send join notification email for ride %d: %v", ride.ID, err)
		}
	}

	payload := NotificationPayload{
		Title: fmt.Sprintf("%s joined your ride", joinerName),
		Body:  fmt.Sprintf("Your ride from %s now has %d participants. Open the chat to coordinate.", ride.OriginCity, len(ride.Participants)),
		Data: map[string]string{
			"type":   "ride_joined",
			"rideId": fmt.Sprintf("%d", ride.ID),
		},
	}
	if err := SendUserNotification(ctx, n.db, ride.UserID, payload); err != nil {
		log.Printf("Failed to send join push notification for ride %d: %v", ride.ID, err)
	}

	if err := PublishRideUpdate(ctx, ride.ID, "participant_joined", map[string]interface{}{
		"joiner":       joinerName,
		"participants": len(ride.Participants),
	}); err != nil {
		log.Printf("Failed to publish ride update for ride %d: %v", ride.ID, err)
	}
}
