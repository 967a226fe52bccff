package services

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/campusride/rideshare-backend/internal/models"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// InitFirebase initializes Firebase Admin SDK
func InitFirebase() error {
	ctx := context.Background()

	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// SendNotificationToToken sends a notification to a specific FCM token
func SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  payload.Data,
		Token: token,
	}

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	log.Printf("Successfully sent notification, response: %s", response)
	return nil
}

// SendUserNotification sends a notification to every device registered by a
// user. Invalid tokens are removed from the registry.
func SendUserNotification(ctx context.Context, db *gorm.DB, userID uint, payload NotificationPayload) error {
	if MessagingClient == nil {
		return nil
	}

	var tokens []models.DeviceToken
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return fmt.Errorf("error loading device tokens for user %d: %v", userID, err)
	}

	for _, t := range tokens {
		if err := SendNotificationToToken(ctx, t.Token, payload); err != nil {
			log.Printf("Error sending notification to user %d token: %v", userID, err)
			if messaging.IsUnregistered(err) {
				db.WithContext(ctx).Unscoped().Delete(&t)
			}
		}
	}
	return nil
}
