package stores

import (
	"context"
	"strings"

	"github.com/campusride/rideshare-backend/internal/models"
	"gorm.io/gorm"
)

// MessageStore is the append-only per-ride chat log. The store assigns
// creation timestamps; within a room the append order is the retrieval order.
type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append persists a new message and returns it with its store-assigned
// timestamp. Fails with ErrEmptyMessage on a blank body.
func (s *MessageStore) Append(ctx context.Context, rideID uint, sender, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	msg := models.Message{
		RideID: rideID,
		Sender: sender,
		Body:   body,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns the full message log for a ride, oldest first. Ties on
// created_at fall back to insertion order.
func (s *MessageStore) History(ctx context.Context, rideID uint) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("ride_id = ?", rideID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
