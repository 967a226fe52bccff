package models

import "time"

// Message is a single chat message in a ride's room. Messages are immutable
// once stored; CreatedAt is assigned by the store and is the room's ordering key.
type Message struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	RideID    uint      `json:"rideId" gorm:"not null;index:idx_messages_ride_time,priority:1"`
	Sender    string    `json:"sender" gorm:"not null"`
	Body      string    `json:"message" gorm:"column:body;not null"`
	CreatedAt time.Time `json:"timestamp" gorm:"index:idx_messages_ride_time,priority:2"`
}
