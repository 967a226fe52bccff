package models

import (
	"time"

	"gorm.io/gorm"
)

type TransportMode string

const (
	TransportTrain  TransportMode = "Train"
	TransportFlight TransportMode = "Flight"
	TransportBus    TransportMode = "Bus"
	TransportAuto   TransportMode = "Auto"
	TransportCab    TransportMode = "Cab"
)

// ValidTransportMode reports whether mode is one of the supported transport modes.
func ValidTransportMode(mode string) bool {
	switch TransportMode(mode) {
	case TransportTrain, TransportFlight, TransportBus, TransportAuto, TransportCab:
		return true
	}
	return false
}

type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
)

type Ride struct {
	gorm.Model
	UserID          uint       `json:"userId" gorm:"not null"`
	User            User       `json:"user"`
	OriginCity      string     `json:"originCity" gorm:"not null"`
	TravelDate      time.Time  `json:"travelDate" gorm:"not null"`
	ArrivalTime     string     `json:"arrivalTime"`
	TransportMode   string     `json:"transportMode" gorm:"not null"`
	AdditionalNotes string     `json:"additionalNotes"`
	Phone           string     `json:"phone"`
	PhoneVisible    bool       `json:"phoneVisible" gorm:"default:false"`
	Status          RideStatus `json:"status" gorm:"not null;default:'active'"`
	Participants    []User     `json:"participants" gorm:"many2many:ride_participants;"`
}
