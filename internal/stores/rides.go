package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
	"gorm.io/gorm"
)

// RideStore owns ride records and the participant relation. Joins are a
// single atomic check-and-append against the ride_participants table; its
// composite primary key backstops concurrent joins by the same user.
type RideStore struct {
	db *gorm.DB
}

func NewRideStore(db *gorm.DB) *RideStore {
	return &RideStore{db: db}
}

// RideInput carries the fields a user supplies when posting a ride.
type RideInput struct {
	OriginCity      string    `json:"originCity"`
	TravelDate      time.Time `json:"travelDate"`
	ArrivalTime     string    `json:"arrivalTime"`
	TransportMode   string    `json:"transportMode"`
	AdditionalNotes string    `json:"additionalNotes"`
	Phone           string    `json:"phone"`
	PhoneVisible    bool      `json:"phoneVisible"`
}

func (in *RideInput) validate() error {
	if strings.TrimSpace(in.OriginCity) == "" {
		return fmt.Errorf("%w: origin city is required", ErrInvalidRide)
	}
	if in.TravelDate.IsZero() {
		return fmt.Errorf("%w: travel date is required", ErrInvalidRide)
	}
	if !models.ValidTransportMode(in.TransportMode) {
		return fmt.Errorf("%w: unknown transport mode %q", ErrInvalidRide, in.TransportMode)
	}
	return nil
}

// Create stores a new ride with the owner as its first participant.
func (s *RideStore) Create(ctx context.Context, ownerID uint, in RideInput) (*models.Ride, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ride := models.Ride{
		UserID:          ownerID,
		OriginCity:      in.OriginCity,
		TravelDate:      in.TravelDate,
		ArrivalTime:     in.ArrivalTime,
		TransportMode:   in.TransportMode,
		AdditionalNotes: in.AdditionalNotes,
		Phone:           in.Phone,
		PhoneVisible:    in.PhoneVisible,
		Status:          models.RideStatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ride).Error; err != nil {
			return err
		}
		return tx.Exec("INSERT INTO ride_participants (ride_id, user_id) VALUES (?, ?)",
			ride.ID, ownerID).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, ride.ID)
}

// GetByID returns a ride with its owner and participants loaded.
func (s *RideStore) GetByID(ctx context.Context, rideID uint) (*models.Ride, error) {
	var ride models.Ride
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		First(&ride, rideID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return &ride, nil
}

// Join atomically adds userID to the ride's participants. A second join by
// the same user fails with ErrAlreadyJoined and leaves the ride unchanged.
func (s *RideStore) Join(ctx context.Context, rideID, userID uint) (*models.Ride, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, rideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRideNotFound
			}
			return err
		}

		var count int64
		if err := tx.Table("ride_participants").
			Where("ride_id = ? AND user_id = ?", rideID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyJoined
		}

		if err := tx.Exec("INSERT INTO ride_participants (ride_id, user_id) VALUES (?, ?)",
			rideID, userID).Error; err != nil {
			// Concurrent join raced us past the count check; the composite
			// primary key rejects the duplicate row.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, rideID)
}

// IsParticipant reports whether userID is a participant of the ride. The
// ride must exist; participant rows left behind by a deleted ride do not
// grant access.
func (s *RideStore) IsParticipant(ctx context.Context, rideID, userID uint) (bool, error) {
	var ride models.Ride
	if err := s.db.WithContext(ctx).Select("id").First(&ride, rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRideNotFound
		}
		return false, err
	}

	var count int64
	err := s.db.WithContext(ctx).Table("ride_participants").
		Where("ride_id = ? AND user_id = ?", rideID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RideFilters narrows a ride listing. Zero values mean "no filter"; when
// TravelDate is unset only rides dated today or later are returned, so
// browse results stay actionable.
type RideFilters struct {
	OriginCity    string
	TravelDate    time.Time
	TransportMode string
}

// List returns rides matching the filters, soonest first.
func (s *RideStore) List(ctx context.Context, f RideFilters) ([]models.Ride, error) {
	query := s.db.WithContext(ctx).
		Preload("User").
		Preload("Participants")

	if f.OriginCity != "" {
		query = query.Where("LOWER(origin_city) LIKE ?", "%"+strings.ToLower(f.OriginCity)+"%")
	}
	if f.TransportMode != "" {
		query = query.Where("transport_mode = ?", f.TransportMode)
	}
	if !f.TravelDate.IsZero() {
		day := startOfDay(f.TravelDate)
		query = query.Where("travel_date >= ? AND travel_date < ?", day, day.AddDate(0, 0, 1))
	} else {
		query = query.Where("travel_date >= ?", startOfDay(time.Now()))
	}

	var rides []models.Ride
	if err := query.Order("travel_date ASC").Find(&rides).Error; err != nil {
		return nil, err
	}
	return rides, nil
}

// ByOwner returns all rides posted by ownerID, newest travel date first.
func (s *RideStore) ByOwner(ctx context.Context, ownerID uint) ([]models.Ride, error) {
	var rides []models.Ride
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		Where("user_id = ?", ownerID).
		Order("travel_date DESC").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}
	return rides, nil
}

// ByParticipant returns all rides userID has joined, including their own.
func (s *RideStore) ByParticipant(ctx context.Context, userID uint) ([]models.Ride, error) {
	var rides []models.Ride
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Participants").
		Joins("JOIN ride_participants rp ON rp.ride_id = rides.id").
		Where("rp.user_id = ?", userID).
		Order("travel_date DESC").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}
	return rides, nil
}

// RideUpdate is a partial update; nil fields are left untouched.
type RideUpdate struct {
	OriginCity      *string    `json:"originCity"`
	TravelDate      *time.Time `json:"travelDate"`
	ArrivalTime     *string    `json:"arrivalTime"`
	TransportMode   *string    `json:"transportMode"`
	AdditionalNotes *string    `json:"additionalNotes"`
	Phone           *string    `json:"phone"`
	PhoneVisible    *bool      `json:"phoneVisible"`
	Status          *string    `json:"status"`
}

// Update applies a partial update. Only the ride owner may update a ride.
func (s *RideStore) Update(ctx context.Context, rideID, callerID uint, patch RideUpdate) (*models.Ride, error) {
	var ride models.Ride
	if err := s.db.WithContext(ctx).First(&ride, rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if ride.UserID != callerID {
		return nil, ErrNotOwner
	}

	if patch.OriginCity != nil {
		if strings.TrimSpace(*patch.OriginCity) == "" {
			return nil, fmt.Errorf("%w: origin city is required", ErrInvalidRide)
		}
		ride.OriginCity = *patch.OriginCity
	}
	if patch.TravelDate != nil {
		ride.TravelDate = *patch.TravelDate
	}
	if patch.ArrivalTime != nil {
		ride.ArrivalTime = *patch.ArrivalTime
	}
	if patch.TransportMode != nil {
		if !models.ValidTransportMode(*patch.TransportMode) {
			return nil, fmt.Errorf("%w: unknown transport mode %q", ErrInvalidRide, *patch.TransportMode)
		}
		ride.TransportMode = *patch.TransportMode
	}
	if patch.AdditionalNotes != nil {
		ride.AdditionalNotes = *patch.AdditionalNotes
	}
	if patch.Phone != nil {
		ride.Phone = *patch.Phone
	}
	if patch.PhoneVisible != nil {
		ride.PhoneVisible = *patch.PhoneVisible
	}
	if patch.Status != nil {
		status := models.RideStatus(*patch.Status)
		if status != models.RideStatusActive && status != models.RideStatusCompleted {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRide, *patch.Status)
		}
		ride.Status = status
	}

	if err := s.db.WithContext(ctx).Save(&ride).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, rideID)
}

// Delete removes a ride. Only the ride owner may delete it.
func (s *RideStore) Delete(ctx context.Context, rideID, callerID uint) error {
	var ride models.Ride
	if err := s.db.WithContext(ctx).First(&ride, rideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRideNotFound
		}
		return err
	}
	if ride.UserID != callerID {
		return ErrNotOwner
	}
	return s.db.WithContext(ctx).Delete(&ride).Error
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
