package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/campusride/rideshare-backend/internal/stores"
	"github.com/gin-gonic/gin"
)

// JoinNotifier tells a ride owner that someone joined. Implementations are
// best-effort; failures must never roll back the join.
type JoinNotifier interface {
	NotifyJoin(ctx context.Context, ride *models.Ride, joinerName string)
}

// CreateRide handles the posting of a new ride
func CreateRide(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input stores.RideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		ride, err := store.Create(c.Request.Context(), userId, input)
		if err != nil {
			if errors.Is(err, stores.ErrInvalidRide) {
				c.JSON(400, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to create ride"})
			return
		}

		c.JSON(201, sanitizeRide(ride, userId))
	}
}

// GetRides retrieves rides with optional filters. Without a travelDate
// filter, only rides dated today or later are returned.
func GetRides(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := stores.RideFilters{
			OriginCity:    c.Query("originCity"),
			TransportMode: c.Query("transportMode"),
		}
		if raw := c.Query("travelDate"); raw != "" {
			day, err := time.Parse("2006-01-02", raw)
			if err != nil {
				c.JSON(400, gin.H{"error": "travelDate must be YYYY-MM-DD"})
				return
			}
			filters.TravelDate = day
		}

		rides, err := store.List(c.Request.Context(), filters)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rides"})
			return
		}

		c.JSON(200, sanitizeRides(rides, c.GetUint("userId")))
	}
}

// JoinRide adds the caller to a ride's participants and notifies the owner
func JoinRide(store *stores.RideStore, notifier JoinNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userName := c.GetString("userName")

		rideID, ok := parseRideID(c)
		if !ok {
			return
		}

		ride, err := store.Join(c.Request.Context(), rideID, userId)
		if err != nil {
			switch {
			case errors.Is(err, stores.ErrRideNotFound):
				c.JSON(404, gin.H{"error": "Ride not found"})
			case errors.Is(err, stores.ErrAlreadyJoined):
				c.JSON(409, gin.H{"error": "Already joined this ride"})
			default:
				c.JSON(500, gin.H{"error": "Failed to join ride"})
			}
			return
		}

		go notifier.NotifyJoin(context.Background(), ride, userName)

		c.JSON(200, sanitizeRide(ride, userId))
	}
}

// GetCreatedRides retrieves all rides posted by the caller
func GetCreatedRides(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		rides, err := store.ByOwner(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch created rides"})
			return
		}

		c.JSON(200, sanitizeRides(rides, userId))
	}
}

// GetJoinedRides retrieves all rides the caller participates in
func GetJoinedRides(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		rides, err := store.ByParticipant(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch joined rides"})
			return
		}

		c.JSON(200, sanitizeRides(rides, userId))
	}
}

// GetRideByID retrieves one ride with its participants
func GetRideByID(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideID, ok := parseRideID(c)
		if !ok {
			return
		}

		ride, err := store.GetByID(c.Request.Context(), rideID)
		if err != nil {
			if errors.Is(err, stores.ErrRideNotFound) {
				c.JSON(404, gin.H{"error": "Ride not found"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch ride"})
			return
		}

		c.JSON(200, sanitizeRide(ride, c.GetUint("userId")))
	}
}

// UpdateRide applies a partial update; only the owner may edit a ride
func UpdateRide(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		rideID, ok := parseRideID(c)
		if !ok {
			return
		}

		var patch stores.RideUpdate
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		ride, err := store.Update(c.Request.Context(), rideID, userId, patch)
		if err != nil {
			switch {
			case errors.Is(err, stores.ErrRideNotFound):
				c.JSON(404, gin.H{"error": "Ride not found"})
			case errors.Is(err, stores.ErrNotOwner):
				c.JSON(403, gin.H{"error": "Not authorized to update this ride"})
			case errors.Is(err, stores.ErrInvalidRide):
				c.JSON(400, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": "Failed to update ride"})
			}
			return
		}

		c.JSON(200, sanitizeRide(ride, userId))
	}
}

// DeleteRide removes a ride; only the owner may delete it
func DeleteRide(store *stores.RideStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		rideID, ok := parseRideID(c)
		if !ok {
			return
		}

		if err := store.Delete(c.Request.Context(), rideID, userId); err != nil {
			switch {
			case errors.Is(err, stores.ErrRideNotFound):
				c.JSON(404, gin.H{"error": "Ride not found"})
			case errors.Is(err, stores.ErrNotOwner):
				c.JSON(403, gin.H{"error": "Not authorized to delete this ride"})
			default:
				c.JSON(500, gin.H{"error": "Failed to delete ride"})
			}
			return
		}

		c.JSON(200, gin.H{"message": "Ride deleted"})
	}
}

func parseRideID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("rideId"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid ride id"})
		return 0, false
	}
	return uint(id), true
}

// sanitizeRide blanks the contact phone unless the poster opted in or the
// viewer owns the ride. Account phone numbers of the owner and participants
// are never exposed to other users.
func sanitizeRide(ride *models.Ride, viewerID uint) *models.Ride {
	if !ride.PhoneVisible && ride.UserID != viewerID {
		ride.Phone = ""
	}
	if ride.UserID != viewerID {
		ride.User.Phone = ""
	}
	for i := range ride.Participants {
		if ride.Participants[i].ID != viewerID {
			ride.Participants[i].Phone = ""
		}
	}
	return ride
}

func sanitizeRides(rides []models.Ride, viewerID uint) []models.Ride {
	for i := range rides {
		sanitizeRide(&rides[i], viewerID)
	}
	return rides
}
