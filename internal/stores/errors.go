package stores

import "errors"

// Sentinel errors returned by the store layer. Handlers map these onto
// HTTP status codes with errors.Is.
var (
	// ErrInvalidRide wraps validation failures on ride input.
	ErrInvalidRide = errors.New("invalid ride")

	// ErrRideNotFound is returned when the requested ride does not exist.
	ErrRideNotFound = errors.New("ride not found")

	// ErrAlreadyJoined is returned when a user attempts to join a ride twice.
	ErrAlreadyJoined = errors.New("already joined this ride")

	// ErrNotOwner is returned when a non-owner attempts to mutate a ride.
	ErrNotOwner = errors.New("not the ride owner")

	// ErrEmptyMessage is returned when a chat message has an empty body.
	ErrEmptyMessage = errors.New("message body is empty")
)
