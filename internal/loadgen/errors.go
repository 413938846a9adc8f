package loadgen

import "errors"

var (
	// ErrUnhealthy is returned when the service health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
	// ErrUnexpectedStatus is returned for responses outside the expected codes.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrVerification is returned when the leaderboard does not match the submitted maxima.
	ErrVerification = errors.New("leaderboard verification failed")
	// ErrNoStreamEvent is returned when the stream closes before its first snapshot.
	ErrNoStreamEvent = errors.New("no stream event received")
)
