package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// Travel-time taxonomy. Raw transport errors never cross the service
	// boundary; callers only ever see these.
	ErrProviderAuth          = errors.New("travel provider: credential invalid or missing")
	ErrProviderQuota         = errors.New("travel provider: quota or rate limit exceeded")
	ErrAddressUnresolvable   = errors.New("travel provider: address could not be resolved")
	ErrTravelTimeUnavailable = errors.New("travel time unavailable")
)
