package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the fetch package.
var (
	// ErrServiceUnavailable is returned when the fetch service cannot be reached.
	ErrServiceUnavailable = errors.New("fetch service unavailable")

	// ErrTemporarilyBlocked is returned on a 503, which the service uses for
	// cooldown / bot-detection periods. The attempt should fail immediately.
	ErrTemporarilyBlocked = errors.New("fetch service temporarily blocked")

	// ErrInvalidAPIKey is returned when the API key is rejected.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrInvalidQuality is returned for a quality outside {max,1080,720,360}.
	ErrInvalidQuality = errors.New("invalid quality")
)

// RateLimitedError is returned on a 429. It carries the server-specified
// wait before the request may be repeated; it drives the retry loop rather
// than counting as a hard failure.
type RateLimitedError struct {
	RetryAfter time.Duration
	FailCount  int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s (fail count %d)", e.RetryAfter, e.FailCount)
}

// AsRateLimited unwraps err into a RateLimitedError if it is one.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
