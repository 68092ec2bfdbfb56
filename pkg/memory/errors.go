package memory

import (
	"errors"

	"survey-assistant-be/pkg/memory/cache"
	"survey-assistant-be/pkg/memory/session"
)

// Invalid input. These are the only errors manager operations return;
// external failures are logged and replaced with safe defaults.
var (
	ErrEmptyQuery         = cache.ErrEmptyQuery
	ErrNilResult          = cache.ErrNilResult
	ErrNegativeBudget     = session.ErrNegativeBudget
	ErrEmptySessionID     = session.ErrEmptySessionID
	ErrSessionNotFound    = session.ErrSessionNotFound
	ErrEmptyUserID        = errors.New("user id must not be empty")
	ErrInvalidPreferences = errors.New("invalid preferences")
)

// IsInvalidInput reports whether err was caused by the caller's input.
func IsInvalidInput(err error) bool {
	for _, target := range []error{
		ErrEmptyQuery,
		ErrNilResult,
		ErrNegativeBudget,
		ErrEmptySessionID,
		ErrEmptyUserID,
		ErrInvalidPreferences,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
