package entity

import "time"

const (
	VerbosityConcise  = "concise"
	VerbosityBalanced = "balanced"
	VerbosityDetailed = "detailed"
)

type UserPreferences struct {
	UserId              string
	PreferredComplexity *ComplexityLevel
	AlwaysShowThinking  bool
	Verbosity           string
	UpdatedAt           *time.Time
}

// DefaultUserPreferences is the neutral snapshot used for anonymous users and failed lookups.
func DefaultUserPreferences(userId string) UserPreferences {
	return UserPreferences{
		UserId:    userId,
		Verbosity: VerbosityBalanced,
	}
}
