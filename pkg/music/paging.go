package music

import "strconv"

// Bounds documented by the Spotify Web API for paginated endpoints.
const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 50
	MaxOffset    = 1000
)

// ClampLimit parses a client supplied limit. Empty or malformed input yields
// DefaultLimit; numbers outside [MinLimit, MaxLimit] are clamped.
func ClampLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLimit
	}
	switch {
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// ClampOffset parses a client supplied offset into [0, MaxOffset].
func ClampOffset(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	if n > MaxOffset {
		return MaxOffset
	}
	return n
}
