package level

import (
	"fmt"
	"time"
)

// Level is the global service level. Higher values are more degraded.
type Level int

// Levels in increasing severity.
const (
	Normal Level = iota
	Reduced
	Minimal
	StaticOnly
)

var names = [...]string{"normal", "reduced", "minimal", "static_only"}

// String returns the wire name of the level.
func (l Level) String() string {
	if l < Normal || l > StaticOnly {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return names[l]
}

// Parse converts a wire name back into a Level.
func Parse(s string) (Level, error) {
	for i, n := range names {
		if n == s {
			return Level(i), nil
		}
	}
	return Normal, fmt.Errorf("unknown service level %q", s)
}

// FromPercentage maps the highest quota usage percentage to a level.
// Boundaries belong to the more severe level.
func FromPercentage(pct float64) Level {
	switch {
	case pct >= 95:
		return StaticOnly
	case pct >= 85:
		return Minimal
	case pct >= 70:
		return Reduced
	default:
		return Normal
	}
}

// Cache TTLs applied to lookup results.
const (
	NormalTTL   = 5 * time.Minute
	DegradedTTL = time.Hour
)

// CacheTTL returns how long a result shaped at this level stays cached.
func (l Level) CacheTTL() time.Duration {
	if l == Normal {
		return NormalTTL
	}
	return DegradedTTL
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
