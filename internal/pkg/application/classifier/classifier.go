// Package classifier maps raw gas readings (ppm) onto the fixed, ordered severity table.
package classifier

import "math"

const (
	LevelSafe     string = "SAFE"
	LevelWarning  string = "WARNING"
	LevelDanger   string = "DANGER"
	LevelCritical string = "CRITICAL"
)

// AlertThreshold is the lowest rank that produces an alert.
const AlertThreshold int = 2

// Floor is the practical lower bound of the sensor. Values below it clamp to the first tier.
const Floor int64 = 300

type Tier struct {
	Rank       int
	Level      string
	Message    string
	LowerBound int64
	UpperBound int64
	Unbounded  bool
}

func (t Tier) IsAlert() bool {
	return t.Rank >= AlertThreshold
}

// Contains reports whether v falls within [LowerBound, UpperBound).
func (t Tier) Contains(v int64) bool {
	if v < t.LowerBound {
		return false
	}
	return t.Unbounded || v < t.UpperBound
}

var tiers = [...]Tier{
	{Rank: 1, Level: LevelSafe, LowerBound: Floor, UpperBound: 501},
	{Rank: 2, Level: LevelWarning, Message: "Light warning - Unusual smell detected", LowerBound: 501, UpperBound: 901},
	{Rank: 3, Level: LevelDanger, Message: "DANGER! Gas leak detected!", LowerBound: 901, UpperBound: 2001},
	{Rank: 4, Level: LevelCritical, Message: "EXTREMELY DANGEROUS! High flammable gas concentration!", LowerBound: 2001, UpperBound: math.MaxInt64, Unbounded: true},
}

// Tiers returns a copy of the table ordered by rank.
func Tiers() []Tier {
	t := make([]Tier, len(tiers))
	copy(t, tiers[:])
	return t
}

// Classify returns the tier for v. It never fails.
func Classify(v int64) Tier {
	if v < Floor {
		return tiers[0]
	}

	for i := len(tiers) - 1; i > 0; i-- {
		if v >= tiers[i].LowerBound {
			return tiers[i]
		}
	}

	return tiers[0]
}

// Rank is a shorthand for callers that only need the rank and level.
func Rank(v int64) (int, string) {
	t := Classify(v)
	return t.Rank, t.Level
}

func BelowFloor(v int64) bool {
	return v < Floor
}
