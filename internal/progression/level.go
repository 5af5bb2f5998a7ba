package progression

const XPPerLevel = 100

// LevelFromXP maps cumulative xp to a 1-based level. Negative xp counts as 0.
func LevelFromXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

type LevelProgress struct {
	Current    int     `json:"current"`
	Required   int     `json:"required"`
	Percentage float64 `json:"percentage"`
}

func XPProgress(xp int) LevelProgress {
	if xp < 0 {
		xp = 0
	}
	into := xp % XPPerLevel
	return LevelProgress{
		Current:    into,
		Required:   XPPerLevel,
		Percentage: float64(into) / float64(XPPerLevel) * 100,
	}
}

// LeveledUp reports whether moving from oldXP to newXP crossed a level boundary.
func LeveledUp(oldXP, newXP int) bool {
	return LevelFromXP(newXP) > LevelFromXP(oldXP)
}
