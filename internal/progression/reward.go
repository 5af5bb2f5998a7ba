package progression

const (
	ShipXPReward    = 10
	ContentXPReward = 15

	// CompletedWeekThreshold is inclusive.
	CompletedWeekThreshold = 50.0
)

var weeklyRewardSteps = []struct {
	min float64
	xp  int
}{
	{100, 100},
	{80, 75},
	{60, 50},
	{40, 25},
	{20, 10},
}

// WeeklyXPReward is a stepped curve over the week's completion percentage.
func WeeklyXPReward(completionPct float64) int {
	for _, s := range weeklyRewardSteps {
		if completionPct >= s.min {
			return s.xp
		}
	}
	return 0
}
