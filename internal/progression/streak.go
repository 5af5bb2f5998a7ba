package progression

type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

func WeekCompleted(completionPct float64) bool {
	return completionPct >= CompletedWeekThreshold
}

// ApplyWeek advances the streak by one week.
func ApplyWeek(s Streak, completionPct float64) Streak {
	if !WeekCompleted(completionPct) {
		s.Current = 0
		return s
	}
	s.Current++
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s
}
