package progression

import (
	"fmt"

	"github.com/yungbote/noctisium-backend/internal/domain/tracking"
)

type EventKind string

const (
	EventShip         EventKind = "ship"
	EventContent      EventKind = "content"
	EventWeekComplete EventKind = "week_complete"
)

// Event is a domain event the orchestrator folds into a UserProgression.
// CompletionPct and RRDelta are only read for EventWeekComplete.
type Event struct {
	Kind          EventKind
	CompletionPct float64
	RRDelta       int
}

func Ship() Event    { return Event{Kind: EventShip} }
func Content() Event { return Event{Kind: EventContent} }
func WeekComplete(pct float64, rrDelta int) Event {
	return Event{Kind: EventWeekComplete, CompletionPct: pct, RRDelta: rrDelta}
}

// Apply returns the full next state for ev and the xp it granted. The input is
// not modified.
func Apply(p tracking.UserProgression, ev Event) (tracking.UserProgression, int, error) {
	next := p
	gained := 0
	switch ev.Kind {
	case EventShip:
		gained = ShipXPReward
		next.TotalShips++
	case EventContent:
		gained = ContentXPReward
		next.TotalContent++
	case EventWeekComplete:
		gained = WeeklyXPReward(ev.CompletionPct)
		next.RRPoints += ev.RRDelta
		if next.RRPoints < 0 {
			next.RRPoints = 0
		}
		s := ApplyWeek(Streak{Current: p.CurrentStreak, Longest: p.LongestStreak}, ev.CompletionPct)
		next.CurrentStreak, next.LongestStreak = s.Current, s.Longest
		next.WeeksCompleted++
		if ev.CompletionPct >= 100 {
			next.PerfectWeeks++
		}
	default:
		return p, 0, fmt.Errorf("unknown progression event %q", ev.Kind)
	}
	if next.XP < 0 {
		next.XP = 0
	}
	next.XP += gained
	next.Level = LevelFromXP(next.XP)
	next.RankTier = string(RankFromRR(next.RRPoints))
	return next, gained, nil
}

type Violation struct {
	Field  string
	Stored any
	Want   any
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: stored=%v derived=%v", v.Field, v.Stored, v.Want)
}

// Audit lists the derived fields that disagree with xp and rr.
func Audit(p tracking.UserProgression) []Violation {
	var out []Violation
	if p.XP < 0 {
		out = append(out, Violation{Field: "xp", Stored: p.XP, Want: 0})
	}
	if want := LevelFromXP(p.XP); p.Level != want {
		out = append(out, Violation{Field: "level", Stored: p.Level, Want: want})
	}
	if want := string(RankFromRR(p.RRPoints)); p.RankTier != want {
		out = append(out, Violation{Field: "rank_tier", Stored: p.RankTier, Want: want})
	}
	if p.LongestStreak < p.CurrentStreak {
		out = append(out, Violation{Field: "longest_streak", Stored: p.LongestStreak, Want: p.CurrentStreak})
	}
	return out
}

// Repair recomputes every derived field from xp, rr and the current streak.
func Repair(p tracking.UserProgression) tracking.UserProgression {
	if p.XP < 0 {
		p.XP = 0
	}
	p.Level = LevelFromXP(p.XP)
	p.RankTier = string(RankFromRR(p.RRPoints))
	if p.LongestStreak < p.CurrentStreak {
		p.LongestStreak = p.CurrentStreak
	}
	return p
}
