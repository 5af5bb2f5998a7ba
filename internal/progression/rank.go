package progression

import "strings"

type Rank string

const (
	RankBronze   Rank = "bronze"
	RankSilver   Rank = "silver"
	RankGold     Rank = "gold"
	RankPlatinum Rank = "platinum"
	RankDiamond  Rank = "diamond"
)

type tier struct {
	rank Rank
	min  int
}

// tiers is ordered by ascending lower bound.
var tiers = []tier{
	{RankBronze, 0},
	{RankSilver, 500},
	{RankGold, 1000},
	{RankPlatinum, 1500},
	{RankDiamond, 2000},
}

// RankFromRR returns the highest tier whose lower bound is <= rr.
func RankFromRR(rr int) Rank {
	out := RankBronze
	for _, t := range tiers {
		if rr >= t.min {
			out = t.rank
		}
	}
	return out
}

// Index is the tier's position in ascending order, or -1 for unknown ranks.
func (r Rank) Index() int {
	for i, t := range tiers {
		if t.rank == r {
			return i
		}
	}
	return -1
}

func (r Rank) Valid() bool { return r.Index() >= 0 }

func ParseRank(s string) (Rank, bool) {
	r := Rank(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type RankProgress struct {
	Rank       Rank    `json:"rank"`
	Next       *Rank   `json:"next,omitempty"`
	Percentage float64 `json:"percentage"`
}

// RRProgress reports how far rr is through its tier toward the next tier's
// lower bound. Diamond always reports 100 with no next tier.
func RRProgress(rr int) RankProgress {
	cur := RankFromRR(rr)
	i := cur.Index()
	if i == len(tiers)-1 {
		return RankProgress{Rank: cur, Percentage: 100}
	}
	lo, hi := tiers[i].min, tiers[i+1].min
	if rr < lo {
		rr = lo
	}
	next := tiers[i+1].rank
	return RankProgress{
		Rank:       cur,
		Next:       &next,
		Percentage: float64(rr-lo) / float64(hi-lo) * 100,
	}
}
