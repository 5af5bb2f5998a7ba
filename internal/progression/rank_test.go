package progression

import "testing"

func TestRankFromRRThresholds(t *testing.T) {
	cases := []struct {
		rr   int
		want Rank
	}{
		{-10, RankBronze},
		{0, RankBronze},
		{499, RankBronze},
		{500, RankSilver},
		{999, RankSilver},
		{1000, RankGold},
		{1499, RankGold},
		{1500, RankPlatinum},
		{1999, RankPlatinum},
		{2000, RankDiamond},
		{99999, RankDiamond},
	}
	for _, tc := range cases {
		if got := RankFromRR(tc.rr); got != tc.want {
			t.Fatalf("RankFromRR(%d)=%s, want %s", tc.rr, got, tc.want)
		}
	}
}

func TestRankFromRRMonotonic(t *testing.T) {
	prev := RankFromRR(-100).Index()
	for rr := -100; rr <= 3000; rr++ {
		idx := RankFromRR(rr).Index()
		if idx < prev {
			t.Fatalf("RankFromRR not monotonic at rr=%d", rr)
		}
		prev = idx
	}
}

func TestRRProgress(t *testing.T) {
	got := RRProgress(750)
	if got.Rank != RankSilver || got.Next == nil || *got.Next != RankGold || got.Percentage != 50 {
		t.Fatalf("RRProgress(750)=%+v", got)
	}
	got = RRProgress(2500)
	if got.Rank != RankDiamond || got.Next != nil || got.Percentage != 100 {
		t.Fatalf("RRProgress(2500)=%+v", got)
	}
	got = RRProgress(-20)
	if got.Rank != RankBronze || got.Percentage != 0 {
		t.Fatalf("RRProgress(-20)=%+v", got)
	}
}

func TestParseRank(t *testing.T) {
	if r, ok := ParseRank(" Gold "); !ok || r != RankGold {
		t.Fatalf("ParseRank(Gold)=%s,%v", r, ok)
	}
	if _, ok := ParseRank("mythic"); ok {
		t.Fatalf("ParseRank(mythic) should fail")
	}
}
