package progression

import "testing"

func TestLevelFromXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1}, {1, 1}, {99, 1}, {100, 2}, {105, 2}, {199, 2}, {200, 3}, {1000, 11}, {-5, 1},
	}
	for _, tc := range cases {
		if got := LevelFromXP(tc.xp); got != tc.want {
			t.Fatalf("LevelFromXP(%d)=%d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestLevelFromXPMonotonicAndFormula(t *testing.T) {
	prev := LevelFromXP(0)
	for xp := 0; xp <= 5000; xp++ {
		got := LevelFromXP(xp)
		if got != xp/100+1 {
			t.Fatalf("LevelFromXP(%d)=%d, want %d", xp, got, xp/100+1)
		}
		if got < prev {
			t.Fatalf("LevelFromXP not monotonic at xp=%d: %d < %d", xp, got, prev)
		}
		prev = got
	}
}

func TestXPProgress(t *testing.T) {
	got := XPProgress(250)
	if got.Current != 50 || got.Required != 100 || got.Percentage != 50 {
		t.Fatalf("XPProgress(250)=%+v", got)
	}
	if got := XPProgress(300); got.Current != 0 || got.Percentage != 0 {
		t.Fatalf("XPProgress(300)=%+v", got)
	}
}

func TestLeveledUp(t *testing.T) {
	if !LeveledUp(95, 105) {
		t.Fatalf("95 -> 105 should level up")
	}
	if LeveledUp(100, 199) {
		t.Fatalf("100 -> 199 stays on level 2")
	}
}
