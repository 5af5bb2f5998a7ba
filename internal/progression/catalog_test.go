package progression

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/noctisium-backend/internal/domain/tracking"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c := DefaultCatalog()
	if c.Version() != 1 {
		t.Fatalf("version=%d", c.Version())
	}
	if len(c.All()) == 0 {
		t.Fatalf("empty catalog")
	}
	if _, ok := c.Get("first_ship"); !ok {
		t.Fatalf("first_ship missing")
	}
}

func TestParseCatalogRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"no_version":     "achievements: []\n",
		"duplicate_id":   "version: 1\nachievements:\n  - {id: a, metric: xp, min: 1}\n  - {id: a, metric: xp, min: 2}\n",
		"unknown_metric": "version: 1\nachievements:\n  - {id: a, metric: karma, min: 1}\n",
		"missing_id":     "version: 1\nachievements:\n  - {metric: xp, min: 1}\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCatalog([]byte(raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	c := DefaultCatalog()
	p := *tracking.DefaultProgression(uuid.New())
	p.TotalShips = 1

	unlocked := map[string]bool{}
	first := c.Evaluate(p, unlocked)
	if len(first) != 1 || first[0].ID != "first_ship" {
		t.Fatalf("first evaluation: %+v", first)
	}
	for _, a := range first {
		unlocked[a.ID] = true
	}
	if again := c.Evaluate(p, unlocked); len(again) != 0 {
		t.Fatalf("second evaluation unlocked %+v", again)
	}
}

func TestEvaluateRankAndLevel(t *testing.T) {
	c := DefaultCatalog()
	p := *tracking.DefaultProgression(uuid.New())
	p.XP = 420
	p.RRPoints = 1000

	got := map[string]bool{}
	for _, a := range c.Evaluate(p, nil) {
		got[a.ID] = true
	}
	if !got["level_5"] || !got["rank_gold"] {
		t.Fatalf("expected level_5 and rank_gold, got %v", got)
	}
	if got["rank_diamond"] || got["level_10"] {
		t.Fatalf("unexpected unlocks: %v", got)
	}
}

func TestPartition(t *testing.T) {
	c := DefaultCatalog()
	got, locked := c.Partition(map[string]bool{"first_ship": true})
	if len(got) != 1 || got[0].ID != "first_ship" {
		t.Fatalf("unlocked=%+v", got)
	}
	if len(got)+len(locked) != len(c.All()) {
		t.Fatalf("partition lost entries")
	}
}
