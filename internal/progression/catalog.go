package progression

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/noctisium-backend/internal/domain/tracking"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Achievement struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Metric      string `yaml:"metric" json:"metric"`
	Min         int    `yaml:"min" json:"min"`
}

// Holds reports whether the predicate is satisfied by p.
func (a Achievement) Holds(p tracking.UserProgression) bool {
	read, ok := metricReaders[a.Metric]
	if !ok {
		return false
	}
	return read(p) >= a.Min
}

var metricReaders = map[string]func(tracking.UserProgression) int{
	"xp":              func(p tracking.UserProgression) int { return p.XP },
	"level":           func(p tracking.UserProgression) int { return LevelFromXP(p.XP) },
	"rr_points":       func(p tracking.UserProgression) int { return p.RRPoints },
	"rank_index":      func(p tracking.UserProgression) int { return RankFromRR(p.RRPoints).Index() },
	"current_streak":  func(p tracking.UserProgression) int { return p.CurrentStreak },
	"longest_streak":  func(p tracking.UserProgression) int { return p.LongestStreak },
	"weeks_completed": func(p tracking.UserProgression) int { return p.WeeksCompleted },
	"perfect_weeks":   func(p tracking.UserProgression) int { return p.PerfectWeeks },
	"total_ships":     func(p tracking.UserProgression) int { return p.TotalShips },
	"total_content":   func(p tracking.UserProgression) int { return p.TotalContent },
}

// Catalog is the immutable, versioned list of achievements.
type Catalog struct {
	version int
	entries []Achievement
	byID    map[string]Achievement
}

type catalogFile struct {
	Version      int           `yaml:"version"`
	Achievements []Achievement `yaml:"achievements"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode achievement catalog: %w", err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("achievement catalog: missing version")
	}
	c := &Catalog{version: f.Version, byID: make(map[string]Achievement, len(f.Achievements))}
	for i, a := range f.Achievements {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("achievement catalog: entry %d has no id", i)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("achievement catalog: duplicate id %q", a.ID)
		}
		if _, ok := metricReaders[a.Metric]; !ok {
			return nil, fmt.Errorf("achievement catalog: %s uses unknown metric %q", a.ID, a.Metric)
		}
		c.entries = append(c.entries, a)
		c.byID[a.ID] = a
	}
	return c, nil
}

var defaultCatalog = mustParse(catalogYAML)

func mustParse(raw []byte) *Catalog {
	c, err := ParseCatalog(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }

func (c *Catalog) Version() int { return c.version }

// All returns a copy of every entry in catalog order.
func (c *Catalog) All() []Achievement {
	out := make([]Achievement, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalog) Get(id string) (Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Evaluate returns the entries that hold for p and are not in unlocked.
// Entries already unlocked are skipped without being evaluated.
func (c *Catalog) Evaluate(p tracking.UserProgression, unlocked map[string]bool) []Achievement {
	var out []Achievement
	for _, a := range c.entries {
		if unlocked[a.ID] {
			continue
		}
		if a.Holds(p) {
			out = append(out, a)
		}
	}
	return out
}

// Partition splits the catalog into unlocked and locked entries, both in catalog order.
func (c *Catalog) Partition(unlocked map[string]bool) (got, locked []Achievement) {
	for _, a := range c.entries {
		if unlocked[a.ID] {
			got = append(got, a)
		} else {
			locked = append(locked, a)
		}
	}
	return got, locked
}
