package syncer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Collection string

const (
	CollectionWeeklyKPI   Collection = "weekly_kpi"
	CollectionDailyMetric Collection = "daily_metric"
)

func (c Collection) Valid() bool {
	switch c {
	case CollectionWeeklyKPI, CollectionDailyMetric:
		return true
	}
	return false
}

// Key is the natural key of a remote row: (user, period, sub-key) within a collection.
type Key struct {
	Collection Collection
	UserID     uuid.UUID
	Period     string
	SubKey     string
}

func WeeklyKPI(userID uuid.UUID, weekKey, kpiID string) Key {
	return Key{Collection: CollectionWeeklyKPI, UserID: userID, Period: weekKey, SubKey: kpiID}
}

func DailyMetric(userID uuid.UUID, date, metric string) Key {
	return Key{Collection: CollectionDailyMetric, UserID: userID, Period: date, SubKey: metric}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Collection, k.UserID, k.Period, k.SubKey)
}

func (k Key) Validate() error {
	if !k.Collection.Valid() {
		return fmt.Errorf("unknown collection %q", k.Collection)
	}
	if k.UserID == uuid.Nil {
		return fmt.Errorf("key %s: missing user", k.Collection)
	}
	if strings.TrimSpace(k.Period) == "" || strings.TrimSpace(k.SubKey) == "" {
		return fmt.Errorf("key %s: period and sub-key are required", k.Collection)
	}
	if strings.Contains(k.Period, ":") || strings.Contains(k.SubKey, ":") {
		return fmt.Errorf("key %s: ':' is not allowed in period or sub-key", k.Collection)
	}
	return nil
}
