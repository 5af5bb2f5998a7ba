package tracking

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyKPIValue is one KPI's accumulated value for one ISO week.
type WeeklyKPIValue struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	WeekKey   string    `gorm:"column:week_key;primaryKey;type:text" json:"week_key"`
	KPIID     string    `gorm:"column:kpi_id;primaryKey;type:text" json:"kpi_id"`
	Value     float64   `gorm:"column:value;not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (WeeklyKPIValue) TableName() string { return "weekly_kpi_values" }

// WeeklyRecord is the per-week view over WeeklyKPIValue rows.
type WeeklyRecord struct {
	UserID  uuid.UUID          `json:"user_id"`
	WeekKey string             `json:"week_key"`
	Values  map[string]float64 `json:"values"`
}

func NewWeeklyRecord(userID uuid.UUID, weekKey string, rows []*WeeklyKPIValue) *WeeklyRecord {
	rec := &WeeklyRecord{UserID: userID, WeekKey: weekKey, Values: make(map[string]float64, len(rows))}
	for _, r := range rows {
		if r == nil {
			continue
		}
		rec.Values[r.KPIID] = r.Value
	}
	return rec
}

// DailyMetric is a single per-day health or work fact (sleep hours, deep work minutes...).
type DailyMetric struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Date      string    `gorm:"column:date;primaryKey;type:text" json:"date"`
	Metric    string    `gorm:"column:metric;primaryKey;type:text" json:"metric"`
	Value     float64   `gorm:"column:value;not null;default:0" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (DailyMetric) TableName() string { return "daily_metrics" }

// WeeklyMetricRollup mirrors the weekly sum of a daily metric.
type WeeklyMetricRollup struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	WeekKey   string    `gorm:"column:week_key;primaryKey;type:text" json:"week_key"`
	Metric    string    `gorm:"column:metric;primaryKey;type:text" json:"metric"`
	Total     float64   `gorm:"column:total;not null;default:0" json:"total"`
	Days      int       `gorm:"column:days;not null;default:0" json:"days"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (WeeklyMetricRollup) TableName() string { return "weekly_metric_rollups" }
