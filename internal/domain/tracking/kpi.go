package tracking

import (
	"time"

	"github.com/google/uuid"
)

type KPIKind string

const (
	KPIKindCounter    KPIKind = "counter"
	KPIKindGauge      KPIKind = "gauge"
	KPIKindAutoSynced KPIKind = "auto-synced"
)

func (k KPIKind) Valid() bool {
	switch k {
	case KPIKindCounter, KPIKindGauge, KPIKindAutoSynced:
		return true
	}
	return false
}

// KPIDefinition is a user-configured weekly goal. A nil or non-positive Target
// keeps the KPI out of completion math.
type KPIDefinition struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ID             string    `gorm:"column:kpi_id;primaryKey;type:text" json:"id"`
	Name           string    `gorm:"column:name;type:text;not null" json:"name"`
	Target         *float64  `gorm:"column:target" json:"target,omitempty"`
	Unit           string    `gorm:"column:unit;type:text" json:"unit,omitempty"`
	Color          string    `gorm:"column:color;type:text" json:"color,omitempty"`
	Kind           KPIKind   `gorm:"column:kind;type:text;not null;default:'counter'" json:"kind"`
	AutoSyncSource string    `gorm:"column:auto_sync_source;type:text" json:"auto_sync_source,omitempty"`
	Weight         float64   `gorm:"column:weight;not null;default:1" json:"weight"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0;index" json:"sort_order"`
	Active         bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (KPIDefinition) TableName() string { return "kpi_definitions" }

// Tracked reports whether the KPI participates in completion math.
func (k KPIDefinition) Tracked() bool {
	return k.Active && k.Target != nil && *k.Target > 0
}
