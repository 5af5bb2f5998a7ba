// Package completion computes weekly KPI completion from raw values.
package completion

import (
	"math"
	"sort"

	"github.com/yungbote/noctisium-backend/internal/domain/tracking"
)

type KPIProgress struct {
	KPIID      string  `json:"kpi_id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Target     float64 `json:"target"`
	Percentage float64 `json:"percentage"`
}

// KPIPercent is min(100, value/target*100), floored at 0. Callers must pass a
// positive target.
func KPIPercent(value, target float64) float64 {
	if target <= 0 || math.IsNaN(value) {
		return 0
	}
	pct := value / target * 100
	switch {
	case pct > 100:
		return 100
	case pct < 0:
		return 0
	}
	return pct
}

// Breakdown returns per-KPI progress for the tracked KPIs, ordered by sort
// order then id so the output does not depend on input order.
func Breakdown(values map[string]float64, kpis []tracking.KPIDefinition) []KPIProgress {
	out := make([]KPIProgress, 0, len(kpis))
	tracked := make([]tracking.KPIDefinition, 0, len(kpis))
	for _, k := range kpis {
		if k.Tracked() {
			tracked = append(tracked, k)
		}
	}
	sort.Slice(tracked, func(i, j int) bool {
		if tracked[i].SortOrder != tracked[j].SortOrder {
			return tracked[i].SortOrder < tracked[j].SortOrder
		}
		return tracked[i].ID < tracked[j].ID
	})
	for _, k := range tracked {
		v := values[k.ID]
		out = append(out, KPIProgress{
			KPIID:      k.ID,
			Name:       k.Name,
			Value:      v,
			Target:     *k.Target,
			Percentage: KPIPercent(v, *k.Target),
		})
	}
	return out
}

// WeekCompletion is the unweighted mean of per-KPI progress over active KPIs
// with a positive target. No qualifying KPIs yields 0.
func WeekCompletion(values map[string]float64, kpis []tracking.KPIDefinition) float64 {
	rows := Breakdown(values, kpis)
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += r.Percentage
	}
	return sum / float64(len(rows))
}
