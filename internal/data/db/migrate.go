package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/noctisium-backend/internal/domain/tracking"
)

// ChangeChannel is the Postgres NOTIFY channel the change trigger writes to.
const ChangeChannel = "noctisium_changes"

// trackedTables are the tables whose writes are announced on ChangeChannel.
var trackedTables = []string{
	"kpi_definitions",
	"weekly_kpi_values",
	"daily_metrics",
	"weekly_metric_rollups",
	"user_progression",
	"unlocked_achievements",
	"content_items",
}

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&tracking.KPIDefinition{},
		&tracking.WeeklyKPIValue{},
		&tracking.DailyMetric{},
		&tracking.WeeklyMetricRollup{},
		&tracking.UserProgression{},
		&tracking.UnlockedAchievement{},
		&tracking.ContentItem{},
	)
}

// EnsureChangeTriggers installs a row trigger on every tracked table that
// publishes {"table","user_id"} through pg_notify. Postgres only.
func EnsureChangeTriggers(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION noctisium_notify_change() RETURNS trigger AS $$
		DECLARE
			rec RECORD;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				rec := OLD;
			ELSE
				rec := NEW;
			END IF;
			PERFORM pg_notify('%s', json_build_object('table', TG_TABLE_NAME, 'user_id', rec.user_id)::text);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql;
	`, ChangeChannel)).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}

	for _, table := range trackedTables {
		if err := db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS trg_%s_notify ON %s;`, table, table)).Error; err != nil {
			return fmt.Errorf("drop trigger %s: %w", table, err)
		}
		if err := db.Exec(fmt.Sprintf(`
			CREATE TRIGGER trg_%s_notify
			AFTER INSERT OR UPDATE OR DELETE ON %s
			FOR EACH ROW EXECUTE FUNCTION noctisium_notify_change();
		`, table, table)).Error; err != nil {
			return fmt.Errorf("create trigger %s: %w", table, err)
		}
	}
	return nil
}
