package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/realtime"
)

// notifyFunction broadcasts a row without its free-text and secret columns.
// NOTIFY payloads are limited to 8000 bytes.
const notifyFunction = `CREATE OR REPLACE FUNCTION notify_row_change()
    RETURNS TRIGGER AS $$
    DECLARE
        rec jsonb;
    BEGIN
        IF TG_OP = 'DELETE' THEN
            rec := to_jsonb(OLD);
        ELSE
            rec := to_jsonb(NEW);
        END IF;

        rec := rec - 'content' - 'body' - 'description' - 'bio' - 'password_hash';

        PERFORM pg_notify('%s', jsonb_build_object(
            'table', TG_TABLE_NAME,
            'action', TG_OP,
            'record', rec,
            'occurred_at', to_char(clock_timestamp() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"')
        )::text);

        RETURN NULL;
    END;
    $$ LANGUAGE plpgsql`

// notifyFunctionSQL renders the trigger function for the listener's channel
func notifyFunctionSQL() string {
	return fmt.Sprintf(notifyFunction, realtime.Channel)
}

func migration005Up(db *gorm.DB) error {
	if err := db.Exec(notifyFunctionSQL()).Error; err != nil {
		return err
	}

	for _, table := range NotifiedTables() {
		trigger := "trigger_notify_" + table
		if err := db.Exec("DROP TRIGGER IF EXISTS " + trigger + " ON " + table).Error; err != nil {
			return err
		}
		sql := "CREATE TRIGGER " + trigger +
			" AFTER INSERT OR UPDATE OR DELETE ON " + table +
			" FOR EACH ROW EXECUTE FUNCTION notify_row_change()"
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}

	return nil
}

func migration005Down(db *gorm.DB) error {
	for _, table := range NotifiedTables() {
		if err := db.Exec("DROP TRIGGER IF EXISTS trigger_notify_" + table + " ON " + table).Error; err != nil {
			return err
		}
	}

	return db.Exec("DROP FUNCTION IF EXISTS notify_row_change() CASCADE").Error
}
