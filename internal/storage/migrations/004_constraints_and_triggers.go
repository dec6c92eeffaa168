package migrations

import "gorm.io/gorm"

type tableConstraint struct {
	table string
	name  string
	check string
}

var constraints = []tableConstraint{
	{"profiles", "valid_profile_role", "CHECK (role IN ('admin', 'coordinator', 'member'))"},
	{"profiles", "valid_profile_status", "CHECK (status IN ('pending', 'active', 'inactive'))"},
	{"sessions", "fk_sessions_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},

	{"events", "valid_event_dates", "CHECK (end_at >= start_at)"},
	{"events", "valid_event_status", "CHECK (status IN ('scheduled', 'canceled'))"},
	{"event_participants", "valid_event_response", "CHECK (response IN ('attending', 'maybe', 'declined'))"},

	{"permanences", "valid_permanence_dates", "CHECK (end_at > start_at)"},
	{"permanences", "valid_permanence_capacity", "CHECK (min_volunteers >= 0 AND max_volunteers >= 1 AND min_volunteers <= max_volunteers)"},
	{"permanences", "valid_permanence_status", "CHECK (status IN ('open', 'full', 'completed', 'canceled'))"},

	{"votes", "valid_vote_dates", "CHECK (end_date > start_date)"},
	{"votes", "valid_vote_max_choices", "CHECK (max_choices >= 1)"},
	{"votes", "valid_vote_status", "CHECK (status IN ('draft', 'active', 'closed'))"},
	{"vote_responses", "fk_vote_responses_vote", "FOREIGN KEY (vote_id) REFERENCES votes(id) ON DELETE CASCADE"},
	{"vote_responses", "fk_vote_responses_option", "FOREIGN KEY (option_id) REFERENCES vote_options(id) ON DELETE CASCADE"},

	{"projects", "valid_project_status", "CHECK (status IN ('planning', 'active', 'on_hold', 'completed'))"},
	{"notes", "fk_notes_project", "FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE SET NULL"},
	{"notes", "valid_note_visibility", "CHECK (visibility IN ('private', 'shared'))"},

	{"announcements", "valid_announcement_expiry", "CHECK (expires_at IS NULL OR expires_at > published_at)"},

	{"messages", "fk_messages_conversation", "FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE"},
	{"message_attachments", "valid_attachment_size", "CHECK (size >= 0)"},
}

// migration004Up creates constraints and the capacity trigger backing permanence registration
func migration004Up(db *gorm.DB) error {
	for _, c := range constraints {
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " " + c.check).Error; err != nil {
			return err
		}
	}

	if err := db.Exec(`CREATE OR REPLACE FUNCTION enforce_permanence_capacity()
        RETURNS TRIGGER AS $$
        DECLARE
            capacity INTEGER;
            registered INTEGER;
        BEGIN
            SELECT max_volunteers INTO capacity
            FROM permanences
            WHERE id = NEW.permanence_id
            FOR UPDATE;

            SELECT COUNT(*) INTO registered
            FROM permanence_participants
            WHERE permanence_id = NEW.permanence_id;

            IF registered >= capacity THEN
                RAISE EXCEPTION 'permanence % is full', NEW.permanence_id
                    USING ERRCODE = 'check_violation';
            END IF;

            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`).Error; err != nil {
		return err
	}

	if err := db.Exec("DROP TRIGGER IF EXISTS trigger_permanence_capacity ON permanence_participants").Error; err != nil {
		return err
	}

	return db.Exec(`CREATE TRIGGER trigger_permanence_capacity
        BEFORE INSERT ON permanence_participants
        FOR EACH ROW EXECUTE FUNCTION enforce_permanence_capacity()`).Error
}

// migration004Down drops constraints and triggers
func migration004Down(db *gorm.DB) error {
	if err := db.Exec("DROP TRIGGER IF EXISTS trigger_permanence_capacity ON permanence_participants").Error; err != nil {
		return err
	}
	if err := db.Exec("DROP FUNCTION IF EXISTS enforce_permanence_capacity() CASCADE").Error; err != nil {
		return err
	}

	for i := len(constraints) - 1; i >= 0; i-- {
		c := constraints[i]
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
	}

	return nil
}
