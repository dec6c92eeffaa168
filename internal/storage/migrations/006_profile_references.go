package migrations

import "gorm.io/gorm"

// profileReferences tie every membership row to an existing profile
var profileReferences = []tableConstraint{
	{"event_participants", "fk_event_participants_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"permanence_participants", "fk_permanence_participants_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"vote_responses", "fk_vote_responses_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"project_members", "fk_project_members_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},
	{"conversation_participants", "fk_conversation_participants_profile", "FOREIGN KEY (profile_id) REFERENCES profiles(id) ON DELETE CASCADE"},
}

// migration006Up removes memberships of unknown profiles, then adds the foreign keys
func migration006Up(db *gorm.DB) error {
	for _, c := range profileReferences {
		if err := db.Exec("DELETE FROM " + c.table + " t WHERE NOT EXISTS (SELECT 1 FROM profiles p WHERE p.id = t.profile_id)").Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
		if err := db.Exec("ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " " + c.check).Error; err != nil {
			return err
		}
	}
	return nil
}

func migration006Down(db *gorm.DB) error {
	for i := len(profileReferences) - 1; i >= 0; i-- {
		c := profileReferences[i]
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
	}
	return nil
}
