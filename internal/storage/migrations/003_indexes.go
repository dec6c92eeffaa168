package migrations

import "gorm.io/gorm"

// migration003Up creates query indexes not declared on the models
func migration003Up(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_profiles_role_status ON profiles(role, status)",
		"CREATE INDEX IF NOT EXISTS idx_profiles_name_trgm ON profiles USING gin ((lower(first_name || ' ' || last_name)) gin_trgm_ops)",
		"CREATE INDEX IF NOT EXISTS idx_profiles_skills ON profiles USING gin (skills)",

		"CREATE INDEX IF NOT EXISTS idx_sessions_profile ON sessions(profile_id)",

		"CREATE INDEX IF NOT EXISTS idx_events_range ON events(start_at, end_at)",
		"CREATE INDEX IF NOT EXISTS idx_events_category ON events(category)",
		"CREATE INDEX IF NOT EXISTS idx_event_participants_profile ON event_participants(profile_id)",

		"CREATE INDEX IF NOT EXISTS idx_permanences_range ON permanences(start_at, end_at)",
		"CREATE INDEX IF NOT EXISTS idx_permanences_status ON permanences(status)",
		"CREATE INDEX IF NOT EXISTS idx_permanence_participants_profile ON permanence_participants(profile_id)",

		"CREATE INDEX IF NOT EXISTS idx_votes_status ON votes(status)",
		"CREATE INDEX IF NOT EXISTS idx_vote_responses_vote ON vote_responses(vote_id)",

		"CREATE INDEX IF NOT EXISTS idx_project_members_profile ON project_members(profile_id)",

		"CREATE INDEX IF NOT EXISTS idx_notes_tags ON notes USING gin (tags)",
		"CREATE INDEX IF NOT EXISTS idx_notes_pinned_updated ON notes(pinned DESC, updated_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_announcements_listing ON announcements(pinned DESC, published_at DESC)",
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}

// migration003Down drops the query indexes
func migration003Down(db *gorm.DB) error {
	indexes := []string{
		"idx_profiles_role_status",
		"idx_profiles_name_trgm",
		"idx_profiles_skills",
		"idx_sessions_profile",
		"idx_events_range",
		"idx_events_category",
		"idx_event_participants_profile",
		"idx_permanences_range",
		"idx_permanences_status",
		"idx_permanence_participants_profile",
		"idx_votes_status",
		"idx_vote_responses_vote",
		"idx_project_members_profile",
		"idx_notes_tags",
		"idx_notes_pinned_updated",
		"idx_announcements_listing",
	}

	for _, index := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + index).Error; err != nil {
			return err
		}
	}

	return nil
}
