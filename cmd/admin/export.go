package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gravadigital/community-portal/internal/domain/announcement"
	"github.com/gravadigital/community-portal/internal/domain/common"
	"github.com/gravadigital/community-portal/internal/domain/event"
	"github.com/gravadigital/community-portal/internal/domain/note"
	"github.com/gravadigital/community-portal/internal/domain/permanence"
	"github.com/gravadigital/community-portal/internal/domain/profile"
	"github.com/gravadigital/community-portal/internal/domain/vote"
	"github.com/gravadigital/community-portal/internal/logger"
	"github.com/gravadigital/community-portal/internal/storage"
)

const exportPageSize = 200

// exportAll writes one JSON file per table family into dir and returns the
// written paths. Conversations are private and never exported.
func exportAll(ctx context.Context, repos storage.Container, dir string) ([]string, error) {
	log := logger.Service("admin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	families := []struct {
		name  string
		fetch func() (any, error)
	}{
		{"profiles", func() (any, error) {
			return collectPages(func(page common.Page) ([]*profile.Profile, error) {
				profiles, _, err := repos.Profiles().List(ctx, profile.DirectoryFilter{Page: page})
				return profiles, err
			})
		}},
		{"events", func() (any, error) {
			return repos.Events().List(ctx, event.Filter{IncludeCanceled: true})
		}},
		{"permanences", func() (any, error) {
			return repos.Permanences().List(ctx, permanence.Filter{})
		}},
		{"votes", func() (any, error) {
			return repos.Votes().List(ctx, vote.Filter{})
		}},
		{"projects", func() (any, error) {
			return repos.Projects().List(ctx, "")
		}},
		{"notes", func() (any, error) {
			return collectPages(func(page common.Page) ([]*note.Note, error) {
				return repos.Notes().List(ctx, note.Filter{Page: page})
			})
		}},
		{"announcements", func() (any, error) {
			return collectPages(func(page common.Page) ([]*announcement.Announcement, error) {
				return repos.Announcements().List(ctx, announcement.Filter{Page: page})
			})
		}},
	}

	written := make([]string, 0, len(families))
	for _, f := range families {
		rows, err := f.fetch()
		if err != nil {
			return written, fmt.Errorf("failed to read %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name+".json")
		if err := writeJSON(path, rows); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		log.Debug("Table family exported", "family", f.name, "path", path)
		written = append(written, path)
	}
	return written, nil
}

// collectPages keeps fetching until a short page comes back
func collectPages[T any](fetch func(common.Page) ([]T, error)) ([]T, error) {
	all := []T{}
	for offset := 0; ; offset += exportPageSize {
		rows, err := fetch(common.Page{Limit: exportPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < exportPageSize {
			return all, nil
		}
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
