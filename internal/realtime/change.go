// Package realtime fans out row-change notifications to in-process subscribers.
// Changes carry only non-sensitive columns; subscribers re-fetch the row they need.
package realtime

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Action is the kind of row change
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// redactedColumns never leave the database in a change payload
var redactedColumns = []string{"content", "body", "description", "bio", "password_hash"}

// Change is a single row change on a table
type Change struct {
	Table      string         `json:"table"`
	Action     Action         `json:"action"`
	Record     map[string]any `json:"record"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewChange builds a change from a row value. Nested associations and redacted
// columns are removed so the record matches what the database triggers emit.
func NewChange(table string, action Action, row any) (Change, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return Change{}, fmt.Errorf("failed to encode %s row: %w", table, err)
	}

	record := map[string]any{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return Change{}, fmt.Errorf("failed to decode %s row: %w", table, err)
	}

	for key, value := range record {
		if slices.Contains(redactedColumns, key) || isAssociation(value) {
			delete(record, key)
		}
	}

	return Change{
		Table:      table,
		Action:     action,
		Record:     record,
		OccurredAt: time.Now().UTC(),
	}, nil
}

func isAssociation(value any) bool {
	switch v := value.(type) {
	case map[string]any:
		return true
	case []any:
		for _, item := range v {
			if _, ok := item.(map[string]any); ok {
				return true
			}
		}
	}
	return false
}

// Decode parses a notification payload produced by the notify_row_change trigger
func Decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("invalid change payload: %w", err)
	}
	if c.Table == "" || c.Action == "" {
		return Change{}, fmt.Errorf("invalid change payload: missing table or action")
	}
	if c.Record == nil {
		c.Record = map[string]any{}
	}
	if c.OccurredAt.IsZero() {
		c.OccurredAt = time.Now().UTC()
	}
	return c, nil
}

// Field returns a record column formatted as a string, or "" when absent
func (c Change) Field(name string) string {
	v, ok := c.Record[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Condition is a column equality test on a change record
type Condition struct {
	Column string
	Value  string
}

// Filter selects the changes a subscriber receives. Empty fields match everything.
// A change matching any Except condition is never delivered.
type Filter struct {
	Table   string
	Actions []Action
	Column  string
	Value   string
	Except  []Condition
}

// Matches reports whether the change passes the filter
func (f Filter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if len(f.Actions) > 0 && !slices.Contains(f.Actions, c.Action) {
		return false
	}
	if f.Column != "" && c.Field(f.Column) != f.Value {
		return false
	}
	for _, cond := range f.Except {
		if c.Field(cond.Column) == cond.Value {
			return false
		}
	}
	return true
}
