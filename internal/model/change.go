package model

import "time"

const (
	TableTasks      = "tasks"
	TableCategories = "categories"
	TableSettings   = "user_settings"
	TableProfiles   = "user_profiles"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row change delivered by the change feed.
type ChangeEvent struct {
	Table  string
	Type   ChangeType
	UserID string
	RowID  string
	At     time.Time
}
