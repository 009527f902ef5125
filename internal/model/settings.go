package model

import "time"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type View string

const (
	ViewKanban   View = "kanban"
	ViewCalendar View = "calendar"
	ViewList     View = "list" // client-local only, never stored in settings
)

// DefaultColorTheme is the palette new users start with.
const DefaultColorTheme = "blue-purple"

// ColorThemes are the palettes the client knows how to render.
var ColorThemes = []string{DefaultColorTheme, "green-teal", "orange-red", "pink-rose", "gray-slate"}

// UserSettings is created lazily the first time a user's settings are read.
type UserSettings struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Theme       Theme     `gorm:"size:16" json:"theme"`
	DefaultView View      `gorm:"size:16" json:"default_view"`
	ColorTheme  string    `gorm:"size:32" json:"color_theme"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (UserSettings) TableName() string { return "user_settings" }

// DefaultSettings returns the row a brand-new user gets.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:      userID,
		Theme:       ThemeLight,
		DefaultView: ViewKanban,
		ColorTheme:  DefaultColorTheme,
	}
}

type SettingsPatch struct {
	Theme       *Theme
	DefaultView *View
	ColorTheme  *string
}

func (p SettingsPatch) Apply(s *UserSettings) {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.DefaultView != nil {
		s.DefaultView = *p.DefaultView
	}
	if p.ColorTheme != nil {
		s.ColorTheme = *p.ColorTheme
	}
}

func (p SettingsPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Theme != nil {
		cols["theme"] = *p.Theme
	}
	if p.DefaultView != nil {
		cols["default_view"] = *p.DefaultView
	}
	if p.ColorTheme != nil {
		cols["color_theme"] = *p.ColorTheme
	}
	return cols
}
