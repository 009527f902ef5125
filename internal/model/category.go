package model

import "time"

// Category groups tasks by area. Tasks point at it by name.
type Category struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Color     string    `gorm:"size:32" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryPatch struct {
	Name  *string
	Color *string
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

func (p CategoryPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Color != nil {
		cols["color"] = *p.Color
	}
	return cols
}
