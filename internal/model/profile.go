package model

import "time"

// UserProfile is created lazily from the signed-in identity.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Phone       string    `gorm:"size:32" json:"phone"`
	Profession  string    `json:"profession"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string { return "user_profiles" }

type ProfilePatch struct {
	DisplayName *string
	Email       *string
	Phone       *string
	Profession  *string
	AvatarURL   *string
}

func (p ProfilePatch) Apply(pr *UserProfile) {
	if p.DisplayName != nil {
		pr.DisplayName = *p.DisplayName
	}
	if p.Email != nil {
		pr.Email = *p.Email
	}
	if p.Phone != nil {
		pr.Phone = *p.Phone
	}
	if p.Profession != nil {
		pr.Profession = *p.Profession
	}
	if p.AvatarURL != nil {
		pr.AvatarURL = *p.AvatarURL
	}
}

func (p ProfilePatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.DisplayName != nil {
		cols["display_name"] = *p.DisplayName
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Phone != nil {
		cols["phone"] = *p.Phone
	}
	if p.Profession != nil {
		cols["profession"] = *p.Profession
	}
	if p.AvatarURL != nil {
		cols["avatar_url"] = *p.AvatarURL
	}
	return cols
}
