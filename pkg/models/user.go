package models

import (
	"time"
)

const DefaultProfileImage = "default.png"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(254)" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Profile holds the storefront-facing details of a user.
type Profile struct {
	UserID      uint   `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User        User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Address     string `gorm:"type:varchar(255)" json:"address"`
	Phone       string `gorm:"type:varchar(255)" json:"phone"`
	DisplayName string `gorm:"type:varchar(255)" json:"display_name"`
	Image       string `gorm:"type:varchar(255);default:'default.png'" json:"image"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p Profile) String() string {
	return p.DisplayName + " (" + p.User.Username + ")"
}
