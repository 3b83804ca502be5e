package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Account      string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	Name         string    `gorm:"type:varchar(100)"`
	Avatar       string    `gorm:"type:varchar(512)"`
	Mobile       string    `gorm:"type:varchar(32)"`
	Email        string    `gorm:"type:varchar(255)"`
	PasswordHash string    `gorm:"type:varchar(255)"`
	Status       int       `gorm:"type:smallint;not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Provider and Subject are NULL for local accounts, so the unique pair only binds third-party users.
	Provider *string `gorm:"type:varchar(32);uniqueIndex:idx_users_external"`
	Subject  *string `gorm:"type:varchar(255);uniqueIndex:idx_users_external"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
