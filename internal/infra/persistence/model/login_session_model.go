package model

import (
	"time"

	"github.com/google/uuid"
)

// LoginSessionModel mirrors the 'login_sessions' table.
type LoginSessionModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index"`
	IPAddr        string    `gorm:"column:ip_addr;type:varchar(64)"`
	Mac           string    `gorm:"type:varchar(64)"`
	Token         string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	RefreshToken  string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	Status        int       `gorm:"type:smallint;not null"`
	CreatedAt     time.Time
	LastUpdatedAt time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (LoginSessionModel) TableName() string {
	return "login_sessions"
}
