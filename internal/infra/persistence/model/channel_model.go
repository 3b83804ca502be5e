package model

import "time"

// ChannelModel mirrors the 'channels' table.
type ChannelModel struct {
	Code       int    `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"type:varchar(100);not null"`
	Abbr       string `gorm:"type:varchar(32)"`
	VerifyType int    `gorm:"type:smallint;not null;default:0"`
	Status     int    `gorm:"type:smallint;not null;default:1"`
	Secret     string `gorm:"type:varchar(255)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (ChannelModel) TableName() string {
	return "channels"
}

// ChannelAuthBackendModel mirrors the 'channel_auth_backends' table: the ordered backends of a channel.
type ChannelAuthBackendModel struct {
	ChannelCode int    `gorm:"primaryKey;autoIncrement:false"`
	BackendID   string `gorm:"primaryKey;type:varchar(64)"`
	Priority    int    `gorm:"not null;default:0"` // Lower runs first.
}

// TableName explicitly sets the table name for GORM.
func (ChannelAuthBackendModel) TableName() string {
	return "channel_auth_backends"
}
