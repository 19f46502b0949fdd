package models

import (
	"strconv"
	"time"
)

type UserAccount struct {
	JsonModel
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Banned   bool   `gorm:"default:false" json:"-"`
	LastIp   string `json:"-"`
	GoogleID string `json:"-"`
	Platform Platform `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`

	TelegramUsername    string     `json:"telegram_username"`
	ConfirmedDeleteDate *time.Time `json:"-"`

	// daily slate push alerts
	ReceiveNotifications bool `json:"receive_notifications"`
	AvatarURL            string `json:"avatar_url"`
}

// PipelineUserID is the id format the recommendation pipeline and the
// feedback tables key on.
func (u *UserAccount) PipelineUserID() string {
	if u == nil || u.ID == 0 {
		return "anon"
	}
	return strconv.FormatUint(uint64(u.ID), 10)
}

type UserPushToken struct {
	JsonModel
	UserAccountID uint
	UserAccount   UserAccount `json:"user_account"`
	Platform      Platform    `sql:"type:ENUM('ios', 'android', 'web')" json:"platform"`
	Token         string      `json:"token"`
	Active        bool        `gorm:"default:false" json:"-"`
}

type UserPushIn struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,platform"`
}

type UserSettingsIn struct {
	ReceiveNotifications bool `json:"receive_notifications"`
}
