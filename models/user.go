package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username    string       `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password    string       `gorm:"not null" json:"-"`
	Email       string       `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Tel         string       `gorm:"size:20;not null" json:"tel"`
	IsMember    bool         `gorm:"not null;default:false" json:"isMember"`
	IsAdmin     bool         `gorm:"not null;default:false" json:"isAdmin"`
	Cart        Cart         `json:"-"`
	Orders      []Order      `json:"-"`
	LoginTokens []LoginToken `json:"-"`
}
