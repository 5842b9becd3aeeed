package models

import (
	"time"
)

type Language string

const (
	LanguageEN Language = "EN"
	LanguageRU Language = "RU"
)

// Code returns the lowercase ISO 639-1 code used by speech providers.
// Anything other than RU falls back to English.
func (l Language) Code() string {
	if l == LanguageRU {
		return "ru"
	}
	return "en"
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Language  Language  `gorm:"not null;default:'EN'" json:"language"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
