package models

import (
	"time"

	"github.com/google/uuid"
)

// NewsItem is an agricultural news entry surfaced on the storefront.
type NewsItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Body        string    `gorm:"column:body;not null"`
	SourceURL   *string   `gorm:"column:source_url"`
	ImageURL    *string   `gorm:"column:image_url"`
	PublishedAt time.Time `gorm:"column:published_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Scheme is a government scheme announcement for farmers.
type Scheme struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string     `gorm:"column:title;not null"`
	Description string     `gorm:"column:description;not null"`
	Eligibility *string    `gorm:"column:eligibility"`
	ApplyURL    *string    `gorm:"column:apply_url"`
	StartsAt    *time.Time `gorm:"column:starts_at"`
	EndsAt      *time.Time `gorm:"column:ends_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// ChatFAQ is a keyword-matched canned answer consulted before the LLM fallback.
type ChatFAQ struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Keywords  string    `gorm:"column:keywords;not null"`
	Question  string    `gorm:"column:question;not null"`
	Answer    string    `gorm:"column:answer;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
