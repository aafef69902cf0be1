package models

import "time"

type Event struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Capacity  int       `gorm:"not null" json:"capacity"`
	Reserved  int       `gorm:"not null;default:0" json:"reserved"`
	Price     float64   `gorm:"not null" json:"price"`
	StartAt   time.Time `gorm:"not null" json:"start_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
