package models

import "time"

// WebhookEvent records a processed gateway callback for deduplication.
// GatewayEventID is the gateway's own event identifier; the payload digest
// is kept for the audit window.
type WebhookEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GatewayEventID string    `gorm:"not null;uniqueIndex" json:"gateway_event_id"`
	PayloadDigest  string    `gorm:"type:varchar(64);not null" json:"payload_digest"`
	ProcessedAt    time.Time `gorm:"not null" json:"processed_at"`
}
