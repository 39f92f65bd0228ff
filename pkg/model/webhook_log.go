package model

import (
	"time"

	"github.com/google/uuid"
)

// WebhookLog records one outbound delivery attempt. Rows are append-only:
// the core never mutates or deletes them.
type WebhookLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID      uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_id"`
	Sale        *Sale     `gorm:"foreignKey:SaleID" json:"-"`
	URL         string    `gorm:"type:varchar(500);not null" json:"url"`
	Payload     string    `gorm:"type:text;not null" json:"payload"`
	StatusCode  int       `json:"status_code"`
	Response    string    `gorm:"type:text" json:"response"`
	Success     bool      `gorm:"default:false;index" json:"success"`
	AttemptedAt time.Time `gorm:"autoCreateTime" json:"attempted_at"`
}

func (WebhookLog) TableName() string {
	return "webhook_logs"
}
