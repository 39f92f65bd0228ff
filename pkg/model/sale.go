package model

import (
	"time"

	"github.com/google/uuid"
)

type SaleStatus string

const (
	SalePending    SaleStatus = "pending"
	SaleProcessing SaleStatus = "processing"
	SaleApproved   SaleStatus = "approved"
	SaleRejected   SaleStatus = "rejected"
	SaleCanceled   SaleStatus = "canceled"
)

type PaymentMethod string

const (
	PaymentPix          PaymentMethod = "pix"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
	PaymentBoleto       PaymentMethod = "boleto"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentPix, PaymentCreditCard, PaymentDebitCard, PaymentBoleto, PaymentBankTransfer:
		return true
	}
	return false
}

func IsValidSaleStatus(s SaleStatus) bool {
	switch s {
	case SalePending, SaleProcessing, SaleApproved, SaleRejected, SaleCanceled:
		return true
	}
	return false
}

// IsTerminal reports whether payment resolution is closed for the status.
// Webhook delivery still acts on approved sales.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleApproved || s == SaleRejected || s == SaleCanceled
}

type Sale struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	VehicleID       string        `gorm:"type:varchar(50);not null;index" json:"vehicle_id"`
	BuyerTaxID      string        `gorm:"type:varchar(11);not null;index" json:"buyer_tax_id"`
	AmountPaid      float64       `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status          SaleStatus    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentCode     string        `gorm:"type:varchar(100);uniqueIndex" json:"payment_code"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	WebhookNotified bool          `gorm:"default:false;index:idx_webhook_pending" json:"webhook_notified"`
	WebhookAttempts int           `gorm:"default:0" json:"webhook_attempts"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Sale) TableName() string {
	return "sales"
}
