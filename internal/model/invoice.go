package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceType string

const (
	InvoiceTypeSprint InvoiceType = "sprint"
	InvoiceTypeDaily  InvoiceType = "daily"
	InvoiceTypeFixed  InvoiceType = "fixed"
	InvoiceTypeNone   InvoiceType = ""
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
	InvoiceStatusPaid    InvoiceStatus = "paid"
)

// Payable reports whether the invoice can still go through the escrow
// gate.
func (s InvoiceStatus) Payable() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

type Invoice struct {
	ID            uuid.UUID
	ContractID    uuid.UUID
	InvoiceType   InvoiceType
	SourceID      *uuid.UUID // originating work unit, may be absent
	WeekStartDate *time.Time
	Amount        float64
	Status        InvoiceStatus
	CreatedAt     time.Time
	PaidAt        *time.Time
}
