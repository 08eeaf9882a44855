package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EngagementModel string

const (
	EngagementHourly EngagementModel = "hourly"
	EngagementDaily  EngagementModel = "daily"
	EngagementSprint EngagementModel = "sprint"
	EngagementFixed  EngagementModel = "fixed"
)

type ContractStatus string

const (
	ContractStatusPending   ContractStatus = "pending"
	ContractStatusActive    ContractStatus = "active"
	ContractStatusPaused    ContractStatus = "paused"
	ContractStatusCompleted ContractStatus = "completed"
	ContractStatusDisputed  ContractStatus = "disputed"
)

// PaymentTerms is stored as jsonb on the contract row. Rates are
// model-specific; CurrentSprintNumber is meaningful only for sprint
// contracts and is advanced exclusively by the sprint controller.
type PaymentTerms struct {
	Currency            string  `json:"currency,omitempty"`
	HourlyRate          float64 `json:"hourly_rate,omitempty"`
	DayRate             float64 `json:"day_rate,omitempty"`
	SprintRate          float64 `json:"sprint_rate,omitempty"`
	FixedTotal          float64 `json:"fixed_total,omitempty"`
	CurrentSprintNumber int     `json:"current_sprint_number,omitempty"`
}

func (t PaymentTerms) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *PaymentTerms) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = PaymentTerms{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("unsupported payment_terms type %T", src)
	}
}

type Contract struct {
	ID              uuid.UUID
	BuyerID         uuid.UUID
	ExpertID        uuid.UUID
	Title           string
	EngagementModel EngagementModel
	Status          ContractStatus
	PaymentTerms    PaymentTerms
	EscrowBalance   float64
	CreatedAt       time.Time
}
