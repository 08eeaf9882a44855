package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WorkUnitStatus string

const (
	WorkUnitStatusPending   WorkUnitStatus = "pending"
	WorkUnitStatusSubmitted WorkUnitStatus = "submitted"
	WorkUnitStatusApproved  WorkUnitStatus = "approved"
	WorkUnitStatusRejected  WorkUnitStatus = "rejected"
)

// AwaitsReview reports whether the unit can still be edited, approved
// or rejected. "submitted" is a legacy spelling of "pending" and both
// are accepted everywhere.
func (s WorkUnitStatus) AwaitsReview() bool {
	return s == WorkUnitStatusPending || s == WorkUnitStatusSubmitted
}

type ChecklistTaskStatus string

const (
	ChecklistTaskDone    ChecklistTaskStatus = "done"
	ChecklistTaskNotDone ChecklistTaskStatus = "not_done"
)

type ChecklistTask struct {
	Task   string              `json:"task"`
	Status ChecklistTaskStatus `json:"status"`
}

type Checklist []ChecklistTask

func (c Checklist) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal(Checklist{})
	}
	return json.Marshal(c)
}

func (c *Checklist) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported checklist type %T", src)
	}
}

type EvidenceLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type EvidenceAttachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Evidence struct {
	Summary     string               `json:"summary,omitempty"`
	Links       []EvidenceLink       `json:"links,omitempty"`
	Attachments []EvidenceAttachment `json:"attachments,omitempty"`
}

func (e Evidence) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *Evidence) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*e = Evidence{}
		return nil
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported evidence type %T", src)
	}
}

// WorkUnit is one reported increment of work: a day summary for daily
// contracts, a sprint log for sprint contracts, a milestone log for
// fixed ones, a timesheet entry for hourly ones.
type WorkUnit struct {
	ID            uuid.UUID
	ContractID    uuid.UUID
	WorkDate      *time.Time
	LogDate       *time.Time
	CreatedAt     time.Time
	Status        WorkUnitStatus
	Description   string
	ProblemsFaced string
	Checklist     Checklist
	Evidence      Evidence
	SprintNumber  *int
	BuyerComment  string
	TotalHours    float64
	// RequestedAmount is the milestone payment asked for on fixed
	// contracts; zero for the other models.
	RequestedAmount float64
}

// EffectiveDate picks the date a unit is ordered by: the date the work
// pertains to when present, the submission timestamp otherwise.
func (u WorkUnit) EffectiveDate() time.Time {
	if u.WorkDate != nil && !u.WorkDate.IsZero() {
		return *u.WorkDate
	}
	if u.LogDate != nil && !u.LogDate.IsZero() {
		return *u.LogDate
	}
	return u.CreatedAt
}

// SprintGroup is derived at read time from units sharing a sprint
// number under one contract. It is never stored.
type SprintGroup struct {
	Key          string
	SprintNumber int
	Status       WorkUnitStatus
	LogCount     int
	Units        []WorkUnit
}
