package model

import "time"

// Submission payloads are tagged variants, one per engagement model,
// so validation is structural instead of probing optional fields.

type PayloadType string

const (
	PayloadDailyLog         PayloadType = "daily_log"
	PayloadTimesheetEntry   PayloadType = "timesheet_entry"
	PayloadSprintSubmission PayloadType = "sprint_submission"
	PayloadMilestoneRequest PayloadType = "milestone_request"
)

type SubmissionPayload interface {
	PayloadType() PayloadType
}

type DailyLogPayload struct {
	WorkDate      time.Time
	Description   string
	ProblemsFaced string
	TotalHours    float64
	Evidence      Evidence
}

func (DailyLogPayload) PayloadType() PayloadType { return PayloadDailyLog }

type TimesheetEntryPayload struct {
	WorkDate    time.Time
	Description string
	TotalHours  float64
}

func (TimesheetEntryPayload) PayloadType() PayloadType { return PayloadTimesheetEntry }

type SprintSubmissionPayload struct {
	LogDate       time.Time
	Description   string
	ProblemsFaced string
	Checklist     Checklist
	Evidence      Evidence
}

func (SprintSubmissionPayload) PayloadType() PayloadType { return PayloadSprintSubmission }

type MilestoneRequestPayload struct {
	LogDate     time.Time
	Description string
	Amount      float64
	Evidence    Evidence
}

func (MilestoneRequestPayload) PayloadType() PayloadType { return PayloadMilestoneRequest }

// PayloadTypeFor returns the payload variant a contract's engagement
// model expects. Unknown models fall back to fixed semantics.
func PayloadTypeFor(m EngagementModel) PayloadType {
	switch m {
	case EngagementDaily:
		return PayloadDailyLog
	case EngagementHourly:
		return PayloadTimesheetEntry
	case EngagementSprint:
		return PayloadSprintSubmission
	default:
		return PayloadMilestoneRequest
	}
}
