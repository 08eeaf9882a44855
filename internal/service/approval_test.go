package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deeplancer/contracts-service/internal/model"
)

func sprintPayload() model.SprintSubmissionPayload {
	return model.SprintSubmissionPayload{
		LogDate:     time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
		Description: "implemented calibration loop",
		Checklist: model.Checklist{
			{Task: "calibrate sensors", Status: model.ChecklistTaskDone},
		},
	}
}

func TestSubmitSprintWithoutSprintNumber(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementSprint)
	// payment_terms carries no current_sprint_number
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"sprint_rate": 500}`))

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload:    sprintPayload(),
	})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorContains(t, err, "sprint number missing")
	// Rejected before any insert.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitSprintEmptyChecklist(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementSprint)
	mock.ExpectQuery("FROM contracts").
		WillReturnRows(contractRow(contract, `{"sprint_rate": 500, "current_sprint_number": 1}`))

	payload := sprintPayload()
	payload.Checklist = model.Checklist{{Task: "   ", Status: model.ChecklistTaskNotDone}}

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload:    payload,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitContractNotActive(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	contract.Status = model.ContractStatusPaused
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload: model.DailyLogPayload{
			WorkDate:    time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Description: "day summary",
		},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitWrongPayloadVariant(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload:    sprintPayload(),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitByBuyerForbidden(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.BuyerID, Role: model.RoleBuyer},
		Payload: model.DailyLogPayload{
			WorkDate:    time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Description: "day summary",
		},
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestSubmitTooManyAttachments(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	attachments := make([]model.EvidenceAttachment, 11)
	for i := range attachments {
		attachments[i] = model.EvidenceAttachment{Name: "file.pdf"}
	}

	_, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload: model.DailyLogPayload{
			WorkDate:    time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Description: "day summary",
			Evidence:    model.Evidence{Attachments: attachments},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitDailyCreatesPendingUnit(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	workDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	saved := model.WorkUnit{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		WorkDate:    &workDate,
		Status:      model.WorkUnitStatusPending,
		Description: "day summary",
		TotalHours:  6,
	}
	mock.ExpectQuery("INSERT INTO work_units").WillReturnRows(workUnitRow(saved))

	unit, err := svc.Submit(context.Background(), SubmitInput{
		ContractID: contract.ID,
		Principal:  model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload: model.DailyLogPayload{
			WorkDate:    workDate,
			Description: "day summary",
			TotalHours:  6,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkUnitStatusPending, unit.Status)
	assert.Equal(t, saved.ID, unit.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveCreatesInvoiceInOneTransaction(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	workDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		WorkDate:    &workDate,
		Status:      model.WorkUnitStatusPending,
		Description: "day summary",
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE work_units").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO invoices").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Approve(context.Background(), ReviewInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.BuyerID, Role: model.RoleBuyer},
	})
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveSprintLogCreatesNoInvoice(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementSprint)
	sprintNo := 1
	logDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:           uuid.New(),
		ContractID:   contract.ID,
		LogDate:      &logDate,
		Status:       model.WorkUnitStatusSubmitted,
		SprintNumber: &sprintNo,
		Description:  "sprint log",
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").
		WillReturnRows(contractRow(contract, `{"sprint_rate": 500, "current_sprint_number": 1}`))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE work_units").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Approve(context.Background(), ReviewInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.BuyerID, Role: model.RoleBuyer},
	})
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveIsIdempotent(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	workDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		WorkDate:    &workDate,
		Status:      model.WorkUnitStatusApproved,
		Description: "day summary",
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	err := svc.Approve(context.Background(), ReviewInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.BuyerID, Role: model.RoleBuyer},
	})
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	// No second transition, no second invoice.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectRequiresReason(t *testing.T) {
	svc, _ := newApprovalFixture(t)

	err := svc.Reject(context.Background(), ReviewInput{
		UnitID:    uuid.New(),
		Principal: model.Principal{UserID: uuid.New(), Role: model.RoleBuyer},
		Reason:    "   ",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRejectPersistsBuyerComment(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementFixed)
	logDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		LogDate:     &logDate,
		Status:      model.WorkUnitStatusPending,
		Description: "milestone",
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"fixed_total": 2000}`))
	mock.ExpectExec("UPDATE work_units").
		WithArgs("scope incomplete", unit.ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Reject(context.Background(), ReviewInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.BuyerID, Role: model.RoleBuyer},
		Reason:    "scope incomplete",
	})
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewByExpertForbidden(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	workDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:         uuid.New(),
		ContractID: contract.ID,
		WorkDate:   &workDate,
		Status:     model.WorkUnitStatusPending,
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	err := svc.Approve(context.Background(), ReviewInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestEditAfterResolutionForbidden(t *testing.T) {
	svc, mock := newApprovalFixture(t)

	contract := activeContract(model.EngagementDaily)
	workDate := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	unit := model.WorkUnit{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		WorkDate:    &workDate,
		Status:      model.WorkUnitStatusRejected,
		Description: "day summary",
	}

	mock.ExpectQuery("FROM work_units").WillReturnRows(workUnitRow(unit))
	mock.ExpectQuery("FROM contracts").WillReturnRows(contractRow(contract, `{"day_rate": 100}`))

	_, err := svc.Edit(context.Background(), EditInput{
		UnitID:    unit.ID,
		Principal: model.Principal{UserID: contract.ExpertID, Role: model.RoleExpert},
		Payload: model.DailyLogPayload{
			WorkDate:    workDate,
			Description: "updated summary",
		},
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
