package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/deeplancer/contracts-service/internal/config"
	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/repository"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	database, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return database, mock
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		WorkLog:     config.WorkLogConfig{MaxAttachments: 10},
		Escrow:      config.EscrowConfig{Currency: "USD"},
	}
}

var contractColumns = []string{
	"id", "buyer_id", "expert_id", "title", "engagement_model",
	"status", "payment_terms", "escrow_balance", "created_at",
}

func contractRow(c model.Contract, termsJSON string) *sqlmock.Rows {
	return sqlmock.NewRows(contractColumns).AddRow(
		c.ID.String(),
		c.BuyerID.String(),
		c.ExpertID.String(),
		c.Title,
		string(c.EngagementModel),
		string(c.Status),
		[]byte(termsJSON),
		c.EscrowBalance,
		time.Now(),
	)
}

var workUnitColumnsTest = []string{
	"id", "contract_id", "work_date", "log_date", "status", "description",
	"problems_faced", "checklist", "evidence", "sprint_number",
	"buyer_comment", "total_hours", "requested_amount", "created_at",
}

func workUnitRow(u model.WorkUnit) *sqlmock.Rows {
	return workUnitRows(u)
}

func workUnitRows(units ...model.WorkUnit) *sqlmock.Rows {
	rows := sqlmock.NewRows(workUnitColumnsTest)
	for _, u := range units {
		var sprintNumber interface{}
		if u.SprintNumber != nil {
			sprintNumber = *u.SprintNumber
		}
		var workDate, logDate interface{}
		if u.WorkDate != nil {
			workDate = *u.WorkDate
		}
		if u.LogDate != nil {
			logDate = *u.LogDate
		}
		createdAt := u.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		rows.AddRow(
			u.ID.String(),
			u.ContractID.String(),
			workDate,
			logDate,
			string(u.Status),
			u.Description,
			u.ProblemsFaced,
			[]byte(`[]`),
			[]byte(`{}`),
			sprintNumber,
			u.BuyerComment,
			u.TotalHours,
			u.RequestedAmount,
			createdAt,
		)
	}
	return rows
}

var invoiceColumnsTest = []string{
	"id", "contract_id", "invoice_type", "source_id", "week_start_date",
	"amount", "status", "created_at", "paid_at",
}

func invoiceRow(inv model.Invoice) *sqlmock.Rows {
	return invoiceRows(inv)
}

func invoiceRows(invoices ...model.Invoice) *sqlmock.Rows {
	rows := sqlmock.NewRows(invoiceColumnsTest)
	for _, inv := range invoices {
		var sourceID interface{}
		if inv.SourceID != nil {
			sourceID = inv.SourceID.String()
		}
		createdAt := inv.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		rows.AddRow(
			inv.ID.String(),
			inv.ContractID.String(),
			string(inv.InvoiceType),
			sourceID,
			inv.WeekStartDate,
			inv.Amount,
			string(inv.Status),
			createdAt,
			inv.PaidAt,
		)
	}
	return rows
}

func newApprovalFixture(t *testing.T) (*ApprovalService, sqlmock.Sqlmock) {
	database, mock := newMockDB(t)
	svc := NewApprovalService(
		repository.NewContractRepository(database),
		repository.NewWorkLogRepository(database),
		testConfig(),
	)
	return svc, mock
}

func newEscrowFixture(t *testing.T) (*EscrowService, sqlmock.Sqlmock) {
	database, mock := newMockDB(t)
	svc := NewEscrowService(
		repository.NewContractRepository(database),
		repository.NewInvoiceRepository(database),
	)
	return svc, mock
}

func newSprintFixture(t *testing.T) (*SprintService, sqlmock.Sqlmock) {
	database, mock := newMockDB(t)
	svc := NewSprintService(
		repository.NewContractRepository(database),
		repository.NewWorkLogRepository(database),
	)
	return svc, mock
}

func activeContract(m model.EngagementModel) model.Contract {
	return model.Contract{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		ExpertID:        uuid.New(),
		Title:           "Edge inference pipeline",
		EngagementModel: m,
		Status:          model.ContractStatusActive,
	}
}
