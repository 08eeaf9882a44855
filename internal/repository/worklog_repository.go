package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/model"
)

const workUnitColumns = `
	id,
	contract_id,
	work_date,
	log_date,
	status,
	description,
	problems_faced,
	checklist,
	evidence,
	sprint_number,
	buyer_comment,
	total_hours,
	requested_amount,
	created_at
`

type WorkLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) *WorkLogRepository {
	return &WorkLogRepository{db: db}
}

func (r *WorkLogRepository) Create(ctx context.Context, unit model.WorkUnit) (*model.WorkUnit, error) {
	var saved model.WorkUnit
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO work_units (
			contract_id,
			work_date,
			log_date,
			status,
			description,
			problems_faced,
			checklist,
			evidence,
			sprint_number,
			total_hours,
			requested_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+workUnitColumns,
		unit.ContractID,
		unit.WorkDate,
		unit.LogDate,
		unit.Status,
		unit.Description,
		unit.ProblemsFaced,
		unit.Checklist,
		unit.Evidence,
		unit.SprintNumber,
		unit.TotalHours,
		unit.RequestedAmount,
	).Scan(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *WorkLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.WorkUnit, error) {
	var unit model.WorkUnit
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+workUnitColumns+`
		FROM work_units
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&unit).Error
	if err != nil {
		return nil, err
	}
	if unit.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &unit, nil
}

func (r *WorkLogRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.WorkUnit, error) {
	var units []model.WorkUnit
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+workUnitColumns+`
		FROM work_units
		WHERE contract_id = ?
		ORDER BY created_at ASC
	`, contractID).Scan(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

// CountApprovedInSprint reports how many units of the given sprint have
// already been approved.
func (r *WorkLogRepository) CountApprovedInSprint(ctx context.Context, contractID uuid.UUID, sprintNumber int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM work_units
		WHERE contract_id = ?
			AND sprint_number = ?
			AND status = 'approved'
	`, contractID, sprintNumber).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateContent replaces the editable fields of a still-pending unit.
// The status guard makes edit after approval/rejection a no-match.
func (r *WorkLogRepository) UpdateContent(ctx context.Context, id uuid.UUID, unit model.WorkUnit) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE work_units
		SET
			work_date = ?,
			log_date = ?,
			description = ?,
			problems_faced = ?,
			checklist = ?,
			evidence = ?,
			total_hours = ?,
			requested_amount = ?
		WHERE id = ? AND status IN ('pending', 'submitted')
	`,
		unit.WorkDate,
		unit.LogDate,
		unit.Description,
		unit.ProblemsFaced,
		unit.Checklist,
		unit.Evidence,
		unit.TotalHours,
		unit.RequestedAmount,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}

// Reject flips a pending unit to rejected and records the buyer's
// comment. Guarded on status, so a replay matches nothing.
func (r *WorkLogRepository) Reject(ctx context.Context, id uuid.UUID, buyerComment string) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE work_units
		SET status = 'rejected', buyer_comment = ?
		WHERE id = ? AND status IN ('pending', 'submitted')
	`, buyerComment, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ApproveAndInvoice flips a pending unit to approved and, when the
// engagement model bills per unit, creates the invoice in the same
// transaction. The status guard plus the unique index on
// invoices.source_id make duplicate approvals a no-op instead of a
// double invoice. Returns false when the unit was already resolved.
func (r *WorkLogRepository) ApproveAndInvoice(ctx context.Context, id uuid.UUID, invoice *model.Invoice) (bool, error) {
	approved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(`
			UPDATE work_units
			SET status = 'approved'
			WHERE id = ? AND status IN ('pending', 'submitted')
		`, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		approved = true

		if invoice == nil {
			return nil
		}
		return tx.Exec(`
			INSERT INTO invoices (contract_id, invoice_type, source_id, week_start_date, amount, status)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id) DO NOTHING
		`,
			invoice.ContractID,
			invoice.InvoiceType,
			invoice.SourceID,
			invoice.WeekStartDate,
			invoice.Amount,
			invoice.Status,
		).Error
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}
