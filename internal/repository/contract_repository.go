package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/model"
)

var (
	// ErrInsufficientEscrow is returned when a guarded balance update
	// matches no row because the balance would go negative.
	ErrInsufficientEscrow = errors.New("insufficient escrow balance")
	// ErrNoRowsUpdated is returned by guarded updates whose WHERE
	// clause matched nothing.
	ErrNoRowsUpdated = errors.New("no rows updated")
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			buyer_id,
			expert_id,
			title,
			engagement_model,
			status,
			payment_terms,
			escrow_balance,
			created_at
		FROM contracts
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &contract, nil
}

// FundEscrow tops up the escrow balance.
func (r *ContractRepository) FundEscrow(ctx context.Context, id uuid.UUID, amount float64) error {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE contracts
		SET escrow_balance = escrow_balance + ?
		WHERE id = ?
	`, amount, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdvanceSprint increments current_sprint_number inside payment_terms
// by exactly 1 and creates the settlement invoice for the finished
// sprint in the same transaction. The increment happens in SQL so a
// stale client-side counter can never be written back. Returns the new
// sprint number.
func (r *ContractRepository) AdvanceSprint(ctx context.Context, id uuid.UUID, settlement *model.Invoice) (int, error) {
	var newNumber int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Raw(`
			UPDATE contracts
			SET payment_terms = jsonb_set(
				payment_terms,
				'{current_sprint_number}',
				to_jsonb(COALESCE((payment_terms->>'current_sprint_number')::int, 0) + 1)
			)
			WHERE id = ?
				AND engagement_model = 'sprint'
				AND status = 'active'
			RETURNING (payment_terms->>'current_sprint_number')::int
		`, id).Scan(&newNumber).Error
		if err != nil {
			return err
		}
		if newNumber == 0 {
			return ErrNoRowsUpdated
		}

		if settlement != nil {
			return tx.Exec(`
				INSERT INTO invoices (contract_id, invoice_type, source_id, week_start_date, amount, status)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				settlement.ContractID,
				settlement.InvoiceType,
				settlement.SourceID,
				settlement.WeekStartDate,
				settlement.Amount,
				settlement.Status,
			).Error
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newNumber, nil
}

// DebitEscrowAndPay atomically marks the invoice paid and decrements
// the contract balance. Either both rows change or neither does.
func (r *ContractRepository) DebitEscrowAndPay(ctx context.Context, contractID, invoiceID uuid.UUID, amount float64, paidAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoiceResult := tx.Exec(`
			UPDATE invoices
			SET status = 'paid', paid_at = ?
			WHERE id = ? AND status IN ('pending', 'overdue')
		`, paidAt, invoiceID)
		if invoiceResult.Error != nil {
			return invoiceResult.Error
		}
		if invoiceResult.RowsAffected == 0 {
			return ErrNoRowsUpdated
		}

		balanceResult := tx.Exec(`
			UPDATE contracts
			SET escrow_balance = escrow_balance - ?
			WHERE id = ? AND escrow_balance >= ?
		`, amount, contractID, amount)
		if balanceResult.Error != nil {
			return balanceResult.Error
		}
		if balanceResult.RowsAffected == 0 {
			return ErrInsufficientEscrow
		}
		return nil
	})
}
