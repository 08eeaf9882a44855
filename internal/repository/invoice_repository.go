package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/model"
)

const invoiceColumns = `
	id,
	contract_id,
	invoice_type,
	source_id,
	week_start_date,
	amount,
	status,
	created_at,
	paid_at
`

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &invoice, nil
}

func (r *InvoiceRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE contract_id = ?
		ORDER BY created_at ASC
	`, contractID).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}
