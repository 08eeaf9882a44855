package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/repository"
)

// EscrowService gates invoice payment on the contract's escrow
// balance. Payment is a single transaction: the invoice flips to paid
// and the balance is debited together, or nothing changes.
type EscrowService struct {
	contracts *repository.ContractRepository
	invoices  *repository.InvoiceRepository
}

func NewEscrowService(contracts *repository.ContractRepository, invoices *repository.InvoiceRepository) *EscrowService {
	return &EscrowService{contracts: contracts, invoices: invoices}
}

type PayInvoiceInput struct {
	InvoiceID uuid.UUID
	Principal model.Principal
}

// PayInvoice releases escrow against an invoice. Replaying against a
// paid invoice is a no-op success; a balance short of the amount fails
// with ErrInsufficientFunds and mutates nothing.
func (s *EscrowService) PayInvoice(ctx context.Context, input PayInvoiceInput) error {
	invoice, err := s.invoices.GetByID(ctx, input.InvoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	contract, err := s.contracts.GetContract(ctx, invoice.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if !input.Principal.IsBuyer() || contract.BuyerID != input.Principal.UserID {
		return ErrPermissionDenied
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return ErrAlreadyProcessed
	}
	if !invoice.Status.Payable() {
		return fmt.Errorf("%w: invoice is %s", ErrInvalidState, invoice.Status)
	}
	if contract.EscrowBalance < invoice.Amount {
		return ErrInsufficientFunds
	}

	err = s.contracts.DebitEscrowAndPay(ctx, contract.ID, invoice.ID, invoice.Amount, time.Now().UTC())
	switch {
	case errors.Is(err, repository.ErrInsufficientEscrow):
		// The balance moved under us between the read and the guarded
		// update.
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrNoRowsUpdated):
		// Someone else paid it first.
		return ErrAlreadyProcessed
	}
	return err
}

type FundEscrowInput struct {
	ContractID uuid.UUID
	Principal  model.Principal
	Amount     float64
}

// FundEscrow tops up a contract's escrow balance.
func (s *EscrowService) FundEscrow(ctx context.Context, input FundEscrowInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	contract, err := s.contracts.GetContract(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !input.Principal.IsBuyer() || contract.BuyerID != input.Principal.UserID {
		return ErrPermissionDenied
	}
	return s.contracts.FundEscrow(ctx, contract.ID, input.Amount)
}
