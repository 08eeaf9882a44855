package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/repository"
)

// SprintService is the sole writer of current_sprint_number. Finishing
// a sprint advances the counter by exactly one and settles the
// finished sprint with an invoice, in one transaction.
type SprintService struct {
	contracts *repository.ContractRepository
	worklogs  *repository.WorkLogRepository
}

func NewSprintService(contracts *repository.ContractRepository, worklogs *repository.WorkLogRepository) *SprintService {
	return &SprintService{contracts: contracts, worklogs: worklogs}
}

type FinishSprintInput struct {
	ContractID uuid.UUID
	Principal  model.Principal
}

type FinishSprintResult struct {
	FinishedSprint int
	CurrentSprint  int
}

func (s *SprintService) FinishSprint(ctx context.Context, input FinishSprintInput) (*FinishSprintResult, error) {
	contract, err := s.contracts.GetContract(ctx, input.ContractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !input.Principal.IsBuyer() || contract.BuyerID != input.Principal.UserID {
		return nil, ErrPermissionDenied
	}
	if contract.EngagementModel != model.EngagementSprint {
		return nil, fmt.Errorf("%w: not a sprint contract", ErrInvalidInput)
	}
	if contract.Status != model.ContractStatusActive {
		return nil, fmt.Errorf("%w: contract is not active", ErrInvalidState)
	}

	current := contract.PaymentTerms.CurrentSprintNumber
	if current < 1 {
		return nil, fmt.Errorf("%w: sprint number missing", ErrInvalidState)
	}

	// A sprint cannot be finished before the buyer has approved at
	// least one of its logs.
	approved, err := s.worklogs.CountApprovedInSprint(ctx, contract.ID, current)
	if err != nil {
		return nil, err
	}
	if approved == 0 {
		return nil, fmt.Errorf("%w: no approved work logs in sprint %d", ErrInvalidState, current)
	}

	settlement := &model.Invoice{
		ContractID:  contract.ID,
		InvoiceType: model.InvoiceTypeSprint,
		Amount:      contract.PaymentTerms.SprintRate,
		Status:      model.InvoiceStatusPending,
	}
	if settlement.Amount <= 0 {
		return nil, fmt.Errorf("%w: sprint rate missing", ErrInvalidState)
	}

	// The increment is computed in SQL from the stored counter, never
	// from the value read above, so a concurrent finish cannot write a
	// stale number back.
	newNumber, err := s.contracts.AdvanceSprint(ctx, contract.ID, settlement)
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			return nil, fmt.Errorf("%w: contract is not an active sprint contract", ErrInvalidState)
		}
		return nil, err
	}

	return &FinishSprintResult{
		FinishedSprint: newNumber - 1,
		CurrentSprint:  newNumber,
	}, nil
}
