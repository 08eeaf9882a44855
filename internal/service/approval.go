package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/config"
	"github.com/deeplancer/contracts-service/internal/engagement"
	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/repository"
)

// ApprovalService owns the work-unit lifecycle: submission by the
// expert, edits while pending, approval or rejection by the buyer.
// Approved and rejected are terminal; replays of either call resolve
// as no-op successes so duplicate clicks can never double-invoice.
type ApprovalService struct {
	contracts *repository.ContractRepository
	worklogs  *repository.WorkLogRepository
	cfg       *config.Config
}

func NewApprovalService(contracts *repository.ContractRepository, worklogs *repository.WorkLogRepository, cfg *config.Config) *ApprovalService {
	return &ApprovalService{contracts: contracts, worklogs: worklogs, cfg: cfg}
}

type SubmitInput struct {
	ContractID uuid.UUID
	Principal  model.Principal
	Payload    model.SubmissionPayload
}

type EditInput struct {
	UnitID    uuid.UUID
	Principal model.Principal
	Payload   model.SubmissionPayload
}

type ReviewInput struct {
	UnitID    uuid.UUID
	Principal model.Principal
	Reason    string
}

func (s *ApprovalService) Submit(ctx context.Context, input SubmitInput) (*model.WorkUnit, error) {
	contract, err := s.getContract(ctx, input.ContractID)
	if err != nil {
		return nil, err
	}
	if !input.Principal.IsExpert() || contract.ExpertID != input.Principal.UserID {
		return nil, ErrPermissionDenied
	}
	if contract.Status != model.ContractStatusActive {
		return nil, fmt.Errorf("%w: contract is not active", ErrInvalidState)
	}

	unit, err := s.buildUnit(contract, input.Payload)
	if err != nil {
		return nil, err
	}
	return s.worklogs.Create(ctx, *unit)
}

func (s *ApprovalService) Edit(ctx context.Context, input EditInput) (*model.WorkUnit, error) {
	unit, err := s.getUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	contract, err := s.getContract(ctx, unit.ContractID)
	if err != nil {
		return nil, err
	}
	if !input.Principal.IsExpert() || contract.ExpertID != input.Principal.UserID {
		return nil, ErrPermissionDenied
	}
	if !unit.Status.AwaitsReview() {
		return nil, fmt.Errorf("%w: work log already %s", ErrPermissionDenied, unit.Status)
	}

	replacement, err := s.buildUnit(contract, input.Payload)
	if err != nil {
		return nil, err
	}
	// Edits replace content only; status and sprint number stay.
	replacement.SprintNumber = unit.SprintNumber

	if err := s.worklogs.UpdateContent(ctx, unit.ID, *replacement); err != nil {
		if errors.Is(err, repository.ErrNoRowsUpdated) {
			// Status moved between the read and the guarded update.
			return nil, fmt.Errorf("%w: work log already resolved", ErrPermissionDenied)
		}
		return nil, err
	}
	return s.getUnit(ctx, unit.ID)
}

// Approve flips a pending unit to approved and creates the invoice the
// approval settles, in one transaction. A unit that is already
// approved or rejected yields ErrAlreadyProcessed, which callers
// surface as a no-op success rather than an error.
func (s *ApprovalService) Approve(ctx context.Context, input ReviewInput) error {
	unit, contract, err := s.unitForReview(ctx, input)
	if err != nil {
		return err
	}
	if !unit.Status.AwaitsReview() {
		return ErrAlreadyProcessed
	}

	invoice, err := s.invoiceFor(contract, unit)
	if err != nil {
		return err
	}
	approved, err := s.worklogs.ApproveAndInvoice(ctx, unit.ID, invoice)
	if err != nil {
		return err
	}
	if !approved {
		// Raced with another review between the read and the guarded
		// update.
		return ErrAlreadyProcessed
	}
	return nil
}

// Reject flips a pending unit to rejected, recording the buyer's
// reason. A resolved unit yields ErrAlreadyProcessed.
func (s *ApprovalService) Reject(ctx context.Context, input ReviewInput) error {
	if strings.TrimSpace(input.Reason) == "" {
		return fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}
	unit, _, err := s.unitForReview(ctx, input)
	if err != nil {
		return err
	}
	if !unit.Status.AwaitsReview() {
		return ErrAlreadyProcessed
	}
	rejected, err := s.worklogs.Reject(ctx, unit.ID, strings.TrimSpace(input.Reason))
	if err != nil {
		return err
	}
	if !rejected {
		return ErrAlreadyProcessed
	}
	return nil
}

func (s *ApprovalService) unitForReview(ctx context.Context, input ReviewInput) (*model.WorkUnit, *model.Contract, error) {
	unit, err := s.getUnit(ctx, input.UnitID)
	if err != nil {
		return nil, nil, err
	}
	contract, err := s.getContract(ctx, unit.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if !input.Principal.IsBuyer() || contract.BuyerID != input.Principal.UserID {
		return nil, nil, ErrPermissionDenied
	}
	return unit, contract, nil
}

// buildUnit validates a tagged payload against the contract's
// engagement model and materializes the work unit.
func (s *ApprovalService) buildUnit(contract *model.Contract, payload model.SubmissionPayload) (*model.WorkUnit, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	expected := model.PayloadTypeFor(engagement.Normalize(contract.EngagementModel))
	if payload.PayloadType() != expected {
		return nil, fmt.Errorf("%w: expected %s payload for %s contract", ErrInvalidInput, expected, contract.EngagementModel)
	}

	unit := &model.WorkUnit{
		ContractID: contract.ID,
		Status:     model.WorkUnitStatusPending,
	}

	switch p := payload.(type) {
	case model.DailyLogPayload:
		if strings.TrimSpace(p.Description) == "" {
			return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
		}
		if err := s.checkAttachments(p.Evidence); err != nil {
			return nil, err
		}
		workDate := dateOnly(p.WorkDate)
		unit.WorkDate = &workDate
		unit.Description = p.Description
		unit.ProblemsFaced = p.ProblemsFaced
		unit.TotalHours = p.TotalHours
		unit.Evidence = p.Evidence

	case model.TimesheetEntryPayload:
		if p.TotalHours <= 0 {
			return nil, fmt.Errorf("%w: total_hours must be positive", ErrInvalidInput)
		}
		workDate := dateOnly(p.WorkDate)
		unit.WorkDate = &workDate
		unit.Description = p.Description
		unit.TotalHours = p.TotalHours

	case model.SprintSubmissionPayload:
		current := contract.PaymentTerms.CurrentSprintNumber
		if current < 1 {
			return nil, fmt.Errorf("%w: sprint number missing", ErrInvalidState)
		}
		if !hasTask(p.Checklist) {
			return nil, fmt.Errorf("%w: checklist needs at least one task", ErrInvalidInput)
		}
		if err := s.checkAttachments(p.Evidence); err != nil {
			return nil, err
		}
		logDate := dateOnly(p.LogDate)
		unit.LogDate = &logDate
		unit.Description = p.Description
		unit.ProblemsFaced = p.ProblemsFaced
		unit.Checklist = p.Checklist
		unit.Evidence = p.Evidence
		unit.SprintNumber = &current

	case model.MilestoneRequestPayload:
		if strings.TrimSpace(p.Description) == "" {
			return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
		}
		if err := s.checkAttachments(p.Evidence); err != nil {
			return nil, err
		}
		logDate := dateOnly(p.LogDate)
		unit.LogDate = &logDate
		unit.Description = p.Description
		unit.Evidence = p.Evidence
		unit.RequestedAmount = p.Amount

	default:
		return nil, fmt.Errorf("%w: unknown payload type", ErrInvalidInput)
	}

	return unit, nil
}

// invoiceFor derives the invoice an approval settles. Sprint contracts
// bill per sprint cycle at finish-sprint, not per log, so approving a
// sprint log creates nothing here.
func (s *ApprovalService) invoiceFor(contract *model.Contract, unit *model.WorkUnit) (*model.Invoice, error) {
	sourceID := unit.ID
	invoice := &model.Invoice{
		ContractID: contract.ID,
		SourceID:   &sourceID,
		Status:     model.InvoiceStatusPending,
	}

	switch engagement.Normalize(contract.EngagementModel) {
	case model.EngagementSprint:
		return nil, nil
	case model.EngagementDaily:
		day := dateOnly(unit.EffectiveDate())
		invoice.InvoiceType = model.InvoiceTypeDaily
		invoice.WeekStartDate = &day
		invoice.Amount = contract.PaymentTerms.DayRate
	case model.EngagementHourly:
		invoice.InvoiceType = model.InvoiceTypeNone
		invoice.Amount = contract.PaymentTerms.HourlyRate * unit.TotalHours
	default:
		invoice.InvoiceType = model.InvoiceTypeFixed
		invoice.Amount = unit.RequestedAmount
		if invoice.Amount == 0 {
			invoice.Amount = contract.PaymentTerms.FixedTotal
		}
	}

	if invoice.Amount <= 0 {
		return nil, fmt.Errorf("%w: cannot derive invoice amount", ErrInvalidState)
	}
	return invoice, nil
}

func (s *ApprovalService) checkAttachments(evidence model.Evidence) error {
	if len(evidence.Attachments) > s.cfg.WorkLog.MaxAttachments {
		return fmt.Errorf("%w: at most %d attachments per submission", ErrInvalidInput, s.cfg.WorkLog.MaxAttachments)
	}
	return nil
}

func (s *ApprovalService) getContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetContract(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return contract, nil
}

func (s *ApprovalService) getUnit(ctx context.Context, id uuid.UUID) (*model.WorkUnit, error) {
	unit, err := s.worklogs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unit, nil
}

func hasTask(checklist model.Checklist) bool {
	for _, item := range checklist {
		if strings.TrimSpace(item.Task) != "" {
			return true
		}
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
