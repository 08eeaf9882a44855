package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deeplancer/contracts-service/internal/config"
	"github.com/deeplancer/contracts-service/internal/engagement"
	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/reconcile"
	"github.com/deeplancer/contracts-service/internal/repository"
	"github.com/deeplancer/contracts-service/internal/workunit"
)

type DocumentGenerator interface {
	Generate(doc model.InvoiceDocument) ([]byte, error)
}

type ExportGenerator interface {
	Generate(export workunit.Export) ([]byte, error)
}

// ViewService serves the read side: grouped work-log listings,
// invoices with their reconciled identity, and the file exports built
// from exactly the same derivations.
type ViewService struct {
	contracts *repository.ContractRepository
	worklogs  *repository.WorkLogRepository
	invoices  *repository.InvoiceRepository
	pdf       DocumentGenerator
	excel     ExportGenerator
	cfg       *config.Config
}

func NewViewService(
	contracts *repository.ContractRepository,
	worklogs *repository.WorkLogRepository,
	invoices *repository.InvoiceRepository,
	pdf DocumentGenerator,
	excel ExportGenerator,
	cfg *config.Config,
) *ViewService {
	return &ViewService{
		contracts: contracts,
		worklogs:  worklogs,
		invoices:  invoices,
		pdf:       pdf,
		excel:     excel,
		cfg:       cfg,
	}
}

type WorkLogListing struct {
	TabLabel string
	Groups   workunit.Groups
}

type InvoiceView struct {
	Invoice  model.Invoice
	Title    string
	Subtext  string
	Sequence int
}

type FileResult struct {
	FileName string
	Content  []byte
}

func (s *ViewService) ListWorkLogs(ctx context.Context, contractID uuid.UUID, principal model.Principal) (*WorkLogListing, error) {
	contract, err := s.contractForViewer(ctx, contractID, principal)
	if err != nil {
		return nil, err
	}
	units, err := s.worklogs.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	return &WorkLogListing{
		TabLabel: engagement.TabLabel(contract.EngagementModel),
		Groups:   workunit.GroupByModel(units, contract.EngagementModel),
	}, nil
}

// ListInvoices loads the invoice and work-unit collections together so
// a returned invoice can never reference a unit state the same
// response does not reflect.
func (s *ViewService) ListInvoices(ctx context.Context, contractID uuid.UUID, principal model.Principal) ([]InvoiceView, error) {
	contract, err := s.contractForViewer(ctx, contractID, principal)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	units, err := s.worklogs.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	views := make([]InvoiceView, 0, len(invoices))
	for _, invoice := range invoices {
		res := reconcile.Resolve(invoice, *contract, units, invoices)
		views = append(views, InvoiceView{
			Invoice:  invoice,
			Title:    res.Title,
			Subtext:  res.Subtext,
			Sequence: res.Sequence,
		})
	}
	return views, nil
}

// InvoiceDocument renders the downloadable invoice. The title and
// subtext come from the same Resolve call the listing uses; there is
// no second derivation to drift.
func (s *ViewService) InvoiceDocument(ctx context.Context, invoiceID uuid.UUID, principal model.Principal) (*FileResult, error) {
	invoice, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	contract, err := s.contractForViewer(ctx, invoice.ContractID, principal)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	units, err := s.worklogs.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	res := reconcile.Resolve(*invoice, *contract, units, invoices)
	content, err := s.pdf.Generate(model.InvoiceDocument{
		Invoice:  *invoice,
		Contract: *contract,
		Title:    res.Title,
		Subtext:  res.Subtext,
		Currency: s.cfg.Escrow.Currency,
	})
	if err != nil {
		return nil, err
	}

	fileName := fmt.Sprintf("invoice-%s-%s.pdf", sanitizeFileName(res.Title), invoice.CreatedAt.Format("20060102"))
	return &FileResult{FileName: fileName, Content: content}, nil
}

func (s *ViewService) ExportWorkLogs(ctx context.Context, contractID uuid.UUID, principal model.Principal) (*FileResult, error) {
	contract, err := s.contractForViewer(ctx, contractID, principal)
	if err != nil {
		return nil, err
	}
	units, err := s.worklogs.ListByContract(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	export := workunit.Export{
		Contract: *contract,
		TabLabel: engagement.TabLabel(contract.EngagementModel),
		Groups:   workunit.GroupByModel(units, contract.EngagementModel),
	}
	content, err := s.excel.Generate(export)
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(contract.Title)
	if name == "" {
		name = contract.ID.String()
	}
	fileName := fmt.Sprintf("worklogs-%s-%s.xlsx", strings.ToLower(string(contract.EngagementModel)), name)
	return &FileResult{FileName: fileName, Content: content}, nil
}

func (s *ViewService) contractForViewer(ctx context.Context, contractID uuid.UUID, principal model.Principal) (*model.Contract, error) {
	contract, err := s.contracts.GetContract(ctx, contractID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if principal.IsAdmin() {
		return contract, nil
	}
	if contract.BuyerID != principal.UserID && contract.ExpertID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	return contract, nil
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '_':
			result = append(result, r)
		default:
			if len(result) > 0 && result[len(result)-1] != '-' {
				result = append(result, '-')
			}
		}
	}
	return strings.Trim(string(result), "-")
}
