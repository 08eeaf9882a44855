// Package reconcile derives invoice identity (title, subtext and
// sequence number) from the contract's engagement model and whatever
// the invoice row actually stores. Invoices do not always carry a link
// to the work unit that produced them, so resolution walks a fallback
// chain instead of requiring one. The result is recomputed at view
// time and never persisted.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/deeplancer/contracts-service/internal/engagement"
	"github.com/deeplancer/contracts-service/internal/model"
	"github.com/deeplancer/contracts-service/internal/workunit"
)

const dateLayout = "Jan 2, 2006"

type Kind string

const (
	KindSprint   Kind = "sprint"
	KindDaily    Kind = "daily"
	KindFixed    Kind = "fixed"
	KindFallback Kind = "fallback"
)

// Resolution is the single derivation both the list view and the
// document export consume. Sequence is the sprint or day number when
// one was resolved, zero otherwise.
type Resolution struct {
	Kind     Kind
	Title    string
	Subtext  string
	Sequence int
}

// isSprintInvoice applies the sprint classification rule: an explicit
// sprint type, or a sprint contract whose invoice was not explicitly
// typed as something else.
func isSprintInvoice(inv model.Invoice, contractModel model.EngagementModel) bool {
	if inv.InvoiceType == model.InvoiceTypeSprint {
		return true
	}
	return engagement.Normalize(contractModel) == model.EngagementSprint &&
		inv.InvoiceType != model.InvoiceTypeDaily &&
		inv.InvoiceType != model.InvoiceTypeFixed
}

// Resolve derives the display identity of an invoice. units are the
// contract's work units, invoices the contract's full invoice list;
// both may be nil when the caller has nothing loaded, in which case the
// fallback branches still produce a stable label.
func Resolve(inv model.Invoice, contract model.Contract, units []model.WorkUnit, invoices []model.Invoice) Resolution {
	contractModel := engagement.Normalize(contract.EngagementModel)

	if isSprintInvoice(inv, contractModel) {
		n := sprintSequence(inv, contract, invoices)
		return Resolution{
			Kind:     KindSprint,
			Title:    fmt.Sprintf("Sprint #%d Invoice", n),
			Subtext:  inv.CreatedAt.Format(dateLayout),
			Sequence: n,
		}
	}

	if contractModel == model.EngagementDaily {
		if res, ok := resolveDaily(inv, units); ok {
			return res
		}
		return Resolution{
			Kind:    KindDaily,
			Title:   "Daily Invoice",
			Subtext: inv.CreatedAt.Format(dateLayout),
		}
	}

	if inv.InvoiceType == model.InvoiceTypeFixed || contractModel == model.EngagementFixed {
		return Resolution{
			Kind:    KindFixed,
			Title:   "Invoice",
			Subtext: "Project Payment",
		}
	}

	return Resolution{
		Kind:    KindFallback,
		Title:   "Contract Invoice",
		Subtext: "Services",
	}
}

// sprintSequence is the 1-based position of the invoice in the
// chronologically sorted sprint invoices of the contract. An invoice
// missing from that set falls back to the contract's current sprint
// number, then to 1.
func sprintSequence(inv model.Invoice, contract model.Contract, invoices []model.Invoice) int {
	var sprints []model.Invoice
	for _, candidate := range invoices {
		if isSprintInvoice(candidate, contract.EngagementModel) {
			sprints = append(sprints, candidate)
		}
	}
	sort.SliceStable(sprints, func(i, j int) bool {
		return sprints[i].CreatedAt.Before(sprints[j].CreatedAt)
	})
	for i, candidate := range sprints {
		if candidate.ID == inv.ID {
			return i + 1
		}
	}
	if contract.PaymentTerms.CurrentSprintNumber > 0 {
		return contract.PaymentTerms.CurrentSprintNumber
	}
	return 1
}

// resolveDaily finds the originating day: first by source_id against
// the day-index map, then by date key from week_start_date or the date
// portion of created_at.
func resolveDaily(inv model.Invoice, units []model.WorkUnit) (Resolution, bool) {
	sorted := workunit.SortChronological(units)
	index := make(map[uuid.UUID]int, len(sorted))
	byDate := make(map[string]int, len(sorted))
	dates := make(map[int]time.Time, len(sorted))
	for i, unit := range sorted {
		index[unit.ID] = i + 1
		key := unit.EffectiveDate().Format("2006-01-02")
		if _, seen := byDate[key]; !seen {
			byDate[key] = i + 1
		}
		dates[i+1] = unit.EffectiveDate()
	}

	if inv.SourceID != nil {
		if n, ok := index[*inv.SourceID]; ok {
			return dayResolution(n, dates[n]), true
		}
	}

	var key string
	if inv.WeekStartDate != nil && !inv.WeekStartDate.IsZero() {
		key = inv.WeekStartDate.Format("2006-01-02")
	} else if !inv.CreatedAt.IsZero() {
		key = inv.CreatedAt.Format("2006-01-02")
	}
	if key != "" {
		if n, ok := byDate[key]; ok {
			return dayResolution(n, dates[n]), true
		}
	}
	return Resolution{}, false
}

func dayResolution(n int, date time.Time) Resolution {
	return Resolution{
		Kind:     KindDaily,
		Title:    fmt.Sprintf("Day %d Invoice", n),
		Subtext:  date.Format(dateLayout),
		Sequence: n,
	}
}
