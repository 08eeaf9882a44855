// Package engagement defines the per-model policy for grouping,
// labeling and ordering work units. Everything here is pure: the same
// inputs always produce the same labels, and nothing is cached by ID
// across refetches, so ordinals stay consistent when an earlier-dated
// unit shows up later.
package engagement

import (
	"fmt"

	"github.com/deeplancer/contracts-service/internal/model"
)

// Normalize maps unknown engagement models to fixed semantics.
func Normalize(m model.EngagementModel) model.EngagementModel {
	switch m {
	case model.EngagementHourly, model.EngagementDaily, model.EngagementSprint, model.EngagementFixed:
		return m
	default:
		return model.EngagementFixed
	}
}

// GroupKey returns the key a unit is grouped under: sprints collapse
// into one group per sprint number, every other model keeps one group
// per unit.
func GroupKey(m model.EngagementModel, unit model.WorkUnit) string {
	if Normalize(m) == model.EngagementSprint && unit.SprintNumber != nil {
		return fmt.Sprintf("sprint-%d", *unit.SprintNumber)
	}
	return fmt.Sprintf("log-%s", unit.ID)
}

// UnitLabel builds the human-facing label for a unit. index is the
// 1-based position of the unit in the contract's chronologically
// sorted list; it is recomputed from the current sort order on every
// call, never remembered per unit.
func UnitLabel(m model.EngagementModel, unit model.WorkUnit, index int) string {
	switch Normalize(m) {
	case model.EngagementSprint:
		n := 0
		if unit.SprintNumber != nil {
			n = *unit.SprintNumber
		}
		return fmt.Sprintf("Sprint #%d", n)
	case model.EngagementDaily:
		return fmt.Sprintf("Day %d", index)
	default:
		return fmt.Sprintf("Work Log %d", index)
	}
}

// TabLabel names the work listing for a contract.
func TabLabel(m model.EngagementModel) string {
	if Normalize(m) == model.EngagementHourly {
		return "Timesheets"
	}
	return "Work Logs"
}
