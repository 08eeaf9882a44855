// Package workunit is the read model over submitted work: chronological
// ordering, per-model grouping and ordinal assignment. It never mutates
// anything; status changes go through the approval service.
package workunit

import (
	"sort"

	"github.com/google/uuid"

	"github.com/deeplancer/contracts-service/internal/engagement"
	"github.com/deeplancer/contracts-service/internal/model"
)

// Group is one display row: a sprint collapsed to a single entry, or a
// single unit for every other engagement model.
type Group struct {
	Key          string
	Label        string
	Status       model.WorkUnitStatus
	LogCount     int
	SprintNumber int
	Units        []model.WorkUnit
}

// Groups distinguishes "loaded and empty" from "not loaded yet": a
// result built from a fetched (possibly empty) slice is Loaded, a zero
// Groups value is not.
type Groups struct {
	Loaded bool
	Items  []Group
}

func (g Groups) Empty() bool { return g.Loaded && len(g.Items) == 0 }

// SortChronological orders units ascending by effective date. The sort
// is stable: units with equal dates keep their input order.
func SortChronological(units []model.WorkUnit) []model.WorkUnit {
	sorted := make([]model.WorkUnit, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate().Before(sorted[j].EffectiveDate())
	})
	return sorted
}

// OrdinalIndex maps unit ID to its 1-based position in the
// chronological order. Recomputed from scratch each call so an
// inserted earlier-dated unit shifts later ordinals consistently.
func OrdinalIndex(units []model.WorkUnit) map[uuid.UUID]int {
	index := make(map[uuid.UUID]int, len(units))
	for i, unit := range SortChronological(units) {
		index[unit.ID] = i + 1
	}
	return index
}

// GroupByModel groups units for display. Sprint contracts get one group
// per distinct sprint number, with status taken from the first member
// and LogCount equal to the member count; every other model gets one
// group per unit, labeled with its chronological ordinal.
func GroupByModel(units []model.WorkUnit, m model.EngagementModel) Groups {
	result := Groups{Loaded: true}
	if len(units) == 0 {
		return result
	}

	sorted := SortChronological(units)

	if engagement.Normalize(m) == model.EngagementSprint {
		byKey := make(map[string]int)
		for _, unit := range sorted {
			key := engagement.GroupKey(m, unit)
			if pos, ok := byKey[key]; ok {
				group := &result.Items[pos]
				group.LogCount++
				group.Units = append(group.Units, unit)
				continue
			}
			sprintNo := 0
			if unit.SprintNumber != nil {
				sprintNo = *unit.SprintNumber
			}
			result.Items = append(result.Items, Group{
				Key:          key,
				Label:        engagement.UnitLabel(m, unit, 0),
				Status:       unit.Status,
				LogCount:     1,
				SprintNumber: sprintNo,
				Units:        []model.WorkUnit{unit},
			})
			byKey[key] = len(result.Items) - 1
		}
		return result
	}

	for i, unit := range sorted {
		result.Items = append(result.Items, Group{
			Key:      engagement.GroupKey(m, unit),
			Label:    engagement.UnitLabel(m, unit, i+1),
			Status:   unit.Status,
			LogCount: 1,
			Units:    []model.WorkUnit{unit},
		})
	}
	return result
}
