package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/deeplancer/contracts-service/internal/workunit"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes the work-log export: a summary sheet plus one sheet
// per display group, mirroring the grouping the listing shows.
func (g *Generator) Generate(export workunit.Export) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, export); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range export.Groups.Items {
		sheetName := buildSheetName(group.Label, group.Key, usedNames)
		usedNames[sheetName] = struct{}{}

		file.NewSheet(sheetName)
		if err := g.writeDetail(file, sheetName, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, export workunit.Export) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Contract")
	set("B1", export.Contract.Title)
	set("A2", "Engagement model")
	set("B2", string(export.Contract.EngagementModel))
	set("A3", "Listing")
	set("B3", export.TabLabel)
	set("A4", "Entries")
	set("B4", countUnits(export.Groups))
	set("A5", "Total hours")
	set("B5", fmt.Sprintf("%.2f", sumHours(export.Groups)))

	tableRow := 7
	set(fmt.Sprintf("A%d", tableRow), export.TabLabel)
	set(fmt.Sprintf("B%d", tableRow), "Status")
	set(fmt.Sprintf("C%d", tableRow), "Logs")

	for i, group := range export.Groups.Items {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), group.Label)
		set(fmt.Sprintf("B%d", row), string(group.Status))
		set(fmt.Sprintf("C%d", row), group.LogCount)
	}

	_ = file.SetColWidth(sheet, "A", "A", 32)
	_ = file.SetColWidth(sheet, "B", "B", 16)
	_ = file.SetColWidth(sheet, "C", "C", 10)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, group workunit.Group) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Group")
	set("B1", group.Label)
	set("A2", "Status")
	set("B2", string(group.Status))
	set("A3", "Logs")
	set("B3", group.LogCount)

	tableRow := 5
	headers := []string{
		"Date",
		"Description",
		"Status",
		"Hours",
		"Problems faced",
		"Buyer comment",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, unit := range group.Units {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), formatDate(unit.EffectiveDate()))
		set(fmt.Sprintf("B%d", row), unit.Description)
		set(fmt.Sprintf("C%d", row), string(unit.Status))
		set(fmt.Sprintf("D%d", row), formatHours(unit.TotalHours))
		set(fmt.Sprintf("E%d", row), unit.ProblemsFaced)
		set(fmt.Sprintf("F%d", row), unit.BuyerComment)
	}

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "B", 48)
	_ = file.SetColWidth(sheet, "C", "C", 12)
	_ = file.SetColWidth(sheet, "D", "D", 10)
	_ = file.SetColWidth(sheet, "E", "F", 36)
	return nil
}

func buildSheetName(label, key string, used map[string]struct{}) string {
	base := strings.TrimSpace(label)
	if base == "" {
		base = key
	}
	base = sanitizeSheetName(base)

	if len(base) > 31 {
		base = base[:31]
	}

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		nameCandidate = trimmed + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = replacer.Replace(value)
	value = strings.TrimSpace(value)
	if value == "" {
		return "Sheet"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatHours(hours float64) string {
	if hours == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", hours)
}

func countUnits(groups workunit.Groups) int {
	total := 0
	for _, group := range groups.Items {
		total += group.LogCount
	}
	return total
}

func sumHours(groups workunit.Groups) float64 {
	total := 0.0
	for _, group := range groups.Items {
		for _, unit := range group.Units {
			total += unit.TotalHours
		}
	}
	return total
}
