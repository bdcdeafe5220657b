package records

import (
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/study-extract/internal/model"
)

// DiscrepancyLogHeader is the column layout of the discrepancy log.
var DiscrepancyLogHeader = []string{
	model.SourceColumn, "Status", "Field", "Extracted Value", "Correct Value", "Description",
}

// HealingReportHeader is the column layout of the healing report.
var HealingReportHeader = []string{
	"Article", "Field", "Original Value", "Healed Value", "Status",
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WriteDiscrepancyLog overwrites path with the flattened outcomes of one
// validation pass.
func WriteDiscrepancyLog(path string, outcomes []model.ValidationOutcome) error {
	var rows [][]*string
	for _, o := range outcomes {
		for _, r := range o.Flatten() {
			rows = append(rows, []*string{
				optional(r.SourceID),
				optional(string(r.Status)),
				optional(r.Field),
				optional(r.ExtractedValue),
				optional(r.CorrectValue),
				optional(r.Description),
			})
		}
	}
	if err := writeSheet(path, DiscrepancyLogHeader, rows); err != nil {
		return eris.Wrap(err, "records: write discrepancy log")
	}
	return nil
}

// ReadDiscrepancyLog returns the rows of the log at path. A missing file
// yields no rows.
func ReadDiscrepancyLog(path string) ([]model.DiscrepancyRow, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	raw, err := readSheet(path)
	if err != nil {
		return nil, eris.Wrap(err, "records: read discrepancy log")
	}
	if len(raw) == 0 {
		return nil, nil
	}

	idx := columnIndex(raw[0])
	src, okSrc := idx[model.SourceColumn]
	status, okStatus := idx["Status"]
	if !okSrc || !okStatus {
		return nil, eris.Errorf("records: discrepancy log %s lacks Source File or Status column", path)
	}
	col := func(r []string, name string) string {
		i, ok := idx[name]
		if !ok {
			return ""
		}
		return cell(r, i)
	}

	var rows []model.DiscrepancyRow
	for _, r := range raw[1:] {
		if blankRow(r) {
			continue
		}
		rows = append(rows, model.DiscrepancyRow{
			SourceID:       strings.TrimSpace(cell(r, src)),
			Status:         model.ParseValidationStatus(cell(r, status)),
			Field:          col(r, "Field"),
			ExtractedValue: col(r, "Extracted Value"),
			CorrectValue:   col(r, "Correct Value"),
			Description:    col(r, "Description"),
		})
	}
	return rows, nil
}

// FailedSources returns the distinct source ids with status FAIL, in first
// appearance order.
func FailedSources(rows []model.DiscrepancyRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if r.Status != model.StatusFail || r.SourceID == "" {
			continue
		}
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		out = append(out, r.SourceID)
	}
	return out
}

// RemoveFile deletes path, ignoring a file that is already gone.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "records: remove %s", path)
	}
	return nil
}

// WriteHealingReport overwrites path with entries. Nothing is written for an
// empty report.
func WriteHealingReport(path string, entries []model.HealingReportEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]*string, 0, len(entries))
	for _, e := range entries {
		before, after, status := e.Before, e.After, e.Status
		src, field := e.SourceID, e.Field
		rows = append(rows, []*string{&src, &field, &before, &after, &status})
	}
	if err := writeSheet(path, HealingReportHeader, rows); err != nil {
		return eris.Wrap(err, "records: write healing report")
	}
	return nil
}

// ReadHealingReport returns the entries of the report at path.
func ReadHealingReport(path string) ([]model.HealingReportEntry, error) {
	raw, err := readSheet(path)
	if err != nil {
		return nil, eris.Wrap(err, "records: read healing report")
	}
	var out []model.HealingReportEntry
	for i, r := range raw {
		if i == 0 || blankRow(r) {
			continue
		}
		out = append(out, model.HealingReportEntry{
			SourceID: cell(r, 0),
			Field:    cell(r, 1),
			Before:   cell(r, 2),
			After:    cell(r, 3),
			Status:   cell(r, 4),
		})
	}
	return out, nil
}
