package model

import (
	"encoding/json"
	"strings"
)

// ValidationStatus is the verdict for one document in one validation pass.
type ValidationStatus string

const (
	StatusPass   ValidationStatus = "PASS"
	StatusFail   ValidationStatus = "FAIL"
	StatusNoData ValidationStatus = "NO DATA"
	StatusError  ValidationStatus = "ERROR"
)

// ParseValidationStatus normalises a status read back from the discrepancy
// log. Unknown values map to ERROR.
func ParseValidationStatus(s string) ValidationStatus {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", " "))) {
	case "PASS":
		return StatusPass
	case "FAIL":
		return StatusFail
	case "NO DATA":
		return StatusNoData
	default:
		return StatusError
	}
}

// Severity grades a discrepancy.
type Severity string

const (
	SeverityMinor    Severity = "MINOR"
	SeverityCritical Severity = "CRITICAL"
)

// Normalize maps anything other than MINOR to CRITICAL, so an unspecified
// severity is never treated as harmless.
func (s Severity) Normalize() Severity {
	if strings.EqualFold(strings.TrimSpace(string(s)), string(SeverityMinor)) {
		return SeverityMinor
	}
	return SeverityCritical
}

// Discrepancy is one field-level mismatch reported by the agent.
type Discrepancy struct {
	Field          string   `json:"field"`
	ExtractedValue string   `json:"extracted_value"`
	CorrectValue   string   `json:"correct_value"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
}

// UnmarshalJSON accepts any scalar for the value fields; agents return
// numbers as often as strings.
func (d *Discrepancy) UnmarshalJSON(data []byte) error {
	var aux struct {
		Field          any `json:"field"`
		ExtractedValue any `json:"extracted_value"`
		CorrectValue   any `json:"correct_value"`
		Severity       any `json:"severity"`
		Description    any `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	text := func(v any) string {
		if p := Stringify(v); p != nil {
			return *p
		}
		return ""
	}
	d.Field = text(aux.Field)
	d.ExtractedValue = text(aux.ExtractedValue)
	d.CorrectValue = text(aux.CorrectValue)
	d.Severity = Severity(text(aux.Severity))
	d.Description = text(aux.Description)
	return nil
}

// ValidationOutcome is the result of validating one record.
type ValidationOutcome struct {
	SourceID      string           `json:"source_id"`
	Status        ValidationStatus `json:"status"`
	Discrepancies []Discrepancy    `json:"discrepancies"`
	Message       string           `json:"message,omitempty"`
}

// DiscrepancyRow is one flattened line of the discrepancy log.
type DiscrepancyRow struct {
	SourceID       string
	Status         ValidationStatus
	Field          string
	ExtractedValue string
	CorrectValue   string
	Description    string
}

// Flatten expands an outcome into log rows: one per discrepancy, or a single
// summary row when there are none.
func (o ValidationOutcome) Flatten() []DiscrepancyRow {
	if len(o.Discrepancies) == 0 {
		desc := "None"
		switch {
		case o.Status == StatusNoData:
			desc = "Row has no extracted data points to verify"
		case o.Message != "":
			desc = o.Message
		}
		return []DiscrepancyRow{{SourceID: o.SourceID, Status: o.Status, Description: desc}}
	}
	rows := make([]DiscrepancyRow, 0, len(o.Discrepancies))
	for _, d := range o.Discrepancies {
		rows = append(rows, DiscrepancyRow{
			SourceID:       o.SourceID,
			Status:         o.Status,
			Field:          d.Field,
			ExtractedValue: d.ExtractedValue,
			CorrectValue:   d.CorrectValue,
			Description:    d.Description,
		})
	}
	return rows
}

// HealStatusFixed marks a field whose value changed during healing.
const HealStatusFixed = "FIXED"

// HealingReportEntry is one field that changed value during healing.
type HealingReportEntry struct {
	SourceID string `json:"source_id"`
	Field    string `json:"field"`
	Before   string `json:"before"`
	After    string `json:"after"`
	Status   string `json:"status"`
}
