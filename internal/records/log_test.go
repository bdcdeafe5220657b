package records

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/study-extract/internal/model"
)

func TestDiscrepancyLog_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	outcomes := []model.ValidationOutcome{
		{SourceID: "a.pdf", Status: model.StatusPass},
		{SourceID: "b.pdf", Status: model.StatusFail, Discrepancies: []model.Discrepancy{
			{Field: "Mortality", ExtractedValue: "50%", CorrectValue: "52%", Severity: model.SeverityCritical, Description: "table 3"},
			{Field: "Country", ExtractedValue: "USA", CorrectValue: "United States", Severity: model.SeverityMinor},
		}},
		{SourceID: "c.pdf", Status: model.StatusNoData},
	}
	require.NoError(t, WriteDiscrepancyLog(path, outcomes))

	rows, err := ReadDiscrepancyLog(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, model.StatusPass, rows[0].Status)
	assert.Equal(t, "None", rows[0].Description)
	assert.Equal(t, "b.pdf", rows[1].SourceID)
	assert.Equal(t, "Mortality", rows[1].Field)
	assert.Equal(t, "52%", rows[1].CorrectValue)
	assert.Equal(t, model.StatusNoData, rows[3].Status)

	assert.Equal(t, []string{"b.pdf"}, FailedSources(rows))
}

func TestDiscrepancyLog_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	require.NoError(t, WriteDiscrepancyLog(path, []model.ValidationOutcome{
		{SourceID: "a.pdf", Status: model.StatusFail, Discrepancies: []model.Discrepancy{{Field: "X"}}},
	}))
	require.NoError(t, WriteDiscrepancyLog(path, []model.ValidationOutcome{
		{SourceID: "a.pdf", Status: model.StatusPass},
	}))

	rows, err := ReadDiscrepancyLog(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, FailedSources(rows))
}

func TestReadDiscrepancyLog_Missing(t *testing.T) {
	rows, err := ReadDiscrepancyLog(filepath.Join(t.TempDir(), "none.xlsx"))
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestReadDiscrepancyLog_MissingColumns(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"File", "Result"}, {"a.pdf", "FAIL"}})
	_, err := ReadDiscrepancyLog(path)
	assert.Error(t, err)
}

func TestFailedSources_Distinct(t *testing.T) {
	rows := []model.DiscrepancyRow{
		{SourceID: "b.pdf", Status: model.StatusFail},
		{SourceID: "a.pdf", Status: model.StatusPass},
		{SourceID: "b.pdf", Status: model.StatusFail},
		{SourceID: "c.pdf", Status: model.StatusFail},
		{SourceID: "", Status: model.StatusFail},
	}
	assert.Equal(t, []string{"b.pdf", "c.pdf"}, FailedSources(rows))
}

func TestHealingReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, WriteHealingReport(path, nil))
	assert.NoFileExists(t, path)

	entries := []model.HealingReportEntry{
		{SourceID: "a.pdf", Field: "Mortality", Before: "50%", After: "52%", Status: model.HealStatusFixed},
		{SourceID: "a.pdf", Field: "Country", Before: model.NullToken, After: "Kenya", Status: model.HealStatusFixed},
	}
	require.NoError(t, WriteHealingReport(path, entries))

	raw, err := readSheet(path)
	require.NoError(t, err)
	assert.Equal(t, HealingReportHeader, raw[0])

	got, err := ReadHealingReport(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestRemoveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	require.NoError(t, RemoveFile(path))
	require.NoError(t, WriteDiscrepancyLog(path, nil))
	assert.FileExists(t, path)
	require.NoError(t, RemoveFile(path))
	assert.NoFileExists(t, path)
}
