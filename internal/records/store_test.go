package records

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/study-extract/internal/model"
)

func testSchema() *model.Schema {
	return model.NewSchema(
		[]model.SchemaField{{Label: "First Author (Year)"}, {Label: "Sample Size"}},
		[]model.SchemaField{{Label: "Mortality"}},
	)
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "store.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func rec(id string, kv ...string) model.DocumentRecord {
	r := model.DocumentRecord{SourceID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		fv := model.FieldValue{Name: kv[i]}
		if kv[i+1] != "" {
			fv.Value = model.StringPtr(kv[i+1])
		}
		r.Fields = append(r.Fields, fv)
	}
	return r
}

func TestOpen_MissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "none.xlsx"), testSchema())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.SourceIDs())
}

func TestOpen_MissingSourceColumn(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Title", "Sample Size"},
		{"Something", "40"},
	})

	s, err := Open(path, testSchema())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreRead))
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())

	s, err = OpenOrEmpty(path, testSchema())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestOpenOrEmpty_SaveKeepsUnreadableFile(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Title", "Sample Size"},
		{"old.pdf", "40"},
	})

	s, err := OpenOrEmpty(path, testSchema())
	require.NoError(t, err)
	s.Append(rec("a2020.pdf", "Sample Size", "120"))
	require.NoError(t, s.Save())

	reloaded, err := Open(path, testSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"a2020.pdf"}, reloaded.SourceIDs())

	aside, err := filepath.Glob(path + ".unreadable-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	raw, err := readSheet(aside[0])
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Title", "Sample Size"}, {"old.pdf", "40"}}, raw)

	// Later saves overwrite in place.
	require.NoError(t, s.Save())
	aside, err = filepath.Glob(path + ".unreadable-*")
	require.NoError(t, err)
	assert.Len(t, aside, 1)
}

func TestOpen_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, err := Open(path, testSchema())
	assert.True(t, errors.Is(err, ErrStoreRead))
}

func TestOpen_ReadsRowsAndNulls(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Source File", "First Author (Year)", "Sample Size", "Mortality"},
		{"a.pdf", "Smith (2020)", "", "12%"},
		{"", "Barkyoumb (2025)", "40", ""},
	})

	s, err := Open(path, testSchema())
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a.pdf"}, s.SourceIDs())

	recs := s.Records()
	assert.Equal(t, "a.pdf", recs[0].SourceID)
	v, ok := recs[0].Get("Sample Size")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "", recs[1].SourceID)
	v, _ = recs[1].Get("First Author (Year)")
	require.NotNil(t, v)
	assert.Equal(t, "Barkyoumb (2025)", *v)
}

func TestStore_AppendSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.xlsx")
	s, err := Open(path, testSchema())
	require.NoError(t, err)

	s.Append(rec("a.pdf", "First Author (Year)", "Smith (2020)", "Sample Size", "120", "Mortality", ""))
	s.Append(rec("b.pdf", "First Author (Year)", "Jones (2019)", "Sample Size", "", "Mortality", "3%"))
	require.NoError(t, s.Save())

	reloaded, err := Open(path, testSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, reloaded.SourceIDs())

	got, ok := reloaded.Get("b.pdf")
	require.True(t, ok)
	v, _ := got.Get("Mortality")
	require.NotNil(t, v)
	assert.Equal(t, "3%", *v)
	v, _ = got.Get("Sample Size")
	assert.Nil(t, v)
}

func TestStore_AppendReplacesSameSource(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.xlsx"), testSchema())
	require.NoError(t, err)

	s.Append(rec("a.pdf", "Sample Size", "10"))
	s.Append(rec("b.pdf", "Sample Size", "20"))
	s.Append(rec("a.pdf", "Sample Size", "11"))

	assert.Equal(t, []string{"b.pdf", "a.pdf"}, s.SourceIDs())
	got, _ := s.Get("a.pdf")
	v, _ := got.Get("Sample Size")
	assert.Equal(t, "11", *v)
}

func TestStore_PreservesExtraColumns(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Sl.no", "Source File", "Reviewer Notes", "Sample Size"},
		{"1", "a.pdf", "check table 2", "40"},
	})
	s, err := Open(path, testSchema())
	require.NoError(t, err)

	s.Append(rec("b.pdf", "Sample Size", "50", "Mortality", "1%"))
	require.NoError(t, s.Save())

	raw, err := readSheet(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sl.no", "Source File", "Reviewer Notes", "Sample Size", "Mortality"}, raw[0])
	assert.Equal(t, "check table 2", raw[1][2])

	got, _ := s.Get("a.pdf")
	_, hasMeta := got.Get("Sl.no")
	assert.False(t, hasMeta)
	_, hasNotes := got.Get("Reviewer Notes")
	assert.True(t, hasNotes)
}

func TestStore_CoversSubstring(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.xlsx"), testSchema())
	require.NoError(t, err)
	s.Append(rec("Articles/smith_2020.pdf"))

	assert.True(t, s.Covers("smith_2020.pdf"))
	assert.True(t, s.Covers("smith_2020"))
	assert.False(t, s.Covers("jones_2019.pdf"))
	assert.False(t, s.Covers(""))
	assert.False(t, s.Has("smith_2020.pdf"))
}

func TestStore_RemoveAndSnapshot(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "store.xlsx"), testSchema())
	require.NoError(t, err)
	s.Append(rec("a.pdf", "Mortality", "50%"))
	s.Append(rec("b.pdf", "Mortality", "10%"))
	s.Append(rec("c.pdf", "Mortality", "5%"))

	snap := s.Snapshot([]string{"a.pdf", "c.pdf", "missing.pdf"})
	require.Len(t, snap, 2)

	assert.Equal(t, 2, s.Remove("a.pdf", "c.pdf"))
	assert.Equal(t, []string{"b.pdf"}, s.SourceIDs())

	v, _ := snap["a.pdf"].Get("Mortality")
	require.NotNil(t, v)
	assert.Equal(t, "50%", *v)
}

func TestStore_RemoveKeepsUnkeyedRows(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Source File", "First Author (Year)"},
		{"", "Barkyoumb (2025)"},
		{"a.pdf", "Smith (2020)"},
	})
	s, err := Open(path, testSchema())
	require.NoError(t, err)

	assert.Equal(t, 0, s.Remove(""))
	assert.Equal(t, 1, s.Remove("a.pdf"))
	assert.Equal(t, 1, s.Len())
}
