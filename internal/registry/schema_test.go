package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	cols := s.Columns()
	require.Len(t, cols, 41)
	assert.Equal(t, "Study ID", cols[0])
	assert.Equal(t, "Other Notes", cols[len(cols)-1])
	assert.True(t, s.Has("Surgical Site Infection (SSI)"))
}

func TestLoadSchemaFromFile_EmptyPathUsesDefault(t *testing.T) {
	s, err := LoadSchemaFromFile("")
	require.NoError(t, err)
	assert.Len(t, s.Columns(), 41)
}

func TestLoadSchemaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
study_characteristics:
  - label: Study ID
    description: First author + year
  - label: Journal
    description: Source of publication
outcomes:
  - label: Mortality
    description: 30-day, 90-day, 1-year
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadSchemaFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Study ID", "Journal", "Mortality"}, s.Columns())
	assert.Equal(t, "Source of publication", s.StudyCharacteristics[1].Description)
}

func TestLoadSchemaFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no fields", "outcomes: []\n", "declares no fields"},
		{"missing label", "outcomes:\n  - description: x\n", "without a label"},
		{"reserved label", "outcomes:\n  - label: Source File\n", "reserved"},
		{"bad yaml", "outcomes: [\n", "parse schema"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644), i)

			_, err := LoadSchemaFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := LoadSchemaFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
