package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/study-extract/internal/agent"
	"github.com/sells-group/study-extract/internal/config"
	"github.com/sells-group/study-extract/internal/corpus"
	"github.com/sells-group/study-extract/internal/model"
	"github.com/sells-group/study-extract/internal/records"
)

// --- Interactor Mock ---

type mockInteractor struct {
	mock.Mock
}

func (m *mockInteractor) Interact(ctx context.Context, docPath, prompt string) (agent.Result, error) {
	args := m.Called(ctx, docPath, prompt)
	res, _ := args.Get(0).(agent.Result)
	return res, args.Error(1)
}

func isExtraction(p string) bool   { return strings.HasPrefix(p, "Extract the following") }
func isVerification(p string) bool { return strings.HasPrefix(p, "I have extracted") }

var (
	extractionPrompt   = mock.MatchedBy(isExtraction)
	verificationPrompt = mock.MatchedBy(isVerification)
)

// --- Fixtures ---

func testSchema() *model.Schema {
	return model.NewSchema(
		[]model.SchemaField{
			{Label: "Study ID", Description: "First author + year"},
			{Label: "Sample Size (Total)", Description: "Number of patients"},
		},
		[]model.SchemaField{
			{Label: "Mortality", Description: "30-day, 90-day"},
		},
	)
}

type env struct {
	dir    string
	corpus *corpus.Corpus
	schema *model.Schema
	paths  config.RecordsConfig
}

func newEnv(t *testing.T, docs ...string) *env {
	t.Helper()
	dir := t.TempDir()
	articles := filepath.Join(dir, "Articles")
	require.NoError(t, os.MkdirAll(articles, 0o755))
	for _, d := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(articles, d), []byte("%PDF-1.4\n"), 0o644))
	}
	return &env{
		dir:    dir,
		corpus: corpus.New(articles),
		schema: testSchema(),
		paths: config.RecordsConfig{
			StorePath:          filepath.Join(dir, "extracted_studies.xlsx"),
			DiscrepancyLogPath: filepath.Join(dir, "validation_discrepancies.xlsx"),
			HealingReportPath:  filepath.Join(dir, "healing_report.xlsx"),
		},
	}
}

func (e *env) docPath(name string) string {
	return filepath.Join(e.corpus.Dir(), name)
}

// seed writes recs to the record store.
func (e *env) seed(t *testing.T, recs ...model.DocumentRecord) {
	t.Helper()
	st, err := records.Open(e.paths.StorePath, e.schema)
	require.NoError(t, err)
	for _, r := range recs {
		st.Append(r)
	}
	require.NoError(t, st.Save())
}

func (e *env) store(t *testing.T) *records.Store {
	t.Helper()
	st, err := records.Open(e.paths.StorePath, e.schema)
	require.NoError(t, err)
	return st
}

func (e *env) extractor(ai Interactor, tr *Tracker) *Extractor {
	return NewExtractor(ai, e.corpus, e.schema, e.paths.StorePath, tr)
}

func (e *env) validator(ai Interactor, tr *Tracker) *Validator {
	return NewValidator(ai, e.corpus, e.schema, e.paths.StorePath, e.paths.DiscrepancyLogPath, tr)
}

// rec builds a record from alternating name/value pairs. An empty value is
// null.
func rec(id string, kv ...string) model.DocumentRecord {
	r := model.DocumentRecord{SourceID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		var v *string
		if kv[i+1] != "" {
			v = model.StringPtr(kv[i+1])
		}
		r.Fields = append(r.Fields, model.FieldValue{Name: kv[i], Value: v})
	}
	return r
}

func extraction(id, sample, mortality string) agent.Result {
	return agent.Result{SourceID: id, Data: map[string]any{
		"Study ID":            id,
		"Sample Size (Total)": sample,
		"Mortality":           mortality,
	}}
}

func pass() agent.Result {
	return agent.Result{Data: map[string]any{"status": "PASS", "discrepancies": []any{}}}
}

func fail(field, severity string) agent.Result {
	return agent.Result{Data: map[string]any{
		"status": "FAIL",
		"discrepancies": []any{
			map[string]any{
				"field":           field,
				"extracted_value": "100",
				"correct_value":   "120",
				"severity":        severity,
				"description":     "count differs",
			},
		},
	}}
}
