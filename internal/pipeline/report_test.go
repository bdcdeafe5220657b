package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/study-extract/internal/model"
)

func TestDiff(t *testing.T) {
	pre := map[string]model.DocumentRecord{
		"a.pdf": rec("a.pdf", "Study ID", "A 2020", "Sample Size (Total)", "100", "Mortality", ""),
		"b.pdf": rec("b.pdf", "Study ID", "B 2021"),
		"c.pdf": rec("c.pdf", "Study ID", "C 2022"),
	}
	post := map[string]model.DocumentRecord{
		"a.pdf": rec("a.pdf", "Study ID", "A 2020", "Sample Size (Total)", "120", "Mortality", "2%"),
		"b.pdf": rec("b.pdf", "Study ID", "B 2021"),
	}

	got := Diff(pre, post, []string{"a.pdf", "b.pdf", "c.pdf"})
	assert.Equal(t, []model.HealingReportEntry{
		{SourceID: "a.pdf", Field: "Sample Size (Total)", Before: "100", After: "120", Status: model.HealStatusFixed},
		{SourceID: "a.pdf", Field: "Mortality", Before: "NULL", After: "2%", Status: model.HealStatusFixed},
	}, got)
}

func TestDiff_ValueRemovedBecomesNull(t *testing.T) {
	pre := map[string]model.DocumentRecord{"a.pdf": rec("a.pdf", "Mortality", "5%")}
	post := map[string]model.DocumentRecord{"a.pdf": rec("a.pdf", "Mortality", "")}

	got := Diff(pre, post, []string{"a.pdf"})
	assert.Equal(t, []model.HealingReportEntry{
		{SourceID: "a.pdf", Field: "Mortality", Before: "5%", After: "NULL", Status: model.HealStatusFixed},
	}, got)
}

func TestDiff_FieldOnlyInOneImageIgnored(t *testing.T) {
	pre := map[string]model.DocumentRecord{"a.pdf": rec("a.pdf", "Old", "x")}
	post := map[string]model.DocumentRecord{"a.pdf": rec("a.pdf", "New", "y")}
	assert.Empty(t, Diff(pre, post, []string{"a.pdf"}))
}
