package pipeline

import (
	"github.com/sells-group/study-extract/internal/model"
)

// Diff compares the pre- and post-healing images of the ids in order. Every
// field present in both images whose display value changed yields a FIXED
// entry. Ids missing from either image contribute nothing.
func Diff(pre, post map[string]model.DocumentRecord, order []string) []model.HealingReportEntry {
	var entries []model.HealingReportEntry
	for _, id := range order {
		before, ok := pre[id]
		if !ok {
			continue
		}
		after, ok := post[id]
		if !ok {
			continue
		}
		for _, f := range before.Fields {
			now, ok := after.Get(f.Name)
			if !ok {
				continue
			}
			b, a := model.Display(f.Value), model.Display(now)
			if b == a {
				continue
			}
			entries = append(entries, model.HealingReportEntry{
				SourceID: id,
				Field:    f.Name,
				Before:   b,
				After:    a,
				Status:   model.HealStatusFixed,
			})
		}
	}
	return entries
}
