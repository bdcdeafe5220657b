// Package records persists extracted records and the derived discrepancy
// log and healing report as xlsx workbooks.
package records

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/study-extract/internal/model"
)

// ErrStoreRead marks a store file that exists but cannot be used: it does
// not parse or it lacks the Source File column. Callers treat it as an empty
// store.
var ErrStoreRead = eris.New("record store unreadable")

// metaColumns are bookkeeping columns added by spreadsheet tools. They are
// preserved on disk but never treated as extracted fields.
var metaColumns = map[string]struct{}{
	"Sl.no":      {},
	"Unnamed: 0": {},
}

func isMeta(col string) bool {
	_, ok := metaColumns[col]
	return ok
}

// Store is the xlsx-backed table of extracted records keyed by Source File.
// It is read fully on Open and rewritten wholesale by Save. Columns it does
// not know about are carried through untouched.
type Store struct {
	path   string
	header []string
	rows   [][]*string
	// unreadable marks a store opened over a file it could not load. The
	// file is moved aside before the first Save.
	unreadable bool
}

// Open loads the store at path. A missing file yields an empty store seeded
// with the schema columns. An unusable file also yields that empty store,
// together with an error wrapping ErrStoreRead.
func Open(path string, schema *model.Schema) (*Store, error) {
	s := &Store{path: path, header: append([]string{model.SourceColumn}, schema.Columns()...)}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	raw, err := readSheet(path)
	if err != nil {
		return s, eris.Wrapf(errors.Join(ErrStoreRead, err), "records: open %s", path)
	}
	if len(raw) == 0 {
		return s, nil
	}

	header := raw[0]
	if _, ok := columnIndex(header)[model.SourceColumn]; !ok {
		return s, eris.Wrapf(ErrStoreRead, "records: %s has no %q column", path, model.SourceColumn)
	}

	loaded := &Store{path: path, header: append([]string(nil), header...)}
	for _, r := range raw[1:] {
		if blankRow(r) {
			continue
		}
		values := make([]*string, len(header))
		for i := range header {
			if v := cell(r, i); strings.TrimSpace(v) != "" {
				values[i] = &v
			}
		}
		loaded.rows = append(loaded.rows, values)
	}
	return loaded, nil
}

// OpenOrEmpty is Open with ErrStoreRead downgraded to a warning.
func OpenOrEmpty(path string, schema *model.Schema) (*Store, error) {
	s, err := Open(path, schema)
	if errors.Is(err, ErrStoreRead) {
		zap.L().Warn("record store unreadable, starting empty", zap.String("path", path), zap.Error(err))
		s.unreadable = true
		return s, nil
	}
	return s, err
}

func blankRow(r []string) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

func (s *Store) sourceIndex() int {
	for i, h := range s.header {
		if h == model.SourceColumn {
			return i
		}
	}
	return 0
}

func (s *Store) sourceOf(row []*string) string {
	if v := row[s.sourceIndex()]; v != nil {
		return strings.TrimSpace(*v)
	}
	return ""
}

// Records returns copies of every row in file order. Rows without a Source
// File are included with an empty SourceID.
func (s *Store) Records() []model.DocumentRecord {
	out := make([]model.DocumentRecord, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, s.toRecord(row))
	}
	return out
}

func (s *Store) toRecord(row []*string) model.DocumentRecord {
	rec := model.DocumentRecord{SourceID: s.sourceOf(row)}
	for i, h := range s.header {
		if h == model.SourceColumn || isMeta(h) || h == "" {
			continue
		}
		var val *string
		if row[i] != nil {
			v := *row[i]
			val = &v
		}
		rec.Fields = append(rec.Fields, model.FieldValue{Name: h, Value: val})
	}
	return rec
}

// SourceIDs returns the non-empty Source File values in file order.
func (s *Store) SourceIDs() []string {
	var ids []string
	for _, row := range s.rows {
		if id := s.sourceOf(row); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Has reports whether a row with exactly this Source File exists.
func (s *Store) Has(sourceID string) bool {
	for _, row := range s.rows {
		if s.sourceOf(row) == sourceID {
			return true
		}
	}
	return false
}

// Covers reports whether name occurs inside any recorded Source File, so a
// document recorded under a path or extension variant counts as processed.
func (s *Store) Covers(name string) bool {
	if name == "" {
		return false
	}
	for _, id := range s.SourceIDs() {
		if strings.Contains(id, name) {
			return true
		}
	}
	return false
}

// Get returns a copy of the record for sourceID.
func (s *Store) Get(sourceID string) (model.DocumentRecord, bool) {
	for _, row := range s.rows {
		if s.sourceOf(row) == sourceID {
			return s.toRecord(row), true
		}
	}
	return model.DocumentRecord{}, false
}

// Append adds rec as a new last row. An existing row with the same
// SourceID is removed first, so the store never holds two rows for one
// document. Fields unknown to the header become new columns.
func (s *Store) Append(rec model.DocumentRecord) {
	if rec.SourceID != "" {
		s.Remove(rec.SourceID)
	}

	idx := columnIndex(s.header)
	for _, f := range rec.Fields {
		if _, ok := idx[f.Name]; ok || f.Name == "" {
			continue
		}
		idx[f.Name] = len(s.header)
		s.header = append(s.header, f.Name)
		for i := range s.rows {
			s.rows[i] = append(s.rows[i], nil)
		}
	}

	row := make([]*string, len(s.header))
	id := rec.SourceID
	row[s.sourceIndex()] = &id
	for _, f := range rec.Fields {
		if f.Name == model.SourceColumn || f.Value == nil {
			continue
		}
		v := *f.Value
		row[idx[f.Name]] = &v
	}
	s.rows = append(s.rows, row)
}

// Remove deletes every row whose Source File is in ids and returns how many
// rows were dropped.
func (s *Store) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.rows[:0]
	removed := 0
	for _, row := range s.rows {
		if _, ok := drop[s.sourceOf(row)]; ok && s.sourceOf(row) != "" {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	for i := len(kept); i < len(s.rows); i++ {
		s.rows[i] = nil
	}
	s.rows = kept
	return removed
}

// Snapshot returns deep copies of the records for ids that are present.
func (s *Store) Snapshot(ids []string) map[string]model.DocumentRecord {
	out := make(map[string]model.DocumentRecord, len(ids))
	for _, id := range ids {
		if rec, ok := s.Get(id); ok {
			out[id] = rec.Clone()
		}
	}
	return out
}

// Save rewrites the backing file with the current header and rows. A file
// that could not be loaded is first renamed to <path>.unreadable-<time> so
// its rows survive.
func (s *Store) Save() error {
	if s.unreadable {
		aside := s.path + ".unreadable-" + time.Now().Format("20060102T150405")
		if err := os.Rename(s.path, aside); err != nil && !errors.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "records: move aside %s", s.path)
		}
		zap.L().Warn("record store moved aside", zap.String("path", s.path), zap.String("moved_to", aside))
		s.unreadable = false
	}
	if err := writeSheet(s.path, s.header, s.rows); err != nil {
		return eris.Wrap(err, "records: save store")
	}
	return nil
}
