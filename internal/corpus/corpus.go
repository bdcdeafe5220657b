// Package corpus lists and checks the PDF documents a run works on.
package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
)

// ErrInvalidDocument is returned by Check for a file that is not a readable
// PDF.
var ErrInvalidDocument = eris.New("document is not a readable PDF")

// Document is one source file in the corpus.
type Document struct {
	// Name is the basename, used as the record Source File.
	Name string
	Path string
}

// Corpus is a directory of PDF documents.
type Corpus struct {
	dir string
}

// New returns a Corpus rooted at dir.
func New(dir string) *Corpus {
	return &Corpus{dir: dir}
}

// Dir returns the corpus directory.
func (c *Corpus) Dir() string { return c.dir }

// IsPDF reports whether name has a .pdf suffix in any case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// List returns every PDF directly inside the corpus directory, sorted by
// name.
func (c *Corpus) List() ([]Document, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read dir %s", c.dir)
	}
	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		docs = append(docs, c.doc(e.Name()))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Names returns the basenames of List.
func (c *Corpus) Names() ([]string, error) {
	docs, err := c.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names, nil
}

func (c *Corpus) doc(name string) Document {
	return Document{Name: name, Path: filepath.Join(c.dir, name)}
}

// Resolve maps names to documents inside the corpus directory. Names whose
// file does not exist are returned in missing, in input order.
func (c *Corpus) Resolve(names []string) (found []Document, missing []string) {
	for _, n := range names {
		if d, ok := c.Lookup(n); ok {
			found = append(found, d)
			continue
		}
		missing = append(missing, n)
	}
	return found, missing
}

// Lookup finds the document for a recorded source id. The id is tried as
// given inside the corpus directory and then by its basename.
func (c *Corpus) Lookup(sourceID string) (Document, bool) {
	if sourceID == "" {
		return Document{}, false
	}
	if exists(filepath.Join(c.dir, sourceID)) {
		return Document{Name: sourceID, Path: filepath.Join(c.dir, sourceID)}, true
	}
	base := filepath.Base(sourceID)
	if exists(filepath.Join(c.dir, base)) {
		return c.doc(base), true
	}
	return Document{}, false
}

func exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Check parses path with pdfcpu in relaxed mode and returns its page count.
// Any parse failure is reported as ErrInvalidDocument.
func Check(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	if st, err := f.Stat(); err == nil && st.IsDir() {
		return 0, eris.Errorf("corpus: %s is a directory", path)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, eris.Wrapf(errors.Join(ErrInvalidDocument, err), "corpus: check %s", filepath.Base(path))
	}
	if ctx.PageCount == 0 {
		return 0, eris.Wrapf(ErrInvalidDocument, "corpus: %s has no pages", filepath.Base(path))
	}
	return ctx.PageCount, nil
}
