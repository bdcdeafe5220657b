package records

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// defaultSheet matches the sheet name spreadsheet tools give a new workbook.
const defaultSheet = "Sheet1"

// readSheet returns every row of the first sheet as strings.
func readSheet(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// writeSheet replaces path with a single-sheet workbook holding header and
// rows. Nil cells are left empty.
func writeSheet(path string, header []string, rows [][]*string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(defaultSheet)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, values := range rows {
		r := sheet.AddRow()
		for _, v := range values {
			c := r.AddCell()
			if v != nil {
				c.SetString(*v)
			}
		}
	}

	tmp := path + ".tmp"
	if err := f.Save(tmp); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "xlsx: replace %s", path)
	}
	return nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}
