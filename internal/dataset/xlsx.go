package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the rows of one worksheet. An empty sheet name selects the
// sheet at 1-based sheetIndex, defaulting to the first sheet.
func ReadXLSX(r io.Reader, name, sheet string, sheetIndex int) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		sheet = f.GetSheetName(idx - 1)
		if sheet == "" {
			return nil, nil, fmt.Errorf("sheet index %d out of range in workbook '%s'", idx, filepath.Base(name))
		}
	} else if i, _ := f.GetSheetIndex(sheet); i < 0 {
		return nil, nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			sheet, filepath.Base(name), strings.Join(f.GetSheetList(), ", "))
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}
