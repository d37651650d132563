package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/xuri/excelize/v2"
)

func readCSV(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		header = nil
	} else if err != nil {
		return nil, &LoadError{Path: path, Op: "read header", Err: err}
	}

	idx, err := columnIndex(path, header)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Path: path, Op: "read row", Err: err}
		}
		rows = append(rows, row)
	}
	return decodeRows(path, idx, rows)
}

// readXLSX reads the first sheet of an Excel workbook.
func readXLSX(path string) ([]model.Record, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Path: path, Op: "open workbook", Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &LoadError{Path: path, Op: "read sheet " + sheets[0], Err: err}
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
		rows = rows[1:]
	}
	idx, err := columnIndex(path, header)
	if err != nil {
		return nil, err
	}
	return decodeRows(path, idx, rows)
}

// decodeRows converts string cells into records. Line numbers in errors are
// 1-based and count the header.
func decodeRows(path string, idx map[string]int, rows [][]string) ([]model.Record, error) {
	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		if isBlank(row) {
			continue
		}
		erw, err := parseScore(cell(row, idx[ColumnERW]))
		if err != nil {
			return nil, &LoadError{Path: path, Op: fmt.Sprintf("line %d column %s", line, ColumnERW), Err: err}
		}
		mth, err := parseScore(cell(row, idx[ColumnMath]))
		if err != nil {
			return nil, &LoadError{Path: path, Op: fmt.Sprintf("line %d column %s", line, ColumnMath), Err: err}
		}
		major, err := checkMajor(cell(row, idx[ColumnMajor]))
		if err != nil {
			return nil, &LoadError{Path: path, Op: fmt.Sprintf("line %d column %s", line, ColumnMajor), Err: err}
		}
		records = append(records, model.Record{ERW: erw, Math: mth, Major: major})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// checkMajor rejects blank labels; they would surface as an empty selector
// option.
func checkMajor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingMajor
	}
	return s, nil
}

// parseScore accepts integers and integral floats such as "500.0".
func parseScore(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, s)
	}
	return integral(f)
}
