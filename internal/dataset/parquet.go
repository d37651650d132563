package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/stemsi/sat-explorer/internal/model"
)

// parquetBatch is the number of rows read per ReadRows call.
const parquetBatch = 256

// readParquet walks the file row by row so every cell goes through the same
// checks as the CSV and XLSX readers. Score columns may be stored as any
// integer, floating point or string type; nulls and fractions are rejected.
func readParquet(path string) ([]model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open", Err: err}
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Op: "stat", Err: err}
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, &LoadError{Path: path, Op: "open parquet", Err: err}
	}

	schema := pf.Schema()
	leaves := make(map[string]int, len(RequiredColumns))
	for _, col := range RequiredColumns {
		leaf, ok := schema.Lookup(col)
		if !ok {
			return nil, &LoadError{Path: path, Op: "validate columns", Err: fmt.Errorf("%w: %q", ErrMissingColumn, col)}
		}
		leaves[col] = leaf.ColumnIndex
	}

	records := make([]model.Record, 0, pf.NumRows())
	buf := make([]parquet.Row, parquetBatch)
	line := 0
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				line++
				rec, derr := decodeParquetRow(row, leaves)
				if derr != nil {
					rows.Close()
					return nil, &LoadError{Path: path, Op: fmt.Sprintf("row %d %s", line, derr.column), Err: derr.err}
				}
				records = append(records, rec)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, &LoadError{Path: path, Op: "read rows", Err: err}
			}
		}
		if err := rows.Close(); err != nil {
			return nil, &LoadError{Path: path, Op: "read rows", Err: err}
		}
	}
	return records, nil
}

type cellError struct {
	column string
	err    error
}

func decodeParquetRow(row parquet.Row, leaves map[string]int) (model.Record, *cellError) {
	erw, err := parquetScore(columnValue(row, leaves[ColumnERW]))
	if err != nil {
		return model.Record{}, &cellError{column: "column " + ColumnERW, err: err}
	}
	mth, err := parquetScore(columnValue(row, leaves[ColumnMath]))
	if err != nil {
		return model.Record{}, &cellError{column: "column " + ColumnMath, err: err}
	}
	major, err := parquetMajor(columnValue(row, leaves[ColumnMajor]))
	if err != nil {
		return model.Record{}, &cellError{column: "column " + ColumnMajor, err: err}
	}
	return model.Record{ERW: erw, Math: mth, Major: major}, nil
}

// columnValue returns the value of leaf column idx, or a null value when the
// row carries none.
func columnValue(row parquet.Row, idx int) parquet.Value {
	for _, v := range row {
		if v.Column() == idx {
			return v
		}
	}
	return parquet.NullValue()
}

func parquetScore(v parquet.Value) (int, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("%w: null", ErrInvalidScore)
	}
	switch v.Kind() {
	case parquet.Int32:
		return int(v.Int32()), nil
	case parquet.Int64:
		return int(v.Int64()), nil
	case parquet.Float:
		return integral(float64(v.Float()))
	case parquet.Double:
		return integral(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return parseScore(string(v.ByteArray()))
	}
	return 0, fmt.Errorf("%w: unsupported type %s", ErrInvalidScore, v.Kind())
}

func integral(f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, f)
	}
	return int(f), nil
}

func parquetMajor(v parquet.Value) (string, error) {
	if v.IsNull() {
		return "", ErrMissingMajor
	}
	return checkMajor(v.String())
}
