// Package dataset loads the score table from a columnar file and derives
// the major selector options.
package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stemsi/sat-explorer/internal/model"
)

// Source column names.
const (
	ColumnERW   = "Score_ERW"
	ColumnMath  = "Score_Math"
	ColumnMajor = "Intended Major"
)

// RequiredColumns lists the columns every input file must carry.
var RequiredColumns = []string{ColumnERW, ColumnMath, ColumnMajor}

var (
	ErrMissingColumn     = errors.New("missing required column")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrInvalidScore      = errors.New("invalid score value")
	ErrMissingMajor      = errors.New("missing major")
)

// LoadError reports a failure to load the dataset at startup.
type LoadError struct {
	Path string
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadFile reads path into a Dataset. The reader is picked by extension.
func LoadFile(path string) (*model.Dataset, error) {
	var (
		records []model.Record
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		records, err = readParquet(path)
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, &LoadError{Path: path, Op: "detect format", Err: ErrUnsupportedFormat}
	}
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Op: "read", Err: err}
	}

	return New(records), nil
}

// New builds a Dataset from typed rows. The slice is owned by the Dataset
// afterwards and must not be modified by the caller.
func New(records []model.Record) *model.Dataset {
	if records == nil {
		records = []model.Record{}
	}
	return &model.Dataset{
		Records:     records,
		Majors:      Majors(records),
		Fingerprint: Fingerprint(records),
	}
}

// Majors returns AllMajors followed by the distinct majors of records in
// first-seen order.
func Majors(records []model.Record) []string {
	seen := map[string]struct{}{model.AllMajors: {}}
	majors := []string{model.AllMajors}
	for _, r := range records {
		if _, ok := seen[r.Major]; ok {
			continue
		}
		seen[r.Major] = struct{}{}
		majors = append(majors, r.Major)
	}
	return majors
}

// Fingerprint hashes the row contents in order.
func Fingerprint(records []model.Record) string {
	h := sha256.New()
	var buf [8]byte
	for _, r := range records {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(r.ERW))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(r.Math))
		h.Write(buf[:])
		h.Write([]byte(r.Major))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// columnIndex maps the required columns to their position in header.
func columnIndex(path string, header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &LoadError{Path: path, Op: "validate columns", Err: fmt.Errorf("%w: %q", ErrMissingColumn, col)}
		}
	}
	return idx, nil
}
