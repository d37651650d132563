package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_CSV(t *testing.T) {
	path := writeFile(t, "scores.csv", "Score_ERW,Score_Math,Intended Major\n"+
		"500,600,Engineering\n"+
		"650.0,700,Biology\n"+
		"\n"+
		"420,410,Engineering\n")

	ds, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []model.Record{
		{ERW: 500, Math: 600, Major: "Engineering"},
		{ERW: 650, Math: 700, Major: "Biology"},
		{ERW: 420, Math: 410, Major: "Engineering"},
	}, ds.Records)
	assert.Equal(t, []string{"All", "Engineering", "Biology"}, ds.Majors)
	assert.NotEmpty(t, ds.Fingerprint)
}

func TestLoadFile_CSVColumnOrderIndependent(t *testing.T) {
	path := writeFile(t, "scores.csv", "Intended Major,Extra,Score_Math,Score_ERW\nHistory,x,510,520\n")

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{ERW: 520, Math: 510, Major: "History"}}, ds.Records)
}

func TestLoadFile_HeaderOnlyIsEmptyDataset(t *testing.T) {
	path := writeFile(t, "scores.csv", "Score_ERW,Score_Math,Intended Major\n")

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, []string{"All"}, ds.Majors)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   func(t *testing.T) string
		target error
	}{
		{
			name:   "missing file",
			path:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.parquet") },
			target: os.ErrNotExist,
		},
		{
			name:   "unknown extension",
			path:   func(t *testing.T) string { return writeFile(t, "scores.json", "{}") },
			target: ErrUnsupportedFormat,
		},
		{
			name: "missing column",
			path: func(t *testing.T) string {
				return writeFile(t, "scores.csv", "Score_ERW,Intended Major\n500,Biology\n")
			},
			target: ErrMissingColumn,
		},
		{
			name:   "empty file",
			path:   func(t *testing.T) string { return writeFile(t, "scores.csv", "") },
			target: ErrMissingColumn,
		},
		{
			name: "non integer score",
			path: func(t *testing.T) string {
				return writeFile(t, "scores.csv", "Score_ERW,Score_Math,Intended Major\nabc,600,Biology\n")
			},
			target: ErrInvalidScore,
		},
		{
			name: "fractional score",
			path: func(t *testing.T) string {
				return writeFile(t, "scores.csv", "Score_ERW,Score_Math,Intended Major\n650.5,600,Biology\n")
			},
			target: ErrInvalidScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(tt.path(t))
			require.Error(t, err)

			var le *LoadError
			assert.True(t, errors.As(err, &le), "expected *LoadError, got %T", err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoadFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Score_ERW", "Score_Math", "Intended Major"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{500, 600, "Engineering"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{710, 690, "Physics"}))

	path := filepath.Join(t.TempDir(), "scores.xlsx")
	require.NoError(t, f.SaveAs(path))

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{
		{ERW: 500, Math: 600, Major: "Engineering"},
		{ERW: 710, Math: 690, Major: "Physics"},
	}, ds.Records)
	assert.Equal(t, []string{"All", "Engineering", "Physics"}, ds.Majors)
}

// pandasRow mirrors what pandas writes: every column nullable.
type pandasRow struct {
	ERW   int64  `parquet:"Score_ERW,optional"`
	Math  int64  `parquet:"Score_Math,optional"`
	Major string `parquet:"Intended Major,optional"`
}

type floatRow struct {
	ERW   *float64 `parquet:"Score_ERW,optional"`
	Math  *float64 `parquet:"Score_Math,optional"`
	Major *string  `parquet:"Intended Major,optional"`
}

func ptr[T any](v T) *T { return &v }

func TestLoadFile_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sat_data.parquet")
	require.NoError(t, parquet.WriteFile(path, []pandasRow{
		{ERW: 500, Math: 600, Major: "Engineering"},
		{ERW: 640, Math: 580, Major: "Economics"},
	}))

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{
		{ERW: 500, Math: 600, Major: "Engineering"},
		{ERW: 640, Math: 580, Major: "Economics"},
	}, ds.Records)
}

func TestLoadFile_ParquetIntegralDoubles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sat_data.parquet")
	require.NoError(t, parquet.WriteFile(path, []floatRow{
		{ERW: ptr(500.0), Math: ptr(600.0), Major: ptr("Engineering")},
	}))

	ds, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.Record{{ERW: 500, Math: 600, Major: "Engineering"}}, ds.Records)
}

func TestLoadFile_ParquetInvalidScore(t *testing.T) {
	tests := []struct {
		name   string
		rows   []floatRow
		target error
		op     string
	}{
		{
			name: "fractional double",
			rows: []floatRow{
				{ERW: ptr(500.0), Math: ptr(610.0), Major: ptr("Eng")},
				{ERW: ptr(500.0), Math: ptr(600.5), Major: ptr("Eng")},
			},
			target: ErrInvalidScore,
			op:     "row 2 column Score_Math",
		},
		{
			name:   "null score",
			rows:   []floatRow{{ERW: ptr(500.0), Major: ptr("Eng")}},
			target: ErrInvalidScore,
			op:     "row 1 column Score_Math",
		},
		{
			name:   "null major",
			rows:   []floatRow{{ERW: ptr(500.0), Math: ptr(600.0)}},
			target: ErrMissingMajor,
			op:     "row 1 column Intended Major",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sat_data.parquet")
			require.NoError(t, parquet.WriteFile(path, tt.rows))

			ds, err := LoadFile(path)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, tt.target)

			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.op, le.Op)
		})
	}
}

func TestLoadFile_CSVBlankMajor(t *testing.T) {
	path := writeFile(t, "scores.csv", "Score_ERW,Score_Math,Intended Major\n500,600,Biology\n510,620,  \n")

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrMissingMajor)
	assert.ErrorContains(t, err, "line 3 column Intended Major")
}

func TestLoadFile_ParquetMissingColumn(t *testing.T) {
	type partialRow struct {
		ERW   int64  `parquet:"Score_ERW"`
		Major string `parquet:"Intended Major"`
	}
	path := filepath.Join(t.TempDir(), "sat_data.parquet")
	require.NoError(t, parquet.WriteFile(path, []partialRow{{ERW: 500, Major: "Biology"}}))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMajors(t *testing.T) {
	records := []model.Record{
		{Major: "Physics"},
		{Major: "All"},
		{Major: "Art"},
		{Major: "Physics"},
	}
	assert.Equal(t, []string{"All", "Physics", "Art"}, Majors(records))
	assert.Equal(t, []string{"All"}, Majors(nil))
}

func TestFingerprint_DependsOnContent(t *testing.T) {
	a := []model.Record{{ERW: 500, Math: 600, Major: "Art"}}
	b := []model.Record{{ERW: 500, Math: 610, Major: "Art"}}

	assert.Equal(t, Fingerprint(a), Fingerprint(a))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
