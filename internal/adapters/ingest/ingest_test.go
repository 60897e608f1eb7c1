package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	data := []byte("\xEF\xBB\xBFFirst Name,Last Name,40m Dash\nAva,Lee,5.1s\n\nBen,Ray,\"6,2\"\n")
	tbl, err := Parse("roster.csv", "", data)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, tbl.Format)
	assert.Equal(t, []string{"First Name", "Last Name", "40m Dash"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Ben", "Ray", "6,2"}, tbl.Rows[1])
}

func TestParseSemicolonCSV(t *testing.T) {
	tbl, err := Parse("roster.csv", "text/csv", []byte("first_name;last_name;jersey_number\nAva;Lee;7\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "last_name", "jersey_number"}, tbl.Headers)
	assert.Equal(t, [][]string{{"Ava", "Lee", "7"}}, tbl.Rows)
}

func TestParseText(t *testing.T) {
	tbl, err := ParseText("first_name\tlast_name\tagility\nAva\tLee\t81\n")
	require.NoError(t, err)
	assert.Equal(t, FormatText, tbl.Format)
	assert.Equal(t, [][]string{{"Ava", "Lee", "81"}}, tbl.Rows)
}

func TestParseEmpty(t *testing.T) {
	for name, data := range map[string][]byte{
		"nothing":  nil,
		"bom only": {0xEF, 0xBB, 0xBF},
		"blanks":   []byte(" \n\n"),
		"commas":   []byte(",,,\n,,\n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("x.csv", "", data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructure)
			var se *StructuralError
			assert.True(t, errors.As(err, &se))
		})
	}
}

func TestParseXLS(t *testing.T) {
	_, err := Parse("old.xls", "", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, err, ErrStructure)
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"notes"}))
	_, err := f.NewSheet("Players")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Players", "A2", &[]any{"first_name", "last_name", "vertical_jump"}))
	require.NoError(t, f.SetSheetRow("Players", "A3", &[]any{"Ava", "Lee", 24.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	t.Run("by extension", func(t *testing.T) {
		tbl, err := Parse("roster.xlsx", "", buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, "Players", tbl.Sheet)
		assert.Equal(t, []string{"first_name", "last_name", "vertical_jump"}, tbl.Headers)
		require.Len(t, tbl.Rows, 1)
		assert.Equal(t, "24.5", tbl.Rows[0][2])
	})

	t.Run("sniffed", func(t *testing.T) {
		tbl, err := Parse("", "application/octet-stream", buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, FormatXLSX, tbl.Format)
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := Parse("roster.xlsx", "", []byte("PK\x03\x04garbage"))
		assert.ErrorIs(t, err, ErrStructure)
	})
}

func TestSniffDelimiter(t *testing.T) {
	cases := []struct {
		in   string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a;b,c", ','},
		{"name", ','},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sniffDelimiter([]byte(c.in)), c.in)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".xlsx", Extension(FormatXLSX))
	assert.Equal(t, ".txt", Extension(FormatText))
	assert.Equal(t, ".csv", Extension(FormatCSV))
}
