package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	name := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(name, axis, cell))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open([]byte("not a workbook"))
	require.Error(t, err)
}

func TestValidateHeader(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest_name", "status", "check_in_date", "check_out_date"},
	})
	s, err := Open(data)
	require.NoError(t, err)
	assert.NoError(t, s.ValidateHeader())
}

func TestValidateHeaderIgnoresOrder(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"status", "check_out_date", "reservation_id", "check_in_date", "guest_name"},
	})
	s, err := Open(data)
	require.NoError(t, err)
	assert.NoError(t, s.ValidateHeader())
}

func TestValidateHeaderMismatch(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest", "status", "check_in_date", "check_out_date"},
	})
	s, err := Open(data)
	require.NoError(t, err)
	err = s.ValidateHeader()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: reservation_id, guest_name, status, check_in_date, check_out_date")
	assert.Contains(t, err.Error(), "guest")
}

func TestValidateHeaderExtraColumn(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest_name", "status", "check_in_date", "check_out_date", "room"},
	})
	s, err := Open(data)
	require.NoError(t, err)
	require.Error(t, s.ValidateHeader())
}

func TestRowMapsHeaderToValues(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"status", "reservation_id", "guest_name", "check_in_date", "check_out_date"},
		{" oczekująca ", "RES-1", "Anna Nowak", "2025-01-10", "2025-01-12"},
	})
	s, err := Open(data)
	require.NoError(t, err)

	row := s.Row(2)
	assert.Equal(t, "oczekująca", row["status"], "values are trimmed")
	assert.Equal(t, "RES-1", row["reservation_id"])
	assert.Equal(t, "Anna Nowak", row["guest_name"])
	assert.False(t, Empty(row))
}

func TestRowMissingCells(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest_name", "status", "check_in_date", "check_out_date"},
		{"RES-1", "Anna Nowak"},
	})
	s, err := Open(data)
	require.NoError(t, err)

	row := s.Row(2)
	assert.Equal(t, "RES-1", row["reservation_id"])
	_, ok := row["status"]
	assert.False(t, ok)
	assert.Equal(t, "", row["status"])
}

func TestEmptyRowSentinel(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest_name", "status", "check_in_date", "check_out_date"},
		{"RES-1", "Anna Nowak", "oczekująca", "2025-01-10", "2025-01-12"},
		{},
		{"RES-2", "Jan Kowalski", "oczekująca", "2025-02-01", "2025-02-03"},
	})
	s, err := Open(data)
	require.NoError(t, err)

	assert.False(t, Empty(s.Row(2)))
	assert.True(t, Empty(s.Row(3)))
	assert.False(t, Empty(s.Row(4)))
	assert.Equal(t, 4, s.LastRow())
}

func TestRowOutOfRangeIsEmpty(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"reservation_id", "guest_name", "status", "check_in_date", "check_out_date"},
	})
	s, err := Open(data)
	require.NoError(t, err)
	assert.True(t, Empty(s.Row(2)))
	assert.True(t, Empty(s.Row(99)))
}
