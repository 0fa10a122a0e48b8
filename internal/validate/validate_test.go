package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkruk/stayimport/internal/model"
)

func validRow() map[string]string {
	return map[string]string{
		"reservation_id": "RES-001",
		"guest_name":     "Jan Kowalski",
		"status":         "oczekująca",
		"check_in_date":  "2025-01-10",
		"check_out_date": "2025-01-12",
	}
}

func TestRowValid(t *testing.T) {
	res, findings := Row(validRow(), 2)
	require.Empty(t, findings)
	require.NotNil(t, res)
	assert.Equal(t, "RES-001", res.ReservationID)
	assert.Equal(t, "Jan Kowalski", res.GuestName)
	assert.Equal(t, model.ReservationPending, res.Status)
	assert.Equal(t, "2025-01-10", res.CheckInDate)
	assert.Equal(t, "2025-01-12", res.CheckOutDate)
}

func TestRowStatusTranslation(t *testing.T) {
	cases := map[string]model.ReservationStatus{
		"oczekująca":   model.ReservationPending,
		"anulowana":    model.ReservationCanceled,
		"zrealizowana": model.ReservationCompleted,
	}
	for token, want := range cases {
		row := validRow()
		row["status"] = token
		res, findings := Row(row, 2)
		require.Empty(t, findings, "token %s", token)
		assert.Equal(t, want, res.Status)
	}
}

func TestRowCollectsAllFindings(t *testing.T) {
	res, findings := Row(map[string]string{}, 4)
	assert.Nil(t, res)
	require.Len(t, findings, 5)
	for _, f := range findings {
		assert.Contains(t, f, "Row 4: ")
	}
	assert.Contains(t, findings[0], "reservation_id must not be empty")
	assert.Contains(t, findings[1], "guest_name must not be empty")
	assert.Contains(t, findings[2], "status must not be empty")
	assert.Contains(t, findings[3], "check_in_date must not be empty")
	assert.Contains(t, findings[4], "check_out_date must not be empty")
}

func TestRowFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   string
	}{
		{
			name:   "unknown status token",
			mutate: func(r map[string]string) { r["status"] = "confirmed" },
			want:   `status must be one of: oczekująca, anulowana, zrealizowana (got "confirmed")`,
		},
		{
			name:   "bad date format",
			mutate: func(r map[string]string) { r["check_in_date"] = "10.01.2025" },
			want:   "check_in_date must be in YYYY-MM-DD format",
		},
		{
			name:   "pattern match but impossible date",
			mutate: func(r map[string]string) { r["check_out_date"] = "2025-13-40" },
			want:   "check_out_date is not a valid calendar date",
		},
		{
			name: "check out before check in",
			mutate: func(r map[string]string) {
				r["check_in_date"] = "2025-01-12"
				r["check_out_date"] = "2025-01-10"
			},
			want: "check_out_date must be after check_in_date",
		},
		{
			name: "equal dates rejected",
			mutate: func(r map[string]string) {
				r["check_in_date"] = "2025-01-10"
				r["check_out_date"] = "2025-01-10"
			},
			want: "check_out_date must be after check_in_date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)
			res, findings := Row(row, 3)
			assert.Nil(t, res)
			require.Len(t, findings, 1)
			assert.Equal(t, Message(3, tt.want), findings[0])
		})
	}
}

func TestRowDateOrderSkippedWhenDateInvalid(t *testing.T) {
	row := validRow()
	row["check_in_date"] = "not-a-date"
	_, findings := Row(row, 2)
	require.Len(t, findings, 1)
	assert.NotContains(t, findings[0], "must be after")
}

func TestTracker(t *testing.T) {
	tracker := NewTracker()

	msg, dup := tracker.Check("RES-001", 5)
	assert.False(t, dup)
	assert.Empty(t, msg)

	msg, dup = tracker.Check("RES-002", 6)
	assert.False(t, dup)
	assert.Empty(t, msg)

	msg, dup = tracker.Check("RES-001", 9)
	require.True(t, dup)
	assert.Contains(t, msg, "Row 9: ")
	assert.Contains(t, msg, `"RES-001"`)
	assert.Contains(t, msg, "first seen at row 5")
}

func TestTrackerIgnoresEmptyID(t *testing.T) {
	tracker := NewTracker()
	_, dup := tracker.Check("", 2)
	assert.False(t, dup)
	_, dup = tracker.Check("", 3)
	assert.False(t, dup)
}
