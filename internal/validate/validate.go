// Package validate turns raw spreadsheet rows into typed reservations. Every
// check is a pure function returning findings as data; row-level problems are
// collected, never raised, so a single pass can report everything wrong with
// a file.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkruk/stayimport/internal/model"
)

var dayPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const dayLayout = "2006-01-02"

// Message renders a row finding the way it appears in the report.
func Message(rowNumber int, text string) string {
	return fmt.Sprintf("Row %d: %s", rowNumber, text)
}

// Row validates and transforms one raw row. It returns either a fully typed
// reservation or the ordered list of findings for that row; never both. All
// field checks run independently so one bad field does not hide another.
func Row(row map[string]string, rowNumber int) (*model.Reservation, []string) {
	var findings []string
	add := func(text string) {
		findings = append(findings, Message(rowNumber, text))
	}

	id := row["reservation_id"]
	if id == "" {
		add("reservation_id must not be empty")
	}
	guest := row["guest_name"]
	if guest == "" {
		add("guest_name must not be empty")
	}

	var status model.ReservationStatus
	token := row["status"]
	if token == "" {
		add("status must not be empty")
	} else {
		mapped, ok := model.TranslateStatus(token)
		if !ok {
			add(fmt.Sprintf("status must be one of: %s (got %q)",
				strings.Join(model.StatusTokens(), ", "), token))
		} else {
			status = mapped
		}
	}

	checkIn, ok := day(row, "check_in_date", add)
	checkOut, okOut := day(row, "check_out_date", add)
	if ok && okOut && !checkOut.After(checkIn) {
		add("check_out_date must be after check_in_date")
	}

	if len(findings) > 0 {
		return nil, findings
	}
	return &model.Reservation{
		ReservationID: id,
		GuestName:     guest,
		Status:        status,
		CheckInDate:   row["check_in_date"],
		CheckOutDate:  row["check_out_date"],
	}, nil
}

// day validates a single date field and parses it for cross-field checks.
func day(row map[string]string, field string, add func(string)) (time.Time, bool) {
	value := row[field]
	if value == "" {
		add(field + " must not be empty")
		return time.Time{}, false
	}
	if !dayPattern.MatchString(value) {
		add(field + " must be in YYYY-MM-DD format")
		return time.Time{}, false
	}
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		add(field + " is not a valid calendar date")
		return time.Time{}, false
	}
	return parsed, true
}

// Tracker records reservation ids seen during one file-processing run so
// repeats can be reported. The first occurrence stays valid; duplication is a
// reporting concern only.
type Tracker struct {
	seen map[string]int
}

// NewTracker builds an empty per-file tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: map[string]int{}}
}

// Check registers the id for the given row. When the id was already seen it
// returns a finding naming both row numbers.
func (t *Tracker) Check(id string, rowNumber int) (string, bool) {
	if id == "" {
		return "", false
	}
	if first, ok := t.seen[id]; ok {
		text := fmt.Sprintf("Field reservation_id with value %q must be unique but appears multiple times in the file (first seen at row %d). "+
			"Ensure that each value in the field reservation_id is unique before uploading the file.", id, first)
		return Message(rowNumber, text), true
	}
	t.seen[id] = rowNumber
	return "", false
}
