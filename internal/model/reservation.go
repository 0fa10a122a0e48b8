package model

// ReservationStatus is the canonical, English-coded status stored for a
// reservation. Input files carry the Polish tokens of the source system; see
// TranslateStatus.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationCanceled  ReservationStatus = "CANCELED"
	ReservationCompleted ReservationStatus = "COMPLETED"
)

// Terminal reports whether the status freezes further field mutation. A
// reservation first seen with a terminal status is never created at all.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCanceled || s == ReservationCompleted
}

// statusTokens maps the localized spreadsheet vocabulary onto the canonical
// statuses.
var statusTokens = map[string]ReservationStatus{
	"oczekująca":   ReservationPending,
	"anulowana":    ReservationCanceled,
	"zrealizowana": ReservationCompleted,
}

// StatusTokens returns the accepted spreadsheet tokens in a stable order,
// used for error messages.
func StatusTokens() []string {
	return []string{"oczekująca", "anulowana", "zrealizowana"}
}

// TranslateStatus maps a spreadsheet token onto a canonical status. An
// unknown token yields ok=false; it is a row-level validation finding, not a
// fault.
func TranslateStatus(token string) (ReservationStatus, bool) {
	status, ok := statusTokens[token]
	return status, ok
}

// Reservation is the canonical business record the pipeline maintains.
// Dates stay as validated YYYY-MM-DD strings, mirroring the source files.
type Reservation struct {
	ReservationID string            `json:"reservationId"`
	GuestName     string            `json:"guestName"`
	Status        ReservationStatus `json:"status"`
	CheckInDate   string            `json:"checkInDate"`
	CheckOutDate  string            `json:"checkOutDate"`
}
