package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pkruk/stayimport/internal/model"
)

// ReservationRepository persists reservations keyed by their business id.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository constructs a repository.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Upsert applies one validated reservation. The rules mirror the merge
// semantics of the source system:
//   - existing record, incoming terminal status: only the status moves;
//     history fields are frozen once a reservation is finalized;
//   - existing record, non-terminal status: all mutable fields update;
//   - no record, terminal status: nothing is created;
//   - no record, non-terminal status: a new record is inserted.
//
// Applying the same reservation twice yields the same stored state as
// applying it once.
func (r *ReservationRepository) Upsert(ctx context.Context, res *model.Reservation) error {
	now := time.Now().UTC()

	var existing string
	err := r.pool.QueryRow(ctx, `
		SELECT reservation_id FROM reservations WHERE reservation_id=$1
	`, res.ReservationID).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if res.Status.Terminal() {
			return nil
		}
		// ON CONFLICT guards against another task inserting the same id
		// between our lookup and the insert.
		_, err = r.pool.Exec(ctx, `
			INSERT INTO reservations (reservation_id, guest_name, status, check_in_date, check_out_date, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$6)
			ON CONFLICT (reservation_id) DO UPDATE
			SET guest_name=EXCLUDED.guest_name,
				status=EXCLUDED.status,
				check_in_date=EXCLUDED.check_in_date,
				check_out_date=EXCLUDED.check_out_date,
				updated_at=EXCLUDED.updated_at
		`, res.ReservationID, res.GuestName, res.Status, res.CheckInDate, res.CheckOutDate, now)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("select reservation: %w", err)
	}

	if res.Status.Terminal() {
		_, err = r.pool.Exec(ctx, `
			UPDATE reservations SET status=$1, updated_at=$2 WHERE reservation_id=$3
		`, res.Status, now, res.ReservationID)
		if err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
		return nil
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE reservations
		SET guest_name=$1, status=$2, check_in_date=$3, check_out_date=$4, updated_at=$5
		WHERE reservation_id=$6
	`, res.GuestName, res.Status, res.CheckInDate, res.CheckOutDate, now, res.ReservationID)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}
