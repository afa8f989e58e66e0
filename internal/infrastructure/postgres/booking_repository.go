package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
)

type bookingRow struct {
	ID            string     `db:"id"`
	ListingID     string     `db:"listing_id"`
	RequesterID   string     `db:"requester_id"`
	StartDate     time.Time  `db:"start_date"`
	EndDate       time.Time  `db:"end_date"`
	TotalPrice    int        `db:"total_price"`
	Status        string     `db:"status"`
	HoldExpiresAt *time.Time `db:"hold_expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, ListingID: r.ListingID, RequesterID: r.RequesterID,
		StartDate: r.StartDate, EndDate: r.EndDate, TotalPrice: r.TotalPrice,
		Status: booking.Status(r.Status), HoldExpiresAt: r.HoldExpiresAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const bookingColumns = `id, listing_id, requester_id, start_date, end_date, total_price, status, hold_expires_at, created_at, updated_at`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	query := `INSERT INTO bookings (listing_id, requester_id, start_date, end_date, total_price, status, hold_expires_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query, b.ListingID, b.RequesterID, b.StartDate, b.EndDate, b.TotalPrice, string(b.Status), b.HoldExpiresAt, b.CreatedAt, b.UpdatedAt).Scan(&b.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	sqlxTx := UnwrapTx(tx)
	var row bookingRow
	if err := sqlxTx.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, requesterID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE bookings SET status = $1, hold_expires_at = $2, updated_at = $3 WHERE id = $4`
	result, err := sqlxTx.ExecContext(ctx, query, string(b.Status), b.HoldExpiresAt, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	query := `SELECT id FROM bookings WHERE status = 'pending' AND hold_expires_at < $1 ORDER BY hold_expires_at LIMIT $2`
	if err := r.db.SelectContext(ctx, &ids, query, now, limit); err != nil {
		return nil, fmt.Errorf("期限切れホールド取得に失敗: %w", err)
	}
	return ids, nil
}

func (r *BookingRepository) CountByListingAndStatus(ctx context.Context, listingID string, statuses []booking.Status) (int, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE listing_id = $1 AND status = ANY($2)`
	if err := r.db.GetContext(ctx, &count, query, listingID, pq.Array(strs)); err != nil {
		return 0, fmt.Errorf("予約数取得に失敗: %w", err)
	}
	return count, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
