package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
)

type listingRow struct {
	ID             string    `db:"id"`
	OwnerID        string    `db:"owner_id"`
	Title          string    `db:"title"`
	TotalSlots     int       `db:"total_slots"`
	AvailableSlots int       `db:"available_slots"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r *listingRow) toEntity() *listing.Listing {
	return &listing.Listing{
		ID: r.ID, OwnerID: r.OwnerID, Title: r.Title,
		TotalSlots: r.TotalSlots, AvailableSlots: r.AvailableSlots,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// ListingRepository はリスティングのリポジトリ兼在庫台帳
// スロット増減は条件付きUPDATEのみで行い、行ロックの明示取得はしない
type ListingRepository struct{ db *sqlx.DB }

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(ctx context.Context, l *listing.Listing) error {
	query := `INSERT INTO listings (owner_id, title, total_slots, available_slots, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, l.OwnerID, l.Title, l.TotalSlots, l.AvailableSlots, l.CreatedAt, l.UpdatedAt).Scan(&l.ID); err != nil {
		return fmt.Errorf("リスティング作成に失敗: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	query := `SELECT id, owner_id, title, total_slots, available_slots, created_at, updated_at FROM listings WHERE id = $1`
	var row listingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listing.ErrListingNotFound
		}
		return nil, fmt.Errorf("リスティング取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ListingRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*listing.Listing, error) {
	sqlxTx := UnwrapTx(tx)
	query := `SELECT id, owner_id, title, total_slots, available_slots, created_at, updated_at FROM listings WHERE id = $1`
	var row listingRow
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, listing.ErrListingNotFound
		}
		return nil, fmt.Errorf("リスティング取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// ReserveSlot はスロットを1つ確保する
// WHERE句の available_slots > 0 が read-then-write 競合を排除する
func (r *ListingRepository) ReserveSlot(ctx context.Context, tx transaction.Tx, listingID string) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE listings SET available_slots = available_slots - 1, updated_at = NOW() WHERE id = $1 AND available_slots > 0`
	result, err := sqlxTx.ExecContext(ctx, query, listingID)
	if err != nil {
		return fmt.Errorf("スロット確保に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// 0行更新は「リスティング不在」か「在庫切れ」のいずれか
		var exists bool
		if err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM listings WHERE id = $1)`, listingID); err != nil {
			return fmt.Errorf("リスティング存在確認に失敗: %w", err)
		}
		if !exists {
			return listing.ErrListingNotFound
		}
		return listing.ErrNoAvailability
	}
	return nil
}

// ReleaseSlot はスロットを1つ解放する
// 0行更新は二重解放のロジックエラーであり、リトライしない
func (r *ListingRepository) ReleaseSlot(ctx context.Context, tx transaction.Tx, listingID string) error {
	sqlxTx := UnwrapTx(tx)
	query := `UPDATE listings SET available_slots = available_slots + 1, updated_at = NOW() WHERE id = $1 AND available_slots < total_slots`
	result, err := sqlxTx.ExecContext(ctx, query, listingID)
	if err != nil {
		return fmt.Errorf("スロット解放に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return listing.ErrDoubleRelease
	}
	return nil
}

var (
	_ listing.Repository = (*ListingRepository)(nil)
	_ listing.Ledger     = (*ListingRepository)(nil)
)
