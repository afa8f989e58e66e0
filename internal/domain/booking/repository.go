package booking

import (
	"context"
	"time"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByIDTx はトランザクション内で予約を取得する
	// 状態遷移の read-check-write は必ず同一トランザクション内で行う
	GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// GetByRequesterID はリクエスターの予約一覧を取得する
	GetByRequesterID(ctx context.Context, requesterID string, limit, offset int) ([]*Booking, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, b *Booking) error

	// ListExpiredPending は期限切れの保留中予約IDを上限件数まで取得する
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]string, error)

	// CountByListingAndStatus はリスティングの状態別予約数を返す（整合性検証用）
	CountByListingAndStatus(ctx context.Context, listingID string, statuses []Status) (int, error)
}
