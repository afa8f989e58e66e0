package listing

import (
	"context"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
)

// Repository はリスティングリポジトリのインターフェース
type Repository interface {
	// Create は新しいリスティングを作成する
	Create(ctx context.Context, l *Listing) error

	// GetByID はIDからリスティングを取得する
	GetByID(ctx context.Context, id string) (*Listing, error)

	// GetByIDTx はトランザクション内でリスティングを取得する
	GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*Listing, error)
}

// Ledger は在庫台帳のインターフェース
// available_slots の増減は必ずこのインターフェース経由で行い、
// 呼び出し元（予約ステートマシン）が所有するトランザクション内で実行される
type Ledger interface {
	// ReserveSlot はスロットを1つ確保する（条件付きUPDATE）
	// 空きがない場合は ErrNoAvailability を返す
	ReserveSlot(ctx context.Context, tx transaction.Tx, listingID string) error

	// ReleaseSlot はスロットを1つ解放する（条件付きUPDATE）
	// available_slots が total_slots に達している場合は ErrDoubleRelease を返す
	ReleaseSlot(ctx context.Context, tx transaction.Tx, listingID string) error
}
