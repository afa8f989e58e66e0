package idempotency

import (
	"context"
	"time"
)

// Repository は冪等性レコードリポジトリのインターフェース
// レコードの所有者は Idempotency Coordinator のみ
type Repository interface {
	// Insert は in_progress レコードを挿入する
	// ユニーク制約違反の場合は ErrDuplicateKey を返す
	Insert(ctx context.Context, r *Record) error

	// Get は (key, callerID, operation) からレコードを取得する
	Get(ctx context.Context, key, callerID, operation string) (*Record, error)

	// MarkCompleted はレコードを completed にし、結果ペイロードとTTLを設定する
	MarkCompleted(ctx context.Context, id string, payload []byte, expiresAt time.Time) error

	// MarkFailed はレコードを failed にし、エラー詳細と失敗TTLを設定する
	MarkFailed(ctx context.Context, id string, detail string, expiresAt time.Time) error

	// Delete はレコードを削除する（期限切れキーの再利用時）
	Delete(ctx context.Context, id string) error

	// DeleteExpired は期限切れレコードを上限件数まで削除し、削除数を返す
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error)
}
