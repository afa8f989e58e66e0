package idempotency

import "errors"

// Idempotency ドメインのエラー定義
var (
	ErrRecordNotFound    = errors.New("冪等性レコードが見つかりません")
	ErrDuplicateKey      = errors.New("同じ冪等性キーのレコードが既に存在します")
	ErrConflict          = errors.New("冪等性キーが別のリクエスト本文で再利用されました")
	ErrInProgress        = errors.New("同じ冪等性キーの操作が実行中です")
	ErrKeyRequired       = errors.New("冪等性キーは必須です")
	ErrCallerIDRequired  = errors.New("呼び出し元IDは必須です")
	ErrOperationRequired = errors.New("操作名は必須です")
)
