package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound     = errors.New("予約が見つかりません")
	ErrInvalidTransition   = errors.New("現在の状態からは実行できない操作です")
	ErrHoldExpired         = errors.New("ホールドの有効期限が切れています")
	ErrHoldNotExpired      = errors.New("ホールドはまだ有効期限内です")
	ErrContention          = errors.New("競合が解消できませんでした。時間をおいて再試行してください")
	ErrNotAllowed          = errors.New("この操作を行う権限がありません")
	ErrListingIDRequired   = errors.New("リスティングIDは必須です")
	ErrRequesterIDRequired = errors.New("リクエスターIDは必須です")
	ErrInvalidDateRange    = errors.New("終了日は開始日より後である必要があります")
	ErrInvalidTotalPrice   = errors.New("合計金額が不正です")
)
