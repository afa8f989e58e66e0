package listing

import "errors"

// Listing ドメインのエラー定義
var (
	ErrListingNotFound       = errors.New("リスティングが見つかりません")
	ErrNoAvailability        = errors.New("空きスロットがありません")
	ErrDoubleRelease         = errors.New("スロットの二重解放を検出しました")
	ErrOwnerIDRequired       = errors.New("オーナーIDは必須です")
	ErrTitleRequired         = errors.New("タイトルは必須です")
	ErrInvalidTotalSlots     = errors.New("総スロット数は1以上である必要があります")
	ErrInvalidAvailableSlots = errors.New("空きスロット数が不正です")
)
