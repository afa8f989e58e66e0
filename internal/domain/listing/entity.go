package listing

import "time"

// Listing はリスティング（貸し部屋）エンティティを表す
// 予約コアが扱うのは在庫スライス（total_slots / available_slots）のみで、
// 説明文や写真などのコンテンツは対象外
type Listing struct {
	ID             string
	OwnerID        string
	Title          string
	TotalSlots     int
	AvailableSlots int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewListing は新しいリスティングを作成する
// 作成時点では全スロットが空き状態
func NewListing(ownerID, title string, totalSlots int) *Listing {
	now := time.Now()
	return &Listing{
		OwnerID:        ownerID,
		Title:          title,
		TotalSlots:     totalSlots,
		AvailableSlots: totalSlots,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsOwnedBy は指定ユーザーがオーナーかを返す
func (l *Listing) IsOwnedBy(userID string) bool {
	return l.OwnerID == userID
}

// HasAvailability は空きスロットがあるかを返す
func (l *Listing) HasAvailability() bool {
	return l.AvailableSlots > 0
}

// Validate はリスティングの検証を行う
func (l *Listing) Validate() error {
	if l.OwnerID == "" {
		return ErrOwnerIDRequired
	}
	if l.Title == "" {
		return ErrTitleRequired
	}
	if l.TotalSlots < 1 {
		return ErrInvalidTotalSlots
	}
	if l.AvailableSlots < 0 || l.AvailableSlots > l.TotalSlots {
		return ErrInvalidAvailableSlots
	}
	return nil
}
