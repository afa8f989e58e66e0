package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Booking は予約エンティティを表す
// 状態遷移はこのエンティティのメソッド経由でのみ行う
// pending → accepted / rejected / cancelled、accepted → cancelled
// rejected と cancelled は終端状態
type Booking struct {
	ID            string
	ListingID     string
	RequesterID   string
	StartDate     time.Time
	EndDate       time.Time
	TotalPrice    int
	Status        Status
	HoldExpiresAt *time.Time // pending の間のみ非nil
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewHold は新しいホールド（pending予約）を作成する
// ホールドは now + holdDuration で期限切れになる
func NewHold(listingID, requesterID string, startDate, endDate time.Time, totalPrice int, now time.Time, holdDuration time.Duration) *Booking {
	expiresAt := now.Add(holdDuration)
	return &Booking{
		ListingID:     listingID,
		RequesterID:   requesterID,
		StartDate:     startDate,
		EndDate:       endDate,
		TotalPrice:    totalPrice,
		Status:        StatusPending,
		HoldExpiresAt: &expiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsPending は予約が保留中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// IsTerminal は予約が終端状態かを返す
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusRejected || b.Status == StatusCancelled
}

// IsHoldExpired はホールド期限が切れているかを返す
// accept 側とスイーパー側で同じ比較（now >= holdExpiresAt）を共有する
func (b *Booking) IsHoldExpired(now time.Time) bool {
	return b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

// Accept はホールドを承認する（オーナー操作）
// 期限切れホールドの承認は HoldExpired となり、スイーパーの expire 経路に委ねる
func (b *Booking) Accept(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	if b.IsHoldExpired(now) {
		return ErrHoldExpired
	}
	b.Status = StatusAccepted
	b.HoldExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// Reject はホールドを拒否する（オーナー操作）
// 呼び出し元は同一トランザクション内でスロットを解放する必要がある
func (b *Booking) Reject(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.Status = StatusRejected
	b.HoldExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする（リクエスター／オーナー操作）
// pending または accepted から遷移可能
func (b *Booking) Cancel(now time.Time) error {
	if b.Status != StatusPending && b.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	b.Status = StatusCancelled
	b.HoldExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// Expire は期限切れホールドを終端状態へ移す（システム専用遷移）
// pending かつ now >= holdExpiresAt の場合のみ成功する
func (b *Booking) Expire(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	if !b.IsHoldExpired(now) {
		return ErrHoldNotExpired
	}
	b.Status = StatusCancelled
	b.HoldExpiresAt = nil
	b.UpdatedAt = now
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.ListingID == "" {
		return ErrListingIDRequired
	}
	if b.RequesterID == "" {
		return ErrRequesterIDRequired
	}
	if !b.EndDate.After(b.StartDate) {
		return ErrInvalidDateRange
	}
	if b.TotalPrice < 0 {
		return ErrInvalidTotalPrice
	}
	return nil
}
