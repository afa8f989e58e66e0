package events

import "time"

// Type は予約ライフサイクルイベントの種別を表す
type Type string

const (
	TypeHoldCreated      Type = "HoldCreated"
	TypeBookingAccepted  Type = "BookingAccepted"
	TypeBookingRejected  Type = "BookingRejected"
	TypeBookingCancelled Type = "BookingCancelled"
	TypeHoldExpired      Type = "HoldExpired"
)

// Event はコミット成功後に発行される予約ライフサイクルイベント
// 通知・監査ログなどの外部コラボレーター向けで、配信失敗は予約の正しさに影響しない
type Event struct {
	Type           Type      `json:"type"`
	BookingID      string    `json:"booking_id"`
	ListingID      string    `json:"listing_id"`
	RequesterID    string    `json:"requester_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}
