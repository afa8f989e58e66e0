package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Status は冪等性レコードの状態を表す
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record は冪等性レコードを表す
// (Key, CallerID, Operation) の組で一意であり、期限内は同じ論理操作の
// 再実行をブロックまたはリプレイする
type Record struct {
	ID                 string
	Key                string
	CallerID           string
	Operation          string
	RequestFingerprint string
	Status             Status
	ResultPayload      []byte
	ErrorDetail        string
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// NewRecord は実行開始時点の in_progress レコードを作成する
func NewRecord(key, callerID, operation, fingerprint string, now time.Time, ttl time.Duration) *Record {
	return &Record{
		Key:                key,
		CallerID:           callerID,
		Operation:          operation,
		RequestFingerprint: fingerprint,
		Status:             StatusInProgress,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}
}

// IsExpired はレコードが期限切れかを返す
// 期限切れのキーは過去のフィンガープリントに関係なく再利用可能
func (r *Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// MatchesFingerprint はリクエスト本文のフィンガープリントが一致するかを返す
func (r *Record) MatchesFingerprint(fingerprint string) bool {
	return r.RequestFingerprint == fingerprint
}

// Validate はレコードの検証を行う
func (r *Record) Validate() error {
	if r.Key == "" {
		return ErrKeyRequired
	}
	if r.CallerID == "" {
		return ErrCallerIDRequired
	}
	if r.Operation == "" {
		return ErrOperationRequired
	}
	return nil
}

// Fingerprint は正規化済みリクエスト本文のSHA-256ハッシュを返す
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
