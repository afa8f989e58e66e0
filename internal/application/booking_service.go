package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/config"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/booking"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/listing"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/transaction"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/events"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/infrastructure/postgres"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/clock"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/metrics"
)

// EventPublisher はコミット後イベントの発行先インターフェース
type EventPublisher interface {
	Publish(ev events.Event)
}

// AvailabilityInvalidator は空きスロットキャッシュの無効化インターフェース
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, listingID string) error
}

// BookingService は予約ステートマシンを実装する
// スロット数を触る全ての遷移は SERIALIZABLE トランザクション内で
// 在庫台帳の条件付きUPDATEと予約行更新を一括実行し、
// シリアライゼーション競合時は遷移全体を上限付きで再試行する
type BookingService struct {
	txManager    transaction.Manager
	bookingRepo  booking.Repository
	listingRepo  listing.Repository
	ledger       listing.Ledger
	publisher    EventPublisher
	cache        AvailabilityInvalidator
	clk          clock.Clock
	m            *metrics.Metrics
	holdDuration time.Duration
	retry        config.TxRetryConfig
}

// NewBookingService は新しい BookingService を作成する
// publisher / cache / m は nil 可（無効化される）
func NewBookingService(
	txManager transaction.Manager,
	bookingRepo booking.Repository,
	listingRepo listing.Repository,
	ledger listing.Ledger,
	publisher EventPublisher,
	cache AvailabilityInvalidator,
	clk clock.Clock,
	m *metrics.Metrics,
	holdDuration time.Duration,
	retry config.TxRetryConfig,
) *BookingService {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 5
	}
	if retry.BaseBackoff <= 0 {
		retry.BaseBackoff = 25 * time.Millisecond
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = 400 * time.Millisecond
	}
	return &BookingService{
		txManager:    txManager,
		bookingRepo:  bookingRepo,
		listingRepo:  listingRepo,
		ledger:       ledger,
		publisher:    publisher,
		cache:        cache,
		clk:          clk,
		m:            m,
		holdDuration: holdDuration,
		retry:        retry,
	}
}

// CreateHoldInput はホールド作成の入力
type CreateHoldInput struct {
	ListingID   string
	RequesterID string
	StartDate   time.Time
	EndDate     time.Time
	TotalPrice  int
}

// CreateHold はスロットを1つ確保して pending 予約を作成する
// 在庫を減らす遷移はこれが唯一
func (s *BookingService) CreateHold(ctx context.Context, input CreateHoldInput) (*booking.Booking, error) {
	var created *booking.Booking

	err := s.runSerializable(ctx, func(tx transaction.Tx) error {
		if err := s.ledger.ReserveSlot(ctx, tx, input.ListingID); err != nil {
			return err
		}
		b := booking.NewHold(input.ListingID, input.RequesterID, input.StartDate, input.EndDate, input.TotalPrice, s.clk.Now(), s.holdDuration)
		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		s.recordTransition("create_hold", err)
		return nil, err
	}

	s.recordTransition("create_hold", nil)
	if s.m != nil {
		s.m.ActiveHolds.Inc()
	}
	s.afterCommit(ctx, events.TypeHoldCreated, created, "")
	return created, nil
}

// Accept はホールドを承認する（リスティングオーナーのみ）
// 期限切れホールドは HoldExpired で拒否し、スイーパーの expire 経路に委ねる
// スロットは CreateHold 時点で確保済みのため在庫は変化しない
func (s *BookingService) Accept(ctx context.Context, bookingID, callerID string) (*booking.Booking, error) {
	var result *booking.Booking
	var prev booking.Status

	err := s.runSerializable(ctx, func(tx transaction.Tx) error {
		b, err := s.bookingRepo.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		l, err := s.listingRepo.GetByIDTx(ctx, tx, b.ListingID)
		if err != nil {
			return err
		}
		if !l.IsOwnedBy(callerID) {
			return booking.ErrNotAllowed
		}
		prev = b.Status
		if err := b.Accept(s.clk.Now()); err != nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		s.recordTransition("accept", err)
		return nil, err
	}

	s.recordTransition("accept", nil)
	if s.m != nil {
		s.m.ActiveHolds.Dec()
	}
	s.afterCommit(ctx, events.TypeBookingAccepted, result, prev)
	return result, nil
}

// Reject はホールドを拒否し、同一トランザクション内でスロットを解放する
func (s *BookingService) Reject(ctx context.Context, bookingID, callerID string) (*booking.Booking, error) {
	var result *booking.Booking
	var prev booking.Status

	err := s.runSerializable(ctx, func(tx transaction.Tx) error {
		b, err := s.bookingRepo.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		l, err := s.listingRepo.GetByIDTx(ctx, tx, b.ListingID)
		if err != nil {
			return err
		}
		if !l.IsOwnedBy(callerID) {
			return booking.ErrNotAllowed
		}
		prev = b.Status
		if err := b.Reject(s.clk.Now()); err != nil {
			return err
		}
		if err := s.releaseSlot(ctx, tx, b.ListingID); err != nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		s.recordTransition("reject", err)
		return nil, err
	}

	s.recordTransition("reject", nil)
	if s.m != nil {
		s.m.ActiveHolds.Dec()
	}
	s.afterCommit(ctx, events.TypeBookingRejected, result, prev)
	return result, nil
}

// Cancel は予約をキャンセルする（リクエスターまたはオーナー、pending/accepted から）
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID string) (*booking.Booking, error) {
	var result *booking.Booking
	var prev booking.Status

	err := s.runSerializable(ctx, func(tx transaction.Tx) error {
		b, err := s.bookingRepo.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		l, err := s.listingRepo.GetByIDTx(ctx, tx, b.ListingID)
		if err != nil {
			return err
		}
		if b.RequesterID != callerID && !l.IsOwnedBy(callerID) {
			return booking.ErrNotAllowed
		}
		prev = b.Status
		if err := b.Cancel(s.clk.Now()); err != nil {
			return err
		}
		if err := s.releaseSlot(ctx, tx, b.ListingID); err != nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		s.recordTransition("cancel", err)
		return nil, err
	}

	s.recordTransition("cancel", nil)
	if s.m != nil && prev == booking.StatusPending {
		s.m.ActiveHolds.Dec()
	}
	s.afterCommit(ctx, events.TypeBookingCancelled, result, prev)
	return result, nil
}

// Expire は期限切れホールドを終端状態へ移す（システム専用、スイーパーから呼ばれる）
// pending かつ期限切れであることをトランザクション内で再確認するため冪等
func (s *BookingService) Expire(ctx context.Context, bookingID string) (*booking.Booking, error) {
	var result *booking.Booking
	var prev booking.Status

	err := s.runSerializable(ctx, func(tx transaction.Tx) error {
		b, err := s.bookingRepo.GetByIDTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		prev = b.Status
		if err := b.Expire(s.clk.Now()); err != nil {
			return err
		}
		if err := s.releaseSlot(ctx, tx, b.ListingID); err != nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		s.recordTransition("expire", err)
		return nil, err
	}

	s.recordTransition("expire", nil)
	if s.m != nil {
		s.m.ActiveHolds.Dec()
		s.m.HoldsExpiredTotal.Inc()
	}
	s.afterCommit(ctx, events.TypeHoldExpired, result, prev)
	return result, nil
}

// ExpireOverdueHolds は期限切れホールドを上限件数まで expire する
// 1行の失敗（accept との競合など）はログに残してスキップし、バッチは継続する
func (s *BookingService) ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	ids, err := s.bookingRepo.ListExpiredPending(ctx, s.clk.Now(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("期限切れホールドの取得に失敗: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if _, err := s.Expire(ctx, id); err != nil {
			// 取得から expire までの間に accept / cancel が先行した場合はここに来る
			if errors.Is(err, booking.ErrInvalidTransition) || errors.Is(err, booking.ErrHoldNotExpired) || errors.Is(err, booking.ErrBookingNotFound) {
				logger.Debug("ホールドは既に別の遷移で処理済み",
					zap.String("booking_id", id),
					zap.Error(err),
				)
				continue
			}
			logger.Warn("ホールドの expire に失敗",
				zap.String("booking_id", id),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// GetBooking はIDから予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

// GetRequesterBookings はリクエスターの予約一覧を取得する
func (s *BookingService) GetRequesterBookings(ctx context.Context, requesterID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.bookingRepo.GetByRequesterID(ctx, requesterID, limit, offset)
}

// releaseSlot はスロットを解放する
// 二重解放はロジックエラーとして高めの重要度でログに残すが、遷移自体は中断しない
func (s *BookingService) releaseSlot(ctx context.Context, tx transaction.Tx, listingID string) error {
	if err := s.ledger.ReleaseSlot(ctx, tx, listingID); err != nil {
		if errors.Is(err, listing.ErrDoubleRelease) {
			logger.Error("スロットの二重解放を検出",
				zap.String("listing_id", listingID),
			)
			return nil
		}
		return err
	}
	return nil
}

// runSerializable は遷移クロージャを SERIALIZABLE トランザクションで実行する
// シリアライゼーション競合（40001）のみジッター付きバックオフで再試行し、
// 上限到達で ErrContention を返す。クロージャはコミット前に副作用を持たないこと
func (s *BookingService) runSerializable(ctx context.Context, fn func(tx transaction.Tx) error) error {
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if s.m != nil {
				s.m.TxSerializationRetriesTotal.Inc()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}

		tx, err := s.txManager.BeginSerializable(ctx)
		if err != nil {
			return fmt.Errorf("トランザクション開始に失敗: %w", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if postgres.IsSerializationFailure(err) {
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if postgres.IsSerializationFailure(err) {
				continue
			}
			return fmt.Errorf("コミットに失敗: %w", err)
		}
		return nil
	}
	return booking.ErrContention
}

// backoff は attempt 回目の待機時間を返す（指数 + ±50% ジッター、上限あり）
func (s *BookingService) backoff(attempt int) time.Duration {
	d := s.retry.BaseBackoff << (attempt - 1)
	if d > s.retry.MaxBackoff {
		d = s.retry.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d)+1)) - d/2
	return d + jitter
}

// afterCommit はコミット成功後の fire-and-forget 副作用（イベント発行・キャッシュ無効化）
// ここでの失敗は予約の正しさに影響せず、ロールバックも再送もしない
func (s *BookingService) afterCommit(ctx context.Context, evType events.Type, b *booking.Booking, prev booking.Status) {
	if s.publisher != nil {
		s.publisher.Publish(events.Event{
			Type:           evType,
			BookingID:      b.ID,
			ListingID:      b.ListingID,
			RequesterID:    b.RequesterID,
			PreviousStatus: string(prev),
			NewStatus:      string(b.Status),
			OccurredAt:     s.clk.Now(),
		})
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, b.ListingID); err != nil {
			logger.Warn("空きスロットキャッシュの無効化に失敗",
				zap.String("listing_id", b.ListingID),
				zap.Error(err),
			)
		}
	}
}

func (s *BookingService) recordTransition(transition string, err error) {
	if s.m == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, listing.ErrNoAvailability):
		outcome = "no_availability"
	case errors.Is(err, booking.ErrContention):
		outcome = "contention"
	case errors.Is(err, booking.ErrHoldExpired):
		outcome = "hold_expired"
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrHoldNotExpired):
		outcome = "invalid_transition"
	case errors.Is(err, booking.ErrNotAllowed):
		outcome = "forbidden"
	default:
		outcome = "error"
	}
	s.m.BookingTransitionsTotal.WithLabelValues(transition, outcome).Inc()
}
