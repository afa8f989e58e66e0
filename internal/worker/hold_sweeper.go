package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
)

// HoldExpirer は期限切れホールドを expire するインターフェース
type HoldExpirer interface {
	ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error)
}

// HoldSweeper は期限切れホールドを定期的に終端状態へ移すワーカー
// 対話リクエストと同じ遷移関数（expire）を使うため、期限切れ処理は特別な経路ではない
type HoldSweeper struct {
	bookingService HoldExpirer
	interval       time.Duration
	batchSize      int
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewHoldSweeper は新しいスイーパーを作成する
func NewHoldSweeper(bs HoldExpirer, interval time.Duration, batchSize int) *HoldSweeper {
	return &HoldSweeper{
		bookingService: bs,
		interval:       interval,
		batchSize:      batchSize,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はスイーパーを開始する
func (s *HoldSweeper) Start(ctx context.Context) {
	logger.Info("ホールドスイーパー開始",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("ホールドスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("ホールドスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止する
func (s *HoldSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は期限切れホールドを1バッチ処理する
func (s *HoldSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れホールドの掃き出し開始")

	count, err := s.bookingService.ExpireOverdueHolds(ctx, s.batchSize)
	if err != nil {
		log.Error("期限切れホールドの掃き出し失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れホールドを終端状態へ移行", zap.Int("count", count))
	} else {
		log.Debug("期限切れホールドなし")
	}
}
