package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/clock"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
)

// ExpiredRecordDeleter は期限切れ冪等性レコードを削除するインターフェース
type ExpiredRecordDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// IdempotencyGC は期限切れ冪等性レコードを定期削除するワーカー
// ホールドスイーパーとは独立して動く
type IdempotencyGC struct {
	repo      ExpiredRecordDeleter
	clk       clock.Clock
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewIdempotencyGC は新しいGCワーカーを作成する
func NewIdempotencyGC(repo ExpiredRecordDeleter, clk clock.Clock, interval time.Duration, batchSize int) *IdempotencyGC {
	return &IdempotencyGC{
		repo:      repo,
		clk:       clk,
		interval:  interval,
		batchSize: batchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はGCワーカーを開始する
func (g *IdempotencyGC) Start(ctx context.Context) {
	logger.Info("冪等性レコードGC開始",
		zap.Duration("interval", g.interval),
		zap.Int("batch_size", g.batchSize),
	)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	defer close(g.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("冪等性レコードGC停止（コンテキストキャンセル）")
			return
		case <-g.stopCh:
			logger.Info("冪等性レコードGC停止（シグナル受信）")
			return
		case <-ticker.C:
			g.collect(ctx)
		}
	}
}

// Stop はGCワーカーを停止する
func (g *IdempotencyGC) Stop() {
	close(g.stopCh)
	<-g.doneCh
}

// collect は期限切れレコードを1バッチ削除する
func (g *IdempotencyGC) collect(ctx context.Context) {
	count, err := g.repo.DeleteExpired(ctx, g.clk.Now(), g.batchSize)
	if err != nil {
		logger.Error("期限切れ冪等性レコードの削除失敗", zap.Error(err))
		return
	}
	if count > 0 {
		logger.Info("期限切れ冪等性レコードを削除", zap.Int("count", count))
	}
}
