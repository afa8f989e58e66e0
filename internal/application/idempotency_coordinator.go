package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/idempotency"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/clock"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/metrics"
)

// OperationFunc は冪等性保護下で実行する操作
// 戻り値のペイロードがレコードに保存され、リプレイ時にそのまま返される
type OperationFunc func(ctx context.Context) ([]byte, error)

// IdempotencyCoordinator はクライアント提供のキーで変更系操作を重複排除する
// 「これはリトライか新規か」を判断するのはここだけで、
// 予約ステートマシンは冪等性の状態を一切参照しない
type IdempotencyCoordinator struct {
	repo         idempotency.Repository
	clk          clock.Clock
	m            *metrics.Metrics
	completedTTL time.Duration
	failedTTL    time.Duration
}

// NewIdempotencyCoordinator は新しいコーディネーターを作成する
func NewIdempotencyCoordinator(repo idempotency.Repository, clk clock.Clock, m *metrics.Metrics, completedTTL, failedTTL time.Duration) *IdempotencyCoordinator {
	if completedTTL <= 0 {
		completedTTL = 24 * time.Hour
	}
	if failedTTL <= 0 {
		failedTTL = time.Minute
	}
	return &IdempotencyCoordinator{
		repo:         repo,
		clk:          clk,
		m:            m,
		completedTTL: completedTTL,
		failedTTL:    failedTTL,
	}
}

// Execute は操作を高々1回実行し、リトライには保存済み結果を返す
//   - キーが空の場合は保護なしでそのまま実行する
//   - 既存レコードが completed かつフィンガープリント一致ならリプレイ
//   - フィンガープリント不一致は ErrConflict（クライアント側のバグ）
//   - in_progress（同キーの並行実行中）は ErrInProgress。ブロックせず即座に返す
//   - failed レコードは失敗TTLが切れるまでキーを占有し、リトライストームを防ぐ
func (c *IdempotencyCoordinator) Execute(ctx context.Context, key, callerID, operation, fingerprint string, fn OperationFunc) ([]byte, bool, error) {
	if key == "" {
		// 冪等性保護なし。毎回無条件に実行する
		payload, err := fn(ctx)
		return payload, false, err
	}

	rec, replay, err := c.begin(ctx, key, callerID, operation, fingerprint)
	if err != nil {
		return nil, false, err
	}
	if replay != nil {
		c.record("replayed")
		return replay.ResultPayload, true, nil
	}

	payload, opErr := fn(ctx)
	now := c.clk.Now()
	if opErr != nil {
		if err := c.repo.MarkFailed(ctx, rec.ID, opErr.Error(), now.Add(c.failedTTL)); err != nil {
			logger.Error("冪等性レコードの失敗更新に失敗",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		c.record("failed")
		return nil, false, opErr
	}

	if err := c.repo.MarkCompleted(ctx, rec.ID, payload, now.Add(c.completedTTL)); err != nil {
		// 操作自体は成功している。レコード更新失敗はログに残し、結果は返す
		logger.Error("冪等性レコードの完了更新に失敗",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	c.record("executed")
	return payload, false, nil
}

// begin は in_progress レコードの挿入を試みる
// 第2戻り値が非nilの場合は保存済み結果をリプレイする
func (c *IdempotencyCoordinator) begin(ctx context.Context, key, callerID, operation, fingerprint string) (*idempotency.Record, *idempotency.Record, error) {
	// 期限切れレコードの再利用で最大1回だけ挿入をやり直す
	for attempt := 0; attempt < 2; attempt++ {
		now := c.clk.Now()
		rec := idempotency.NewRecord(key, callerID, operation, fingerprint, now, c.completedTTL)
		if err := rec.Validate(); err != nil {
			return nil, nil, err
		}

		err := c.repo.Insert(ctx, rec)
		if err == nil {
			return rec, nil, nil
		}
		if !errors.Is(err, idempotency.ErrDuplicateKey) {
			return nil, nil, fmt.Errorf("冪等性レコードの挿入に失敗: %w", err)
		}

		existing, err := c.repo.Get(ctx, key, callerID, operation)
		if err != nil {
			if errors.Is(err, idempotency.ErrRecordNotFound) {
				// 挿入と取得の間にGCが走った。やり直す
				continue
			}
			return nil, nil, err
		}

		// 期限切れキーはフィンガープリントに関係なく再利用可能
		if existing.IsExpired(now) {
			if err := c.repo.Delete(ctx, existing.ID); err != nil {
				return nil, nil, err
			}
			continue
		}

		switch existing.Status {
		case idempotency.StatusCompleted:
			if !existing.MatchesFingerprint(fingerprint) {
				c.record("conflict")
				return nil, nil, idempotency.ErrConflict
			}
			return nil, existing, nil
		case idempotency.StatusInProgress:
			// 同キーの並行実行中。ブロックせず409で返し、呼び出し元に再試行させる
			c.record("in_progress")
			return nil, nil, idempotency.ErrInProgress
		case idempotency.StatusFailed:
			// 失敗TTLが切れるまでキーを占有する（未確定の副作用の再実行を防ぐ）
			c.record("in_progress")
			return nil, nil, idempotency.ErrInProgress
		default:
			return nil, nil, fmt.Errorf("不明な冪等性レコード状態: %s", existing.Status)
		}
	}
	return nil, nil, idempotency.ErrInProgress
}

func (c *IdempotencyCoordinator) record(result string) {
	if c.m != nil {
		c.m.IdempotencyRequestsTotal.WithLabelValues(result).Inc()
	}
}
