package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/pkg/logger"
)

// Sink はイベントの配信先を表すインターフェース
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// Dispatcher はコミット後イベントの fire-and-forget 配信を行う
// Publish はバッファ付きチャンネルへの非ブロッキング送信で、
// 消費側ゴルーチンが各シンクへ流す。配信失敗はログのみで再試行しない
type Dispatcher struct {
	ch     chan Event
	sinks  []Sink
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDispatcher は新しいディスパッチャーを作成する
func NewDispatcher(bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Dispatcher{
		ch:     make(chan Event, bufferSize),
		sinks:  sinks,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Publish はイベントをキューに積む（非ブロッキング）
// バッファが満杯の場合は破棄して警告ログを出す
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.ch <- ev:
	default:
		logger.Warn("イベントバッファが満杯のため破棄",
			zap.String("type", string(ev.Type)),
			zap.String("booking_id", ev.BookingID),
		)
	}
}

// Start は消費ゴルーチンを開始する
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.doneCh)

	for {
		select {
		case <-ctx.Done():
			d.drain(ctx)
			return
		case <-d.stopCh:
			d.drain(ctx)
			return
		case ev := <-d.ch:
			d.emit(ctx, ev)
		}
	}
}

// Stop はディスパッチャーを停止し、残イベントを掃き出す
func (d *Dispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

func (d *Dispatcher) emit(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		if err := sink.Emit(ctx, ev); err != nil {
			logger.Warn("イベント配信に失敗",
				zap.String("type", string(ev.Type)),
				zap.String("booking_id", ev.BookingID),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.ch:
			d.emit(ctx, ev)
		default:
			return
		}
	}
}

// LogSink はイベントを構造化ログに出力するシンク
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Emit(_ context.Context, ev Event) error {
	logger.Info("予約イベント",
		zap.String("type", string(ev.Type)),
		zap.String("booking_id", ev.BookingID),
		zap.String("listing_id", ev.ListingID),
		zap.String("requester_id", ev.RequesterID),
		zap.String("previous_status", ev.PreviousStatus),
		zap.String("new_status", ev.NewStatus),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}

var (
	_ Sink = (*LogSink)(nil)
)
