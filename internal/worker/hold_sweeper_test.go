package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockHoldExpirer はHoldExpirerのモック
type MockHoldExpirer struct {
	mock.Mock
}

func (m *MockHoldExpirer) ExpireOverdueHolds(ctx context.Context, batchSize int) (int, error) {
	args := m.Called(ctx, batchSize)
	return args.Int(0), args.Error(1)
}

func TestNewHoldSweeper(t *testing.T) {
	mockService := new(MockHoldExpirer)

	sweeper := NewHoldSweeper(mockService, time.Minute, 100)

	assert.NotNil(t, sweeper)
	assert.Equal(t, time.Minute, sweeper.interval)
	assert.Equal(t, 100, sweeper.batchSize)
	assert.NotNil(t, sweeper.stopCh)
	assert.NotNil(t, sweeper.doneCh)
}

func TestHoldSweeper_Sweep(t *testing.T) {
	t.Run("期限切れホールドを1バッチ処理する", func(t *testing.T) {
		mockService := new(MockHoldExpirer)
		mockService.On("ExpireOverdueHolds", mock.Anything, 100).Return(3, nil)

		sweeper := NewHoldSweeper(mockService, time.Minute, 100)
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("処理対象がない場合も正常に動作する", func(t *testing.T) {
		mockService := new(MockHoldExpirer)
		mockService.On("ExpireOverdueHolds", mock.Anything, 100).Return(0, nil)

		sweeper := NewHoldSweeper(mockService, time.Minute, 100)
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("エラーが発生しても継続する", func(t *testing.T) {
		mockService := new(MockHoldExpirer)
		mockService.On("ExpireOverdueHolds", mock.Anything, 100).Return(0, assert.AnError)

		sweeper := NewHoldSweeper(mockService, time.Minute, 100)

		// パニックしないことを確認
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})
}

func TestHoldSweeper_StartStop(t *testing.T) {
	t.Run("開始と停止が正常に動作する", func(t *testing.T) {
		mockService := new(MockHoldExpirer)
		mockService.On("ExpireOverdueHolds", mock.Anything, 100).Return(0, nil).Maybe()

		sweeper := NewHoldSweeper(mockService, 50*time.Millisecond, 100)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go sweeper.Start(ctx)

		time.Sleep(120 * time.Millisecond)

		sweeper.Stop()

		select {
		case <-sweeper.doneCh:
			// 正常に終了
		case <-time.After(1 * time.Second):
			t.Error("sweeper did not stop in time")
		}
	})

	t.Run("コンテキストキャンセルで停止する", func(t *testing.T) {
		mockService := new(MockHoldExpirer)
		mockService.On("ExpireOverdueHolds", mock.Anything, 100).Return(0, nil).Maybe()

		sweeper := NewHoldSweeper(mockService, 50*time.Millisecond, 100)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			sweeper.Start(ctx)
			close(done)
		}()

		time.Sleep(80 * time.Millisecond)
		cancel()

		select {
		case <-done:
			// 正常に終了
		case <-time.After(1 * time.Second):
			t.Error("sweeper did not stop after context cancel")
		}
	})
}
